package controllers

import (
	"github.com/labstack/echo/v4"

	"github.com/c14220110/telekonsul-backend/internal/common/apperror"
	"github.com/c14220110/telekonsul-backend/internal/common/form"
	"github.com/c14220110/telekonsul-backend/internal/common/middlewares"
	"github.com/c14220110/telekonsul-backend/internal/common/response"
	"github.com/c14220110/telekonsul-backend/internal/pengguna/services"
)

type UserController struct {
	Profiles *services.ProfileService
	Ratings  *services.RatingService
}

func NewUserController(profiles *services.ProfileService, ratings *services.RatingService) *UserController {
	return &UserController{Profiles: profiles, Ratings: ratings}
}

func (uc *UserController) GetProfile(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	view, err := uc.Profiles.GetProfile(c.Request().Context(), claims.UserID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Profile retrieved successfully", view)
}

// UpdateProfile menerima multipart (dengan profileImage opsional) atau JSON.
func (uc *UserController) UpdateProfile(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	values, err := form.Values(c)
	if err != nil {
		return response.Error(c, err)
	}
	image, err := form.File(c, "profileImage")
	if err != nil {
		return response.Error(c, err)
	}

	user, err := uc.Profiles.UpdateProfile(c.Request().Context(), claims.UserID, services.ProfileUpdate{
		FirstName: form.Optional(values, "firstName"),
		LastName:  form.Optional(values, "lastName"),
		Gender:    form.Optional(values, "gender"),
		BirthDate: form.Optional(values, "birthDate"),
		City:      form.Optional(values, "city"),
	}, image)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Profile updated successfully", user)
}

func (uc *UserController) CompleteProfile(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	values, err := form.Values(c)
	if err != nil {
		return response.Error(c, err)
	}
	image, err := form.File(c, "profileImage")
	if err != nil {
		return response.Error(c, err)
	}
	user, err := uc.Profiles.CompleteProfile(c.Request().Context(), claims.UserID,
		values["gender"], values["birthDate"], values["city"], image)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Profile completed successfully", user)
}

func (uc *UserController) DeleteProfile(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	if err := uc.Profiles.DeleteProfile(c.Request().Context(), claims.UserID); err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Profile deleted successfully", nil)
}

func (uc *UserController) Statistics(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	stats, err := uc.Profiles.Statistics(c.Request().Context(), claims.UserID, claims.Role)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Statistics retrieved successfully", stats)
}

// OtherParticipant menangani GET /api/users/:chatId/other-user.
func (uc *UserController) OtherParticipant(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	profile, err := uc.Profiles.OtherParticipant(c.Request().Context(), claims.UserID, c.Param("chatId"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Participant retrieved successfully", profile)
}

func (uc *UserController) CreateRating(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	var req services.RatingInput
	if err := c.Bind(&req); err != nil {
		return response.Error(c, apperror.BadRequest("Invalid request payload: "+err.Error()))
	}
	rating, err := uc.Ratings.Create(c.Request().Context(), claims.UserID, req)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, "Rating submitted successfully", rating)
}

func (uc *UserController) CheckRating(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	check, err := uc.Ratings.Check(c.Request().Context(), claims.UserID, c.QueryParam("chatId"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Rating status retrieved successfully", check)
}

func (uc *UserController) RegisterDeviceToken(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	var req struct {
		Token    string `json:"token"`
		Platform string `json:"platform"`
	}
	if err := c.Bind(&req); err != nil {
		return response.Error(c, apperror.BadRequest("Invalid request payload: "+err.Error()))
	}
	if err := uc.Profiles.RegisterDeviceToken(c.Request().Context(), claims.UserID, req.Token, req.Platform); err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Device token registered", nil)
}
