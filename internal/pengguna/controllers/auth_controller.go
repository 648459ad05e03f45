package controllers

import (
	"github.com/labstack/echo/v4"

	"github.com/c14220110/telekonsul-backend/internal/common/apperror"
	"github.com/c14220110/telekonsul-backend/internal/common/response"
	"github.com/c14220110/telekonsul-backend/internal/pengguna/services"
)

type AuthController struct {
	Service *services.AuthService
}

func NewAuthController(service *services.AuthService) *AuthController {
	return &AuthController{Service: service}
}

// Register menangani POST /api/auth/register.
func (ac *AuthController) Register(c echo.Context) error {
	var req services.RegisterInput
	if err := c.Bind(&req); err != nil {
		return response.Error(c, apperror.BadRequest("Invalid request payload: "+err.Error()))
	}
	result, err := ac.Service.Register(c.Request().Context(), req)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, "User registered successfully", result)
}

// Login menangani POST /api/auth/login.
func (ac *AuthController) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return response.Error(c, apperror.BadRequest("Invalid request payload: "+err.Error()))
	}
	result, err := ac.Service.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Login successful", result)
}
