package controllers

import (
	"github.com/labstack/echo/v4"

	"github.com/c14220110/telekonsul-backend/internal/common/form"
	"github.com/c14220110/telekonsul-backend/internal/common/middlewares"
	"github.com/c14220110/telekonsul-backend/internal/common/response"
	"github.com/c14220110/telekonsul-backend/internal/dokter/services"
)

type DokterController struct {
	Service *services.DokterService
}

func NewDokterController(service *services.DokterService) *DokterController {
	return &DokterController{Service: service}
}

func readProfileForm(c echo.Context) (services.ProfileInput, error) {
	values, err := form.Values(c)
	if err != nil {
		return services.ProfileInput{}, err
	}
	return services.ProfileInput{
		Specialty:         form.Optional(values, "specialty"),
		LicenseNumber:     form.Optional(values, "licenseNumber"),
		YearsOfExperience: form.Optional(values, "yearsOfExperience"),
		WorkPlace:         form.Optional(values, "workPlace"),
	}, nil
}

// CompleteProfile menangani PATCH /api/doctors/profile/complete (multipart).
func (dc *DokterController) CompleteProfile(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	in, err := readProfileForm(c)
	if err != nil {
		return response.Error(c, err)
	}
	degree, err := form.Files(c, "degreeFiles")
	if err != nil {
		return response.Error(c, err)
	}
	license, err := form.Files(c, "licenseFiles")
	if err != nil {
		return response.Error(c, err)
	}

	doctor, err := dc.Service.CompleteProfile(c.Request().Context(), claims.UserID, in, degree, license)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Profile completed successfully", doctor)
}

func (dc *DokterController) UpdateProfile(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	in, err := readProfileForm(c)
	if err != nil {
		return response.Error(c, err)
	}
	degree, err := form.Files(c, "degreeFiles")
	if err != nil {
		return response.Error(c, err)
	}
	license, err := form.Files(c, "licenseFiles")
	if err != nil {
		return response.Error(c, err)
	}

	doctor, err := dc.Service.UpdateProfile(c.Request().Context(), claims.UserID, in, degree, license)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Doctor profile updated successfully", doctor)
}
