package controllers

import (
	"github.com/labstack/echo/v4"

	"github.com/c14220110/telekonsul-backend/internal/common/form"
	"github.com/c14220110/telekonsul-backend/internal/common/middlewares"
	"github.com/c14220110/telekonsul-backend/internal/common/response"
	"github.com/c14220110/telekonsul-backend/internal/konsultasi/services"
	"github.com/c14220110/telekonsul-backend/pkg/utils"
)

type KonsultasiController struct {
	Service *services.KonsultasiService
}

func NewKonsultasiController(service *services.KonsultasiService) *KonsultasiController {
	return &KonsultasiController{Service: service}
}

// Create menangani POST /api/consultations (multipart, field file "attachments").
func (kc *KonsultasiController) Create(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	values, err := form.Values(c)
	if err != nil {
		return response.Error(c, err)
	}
	attachments, err := form.Files(c, "attachments")
	if err != nil {
		return response.Error(c, err)
	}

	consultation, err := kc.Service.Create(c.Request().Context(), claims.UserID, services.CreateInput{
		Title:       values["title"],
		Description: values["description"],
		Specialty:   values["specialty"],
	}, attachments)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, "Consultation request created successfully", consultation)
}

func (kc *KonsultasiController) ListMine(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	page, limit := utils.ParsePage(c.QueryParam("page"), c.QueryParam("limit"), services.DefaultListLimit)
	result, err := kc.Service.ListMine(c.Request().Context(), claims.UserID, c.QueryParam("status"), page, limit)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Consultations retrieved successfully", result)
}

func (kc *KonsultasiController) Get(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	view, err := kc.Service.Get(c.Request().Context(), claims.UserID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Consultation retrieved successfully", view)
}

func (kc *KonsultasiController) Update(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	values, err := form.Values(c)
	if err != nil {
		return response.Error(c, err)
	}
	attachments, err := form.Files(c, "attachments")
	if err != nil {
		return response.Error(c, err)
	}

	consultation, err := kc.Service.Update(c.Request().Context(), claims.UserID, c.Param("id"), services.UpdateInput{
		Title:       form.Optional(values, "title"),
		Description: form.Optional(values, "description"),
		Specialty:   form.Optional(values, "specialty"),
	}, attachments)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Consultation updated successfully", consultation)
}

func (kc *KonsultasiController) Delete(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	if err := kc.Service.Delete(c.Request().Context(), claims.UserID, c.Param("id")); err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Consultation deleted successfully", nil)
}

func (kc *KonsultasiController) Republish(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	consultation, err := kc.Service.Republish(c.Request().Context(), claims.UserID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, "Consultation republished successfully", consultation)
}
