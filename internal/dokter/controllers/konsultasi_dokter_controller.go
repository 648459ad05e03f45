package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/c14220110/telekonsul-backend/internal/common/middlewares"
	"github.com/c14220110/telekonsul-backend/internal/common/response"
	"github.com/c14220110/telekonsul-backend/internal/dokter/services"
	"github.com/c14220110/telekonsul-backend/pkg/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type KonsultasiDokterController struct {
	Service *services.KonsultasiDokterService
}

func NewKonsultasiDokterController(service *services.KonsultasiDokterService) *KonsultasiDokterController {
	return &KonsultasiDokterController{Service: service}
}

// Available menangani GET /api/doctors/consultations/available?page=&limit=.
func (kc *KonsultasiDokterController) Available(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	page, limit := utils.ParsePage(c.QueryParam("page"), c.QueryParam("limit"), services.DefaultAvailableLimit)
	result, err := kc.Service.Available(c.Request().Context(), claims.UserID, page, limit)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Available consultations retrieved successfully", result)
}

func (kc *KonsultasiDokterController) Latest(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	item, err := kc.Service.Latest(c.Request().Context(), claims.UserID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Latest consultation retrieved successfully", item)
}

func (kc *KonsultasiDokterController) Stats(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	_, limit := utils.ParsePage("", c.QueryParam("limit"), services.DefaultStatsLimit)
	stats, err := kc.Service.Stats(c.Request().Context(), claims.UserID, limit)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Consultation stats retrieved successfully", stats)
}

// ExportStats mengirim riwayat konsultasi sebagai file xlsx.
func (kc *KonsultasiDokterController) ExportStats(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	var buf bytes.Buffer
	if err := kc.Service.ExportHistory(c.Request().Context(), claims.UserID, &buf); err != nil {
		return response.Error(c, err)
	}
	filename := fmt.Sprintf("consultations-%s.xlsx", time.Now().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (kc *KonsultasiDokterController) Details(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	details, err := kc.Service.Details(c.Request().Context(), claims.UserID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Consultation details retrieved successfully", details)
}

func (kc *KonsultasiDokterController) Start(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	result, err := kc.Service.Start(c.Request().Context(), claims.UserID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	if !result.Created {
		return response.OK(c, "Chat already exists for this consultation.", result)
	}
	return response.Created(c, "Consultation started and chat created.", result)
}

func (kc *KonsultasiDokterController) End(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	consultation, err := kc.Service.End(c.Request().Context(), claims.UserID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Consultation ended successfully", consultation)
}
