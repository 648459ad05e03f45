package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/c14220110/telekonsul-backend/internal/common/middlewares"
	"github.com/c14220110/telekonsul-backend/internal/konsultasi/controllers"
	penggunaModels "github.com/c14220110/telekonsul-backend/internal/pengguna/models"
)

func RegisterKonsultasiRoutes(api *echo.Group, kc *controllers.KonsultasiController) {
	consultations := api.Group("/consultations", middlewares.JWTMiddleware(), middlewares.RequireRole(penggunaModels.RolePatient))

	consultations.POST("", kc.Create)
	consultations.GET("/get-user-consultations", kc.ListMine)
	consultations.POST("/republish/:id", kc.Republish)
	consultations.GET("/:id", kc.Get)
	consultations.PATCH("/:id", kc.Update)
	consultations.DELETE("/:id", kc.Delete)
}
