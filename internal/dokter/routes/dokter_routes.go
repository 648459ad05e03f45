package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/c14220110/telekonsul-backend/internal/common/middlewares"
	"github.com/c14220110/telekonsul-backend/internal/dokter/controllers"
	penggunaModels "github.com/c14220110/telekonsul-backend/internal/pengguna/models"
)

func RegisterDokterRoutes(api *echo.Group, dc *controllers.DokterController, kc *controllers.KonsultasiDokterController) {
	doctors := api.Group("/doctors", middlewares.JWTMiddleware(), middlewares.RequireRole(penggunaModels.RoleDoctor))

	doctors.PATCH("/profile/complete", dc.CompleteProfile)
	doctors.PATCH("/profile", dc.UpdateProfile)

	consultations := doctors.Group("/consultations")
	consultations.GET("/available", kc.Available)
	consultations.GET("/latest", kc.Latest)
	consultations.GET("/stats", kc.Stats)
	consultations.GET("/stats/export", kc.ExportStats)
	consultations.GET("/:id", kc.Details)
	consultations.POST("/:id/start", kc.Start)
	consultations.POST("/:id/end", kc.End)
}
