package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/c14220110/telekonsul-backend/internal/common/middlewares"
	"github.com/c14220110/telekonsul-backend/internal/pengguna/controllers"
	"github.com/c14220110/telekonsul-backend/internal/pengguna/models"
)

func RegisterAuthRoutes(api *echo.Group, ac *controllers.AuthController) {
	auth := api.Group("/auth")
	auth.POST("/register", ac.Register)
	auth.POST("/login", ac.Login)
}

func RegisterUserRoutes(api *echo.Group, uc *controllers.UserController) {
	users := api.Group("/users", middlewares.JWTMiddleware(), middlewares.RequireRole(models.RoleDoctor, models.RolePatient))

	users.GET("/profile", uc.GetProfile)
	users.PATCH("/profile", uc.UpdateProfile)
	users.PATCH("/profile/complete", uc.CompleteProfile)
	users.DELETE("/profile", uc.DeleteProfile)
	users.GET("/statistics", uc.Statistics)

	// Rating dan device token
	users.POST("/ratings", uc.CreateRating)
	users.GET("/ratings/check", uc.CheckRating)
	users.POST("/device-token", uc.RegisterDeviceToken)

	users.GET("/:chatId/other-user", uc.OtherParticipant)
}
