package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/c14220110/telekonsul-backend/internal/chat/controllers"
	"github.com/c14220110/telekonsul-backend/internal/common/middlewares"
	penggunaModels "github.com/c14220110/telekonsul-backend/internal/pengguna/models"
)

func RegisterChatRoutes(api *echo.Group, cc *controllers.ChatController) {
	auth := []echo.MiddlewareFunc{
		middlewares.JWTMiddleware(),
		middlewares.RequireRole(penggunaModels.RoleDoctor, penggunaModels.RolePatient),
	}

	chats := api.Group("/chats", auth...)
	chats.GET("", cc.List)
	chats.GET("/unread/count", cc.UnreadCount)
	chats.GET("/stats", cc.Stats)
	chats.GET("/search", cc.SearchChats)
	chats.GET("/messages/search", cc.SearchMessages)
	chats.PUT("/:chatId/last-opened", cc.MarkOpened)
	chats.GET("/:chatId/messages", cc.Messages)
	chats.POST("/:chatId/messages", cc.SendMessage)
	chats.GET("/:chatId/media", cc.Media)
	chats.GET("/:chatId/links", cc.Links)
	chats.GET("/:chatId/documents", cc.Documents)
	chats.GET("/:chatId/summary", cc.Summary)

	// :id adalah chatId untuk /all dan messageId untuk /one dan /both.
	messages := api.Group("/messages", auth...)
	messages.DELETE("/:id/all", cc.DeleteAll)
	messages.DELETE("/:id/one", cc.DeleteForOne)
	messages.DELETE("/:id/both", cc.DeleteForBoth)

	uploads := api.Group("/uploads", auth...)
	uploads.POST("/chat", cc.Upload)
}
