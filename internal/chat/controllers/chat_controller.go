package controllers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/c14220110/telekonsul-backend/internal/chat/services"
	"github.com/c14220110/telekonsul-backend/internal/common/apperror"
	"github.com/c14220110/telekonsul-backend/internal/common/form"
	"github.com/c14220110/telekonsul-backend/internal/common/middlewares"
	"github.com/c14220110/telekonsul-backend/internal/common/response"
	"github.com/c14220110/telekonsul-backend/pkg/utils"
)

type ChatController struct {
	Service *services.ChatService
}

func NewChatController(service *services.ChatService) *ChatController {
	return &ChatController{Service: service}
}

func (cc *ChatController) List(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	chats, err := cc.Service.List(c.Request().Context(), claims.UserID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Chats retrieved successfully", chats)
}

func (cc *ChatController) MarkOpened(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	at, err := cc.Service.MarkOpened(c.Request().Context(), claims.UserID, c.Param("chatId"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Last opened updated", map[string]interface{}{"lastOpened": at})
}

// Messages menangani GET /api/chats/:chatId/messages?page=&limit=.
func (cc *ChatController) Messages(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	page, limit := utils.ParsePage(c.QueryParam("page"), c.QueryParam("limit"), services.DefaultMessageLimit)
	result, err := cc.Service.Messages(c.Request().Context(), claims.UserID, c.Param("chatId"), page, limit)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Messages retrieved successfully", result)
}

func (cc *ChatController) SendMessage(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	var in services.SendInput
	if err := c.Bind(&in); err != nil {
		return response.Error(c, apperror.BadRequest("Invalid request payload"))
	}
	in.ChatID = c.Param("chatId")
	message, err := cc.Service.SendMessage(c.Request().Context(), claims.UserID, in)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, "Message sent successfully", message)
}

func (cc *ChatController) UnreadCount(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	n, err := cc.Service.UnreadCount(c.Request().Context(), claims.UserID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Unread count retrieved successfully", map[string]int64{"unreadCount": n})
}

func (cc *ChatController) Stats(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	stats, err := cc.Service.Stats(c.Request().Context(), claims.UserID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Chat stats retrieved successfully", stats)
}

func (cc *ChatController) Media(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	items, err := cc.Service.Media(c.Request().Context(), claims.UserID, c.Param("chatId"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Media retrieved successfully", items)
}

func (cc *ChatController) Links(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	links, err := cc.Service.Links(c.Request().Context(), claims.UserID, c.Param("chatId"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Links retrieved successfully", links)
}

func (cc *ChatController) Documents(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	items, err := cc.Service.Documents(c.Request().Context(), claims.UserID, c.Param("chatId"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Documents retrieved successfully", items)
}

// Summary mengembalikan JSON, atau PDF jika ?format=pdf.
func (cc *ChatController) Summary(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	ctx := c.Request().Context()
	if c.QueryParam("format") == "pdf" {
		var buf bytes.Buffer
		if err := cc.Service.SummaryPDF(ctx, claims.UserID, c.Param("chatId"), &buf); err != nil {
			return response.Error(c, err)
		}
		filename := fmt.Sprintf("consultation-summary-%s.pdf", c.Param("chatId"))
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
		return c.Blob(http.StatusOK, "application/pdf", buf.Bytes())
	}
	summary, err := cc.Service.Summary(ctx, claims.UserID, c.Param("chatId"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Consultation summary retrieved successfully", summary)
}

func (cc *ChatController) SearchChats(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	chats, err := cc.Service.SearchChats(c.Request().Context(), claims.UserID, c.QueryParam("q"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Chats retrieved successfully", chats)
}

func (cc *ChatController) SearchMessages(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	messages, err := cc.Service.SearchMessages(c.Request().Context(), claims.UserID, c.QueryParam("q"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Messages retrieved successfully", messages)
}

func (cc *ChatController) DeleteAll(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	if err := cc.Service.DeleteAll(c.Request().Context(), claims.UserID, c.Param("id")); err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "All messages deleted", nil)
}

func (cc *ChatController) DeleteForOne(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	if err := cc.Service.DeleteForOne(c.Request().Context(), claims.UserID, c.Param("id")); err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Message deleted for you", nil)
}

func (cc *ChatController) DeleteForBoth(c echo.Context) error {
	claims := middlewares.ClaimsFrom(c)
	if err := cc.Service.DeleteForBoth(c.Request().Context(), claims.UserID, c.Param("id")); err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Message deleted for everyone", nil)
}

// Upload menangani POST /api/uploads/chat (multipart, field "attachments").
func (cc *ChatController) Upload(c echo.Context) error {
	files, err := form.Files(c, "attachments")
	if err != nil {
		return response.Error(c, err)
	}
	attachments, err := cc.Service.Upload(files)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, "Files uploaded successfully", attachments)
}
