// Package response menulis envelope JSON {status, message, data} yang sama untuk semua endpoint.
package response

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/c14220110/telekonsul-backend/internal/common/apperror"
)

type Envelope struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func JSON(c echo.Context, code int, message string, data interface{}) error {
	return c.JSON(code, Envelope{Status: code, Message: message, Data: data})
}

func OK(c echo.Context, message string, data interface{}) error {
	return JSON(c, http.StatusOK, message, data)
}

func Created(c echo.Context, message string, data interface{}) error {
	return JSON(c, http.StatusCreated, message, data)
}

// Error menerjemahkan error service ke response. Error yang bukan
// *apperror.Error dianggap 500 dan detailnya ikut dikirim.
func Error(c echo.Context, err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		if appErr.Code >= http.StatusInternalServerError && appErr.Err != nil {
			c.Set("error", appErr.Err.Error())
			return JSON(c, appErr.Code, appErr.Message, map[string]string{"details": appErr.Err.Error()})
		}
		return JSON(c, appErr.Code, appErr.Message, nil)
	}
	c.Set("error", err.Error())
	return JSON(c, http.StatusInternalServerError, "Server error", map[string]string{"details": err.Error()})
}

// HTTPErrorHandler dipasang di echo agar error router (404/405) dan panic
// yang di-recover tetap memakai envelope yang sama.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		_ = JSON(c, he.Code, msg, nil)
		return
	}
	_ = Error(c, err)
}
