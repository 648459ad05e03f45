// Package apperror membawa status HTTP bersama pesan error dari service ke controller.
package apperror

import (
	"errors"
	"net/http"
)

type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

func BadRequest(message string) *Error   { return New(http.StatusBadRequest, message) }
func Unauthorized(message string) *Error { return New(http.StatusUnauthorized, message) }
func Forbidden(message string) *Error    { return New(http.StatusForbidden, message) }
func NotFound(message string) *Error     { return New(http.StatusNotFound, message) }
func Conflict(message string) *Error     { return New(http.StatusConflict, message) }

func Unavailable(message string) *Error {
	return New(http.StatusServiceUnavailable, message)
}

// Internal membungkus error tak terduga sebagai 500.
func Internal(err error) *Error {
	return &Error{Code: http.StatusInternalServerError, Message: "Server error", Err: err}
}

// CodeOf mengembalikan status HTTP dari err, atau 500 jika bukan *Error.
func CodeOf(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
