package apperror

import (
	"errors"
	"net/http"

	"github.com/c14220110/telekonsul-backend/pkg/storage"
	"github.com/c14220110/telekonsul-backend/pkg/utils"
)

// FromStore memetakan error storage: ErrNotFound menjadi 404 dengan pesan
// notFound, selain itu 500.
func FromStore(err error, notFound string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return NotFound(notFound)
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// FromUpload memetakan penolakan file upload menjadi 400.
func FromUpload(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, utils.ErrFileTooLarge), errors.Is(err, utils.ErrFileTypeRejected):
		return &Error{Code: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, utils.ErrUnsafePath):
		return &Error{Code: http.StatusBadRequest, Message: "Invalid file path"}
	}
	return Internal(err)
}
