// Package form membaca field dan file dari request multipart maupun JSON.
package form

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/c14220110/telekonsul-backend/internal/common/apperror"
)

// Values mengembalikan field request sebagai map. Body JSON dan form
// (urlencoded atau multipart) sama-sama didukung; key yang tidak dikirim
// tidak ada di map.
func Values(c echo.Context) (map[string]string, error) {
	req := c.Request()
	if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		raw := map[string]interface{}{}
		if err := json.NewDecoder(req.Body).Decode(&raw); err != nil {
			return nil, apperror.BadRequest("Invalid request payload: " + err.Error())
		}
		out := make(map[string]string, len(raw))
		for k, v := range raw {
			switch val := v.(type) {
			case nil:
			case string:
				out[k] = val
			default:
				out[k] = fmt.Sprint(val)
			}
		}
		return out, nil
	}

	params, err := c.FormParams()
	if err != nil {
		return nil, apperror.BadRequest("Invalid form data: " + err.Error())
	}
	out := make(map[string]string, len(params))
	for k, v := range params {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out, nil
}

// Optional mengembalikan pointer ke nilai key, atau nil jika tidak dikirim.
func Optional(values map[string]string, key string) *string {
	v, ok := values[key]
	if !ok {
		return nil
	}
	return &v
}

// Files mengembalikan semua file pada field. Request non-multipart
// dianggap tidak membawa file.
func Files(c echo.Context, field string) ([]*multipart.FileHeader, error) {
	mf, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, apperror.BadRequest("Invalid multipart form: " + err.Error())
	}
	return mf.File[field], nil
}

// File mengembalikan file pertama pada field, atau nil.
func File(c echo.Context, field string) (*multipart.FileHeader, error) {
	files, err := Files(c, field)
	if err != nil || len(files) == 0 {
		return nil, err
	}
	return files[0], nil
}
