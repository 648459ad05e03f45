package form

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestValuesFromJSON(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"city":"Surabaya","yearsOfExperience":7,"gender":null}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	values, err := Values(c)
	if err != nil {
		t.Fatalf("values: %v", err)
	}
	if values["city"] != "Surabaya" || values["yearsOfExperience"] != "7" {
		t.Fatalf("unexpected values %v", values)
	}
	if Optional(values, "gender") != nil {
		t.Fatalf("expected null field to be absent")
	}
}

func TestValuesAndFilesFromMultipart(t *testing.T) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	w.WriteField("title", "Headache")
	part, _ := w.CreateFormFile("attachments", "scan.png")
	part.Write([]byte("png"))
	part, _ = w.CreateFormFile("attachments", "lab.pdf")
	part.Write([]byte("pdf"))
	w.Close()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	c := e.NewContext(req, httptest.NewRecorder())

	values, err := Values(c)
	if err != nil {
		t.Fatalf("values: %v", err)
	}
	if p := Optional(values, "title"); p == nil || *p != "Headache" {
		t.Fatalf("expected title, got %v", p)
	}
	files, err := Files(c, "attachments")
	if err != nil || len(files) != 2 {
		t.Fatalf("expected 2 files, got %d (%v)", len(files), err)
	}
	first, _ := File(c, "attachments")
	if first.Filename != "scan.png" {
		t.Fatalf("expected first file scan.png, got %s", first.Filename)
	}
}

func TestFilesWithoutMultipart(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	files, err := Files(c, "attachments")
	if err != nil || files != nil {
		t.Fatalf("expected no files and no error, got %v %v", files, err)
	}
}
