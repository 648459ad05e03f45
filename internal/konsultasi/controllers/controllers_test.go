package controllers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/c14220110/telekonsul-backend/internal/common/response"
	"github.com/c14220110/telekonsul-backend/internal/konsultasi/controllers"
	"github.com/c14220110/telekonsul-backend/internal/konsultasi/models"
	"github.com/c14220110/telekonsul-backend/internal/konsultasi/routes"
	"github.com/c14220110/telekonsul-backend/internal/konsultasi/services"
	"github.com/c14220110/telekonsul-backend/internal/testutil"
	"github.com/c14220110/telekonsul-backend/internal/testutil/memstore"
	"github.com/c14220110/telekonsul-backend/pkg/storage"
	"github.com/c14220110/telekonsul-backend/pkg/utils"
)

func newServer(t *testing.T) (*echo.Echo, storage.Stores) {
	t.Helper()
	t.Setenv("JWT_SECRET_KEY", testutil.JWTSecret)
	stores := memstore.New().Stores()
	files := utils.NewFileStorage(t.TempDir(), 1<<20)

	e := echo.New()
	e.HTTPErrorHandler = response.HTTPErrorHandler
	routes.RegisterKonsultasiRoutes(e.Group("/api"),
		controllers.NewKonsultasiController(services.NewKonsultasiService(stores, files, zerolog.Nop())))
	return e, stores
}

func TestConsultationLifecycleOverHTTP(t *testing.T) {
	e, stores := newServer(t)
	patient := testutil.CreatePatient(t, stores, "ani")
	token := testutil.Token(t, patient)

	body, contentType := testutil.MultipartBody(t, map[string]string{
		"title":       "Ruam kulit",
		"description": "Gatal sejak kemarin",
		"specialty":   "dermatology",
	}, "attachments", testutil.File{Name: "ruam.png", Content: "png"})
	req := httptest.NewRequest(http.MethodPost, "/api/consultations", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec, env := testutil.Do(t, e, req, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	var created models.ConsultationRequest
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Status != models.StatusSearching || len(created.Attachments) != 1 {
		t.Fatalf("unexpected consultation %+v", created)
	}

	rec, env = testutil.Do(t, e, httptest.NewRequest(http.MethodGet, "/api/consultations/get-user-consultations?page=1&limit=5", nil), token)
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Data), `"totalItems":1`) {
		t.Fatalf("expected one consultation, got %d %s", rec.Code, rec.Body.String())
	}

	patch := httptest.NewRequest(http.MethodPatch, "/api/consultations/"+created.ID.Hex(), strings.NewReader(`{"title":"Ruam merah"}`))
	patch.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec, env = testutil.Do(t, e, patch, token)
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Data), `"title":"Ruam merah"`) {
		t.Fatalf("expected updated title, got %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = testutil.Do(t, e, httptest.NewRequest(http.MethodPost, "/api/consultations/republish/"+created.ID.Hex(), nil), token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 republishing a searching consultation, got %d", rec.Code)
	}

	rec, _ = testutil.Do(t, e, httptest.NewRequest(http.MethodDelete, "/api/consultations/"+created.ID.Hex(), nil), token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 delete, got %d %s", rec.Code, rec.Body.String())
	}
	rec, _ = testutil.Do(t, e, httptest.NewRequest(http.MethodGet, "/api/consultations/"+created.ID.Hex(), nil), token)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestConsultationRoutesArePatientOnly(t *testing.T) {
	e, stores := newServer(t)
	doctor, _ := testutil.CreateDoctor(t, stores, "budi", "general")

	rec, _ := testutil.Do(t, e, httptest.NewRequest(http.MethodGet, "/api/consultations/get-user-consultations", nil), testutil.Token(t, doctor))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for doctor, got %d", rec.Code)
	}
	rec, _ = testutil.Do(t, e, httptest.NewRequest(http.MethodGet, "/api/consultations/get-user-consultations", nil), "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestCreateRequiresFields(t *testing.T) {
	e, stores := newServer(t)
	patient := testutil.CreatePatient(t, stores, "caca")

	req := httptest.NewRequest(http.MethodPost, "/api/consultations", strings.NewReader(`{"title":"x"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec, env := testutil.Do(t, e, req, testutil.Token(t, patient))
	if rec.Code != http.StatusBadRequest || env.Message == "" {
		t.Fatalf("expected 400 with message, got %d %s", rec.Code, rec.Body.String())
	}
}
