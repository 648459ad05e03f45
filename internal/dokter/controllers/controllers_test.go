package controllers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/c14220110/telekonsul-backend/internal/common/response"
	"github.com/c14220110/telekonsul-backend/internal/dokter/controllers"
	"github.com/c14220110/telekonsul-backend/internal/dokter/routes"
	"github.com/c14220110/telekonsul-backend/internal/dokter/services"
	konsultasiModels "github.com/c14220110/telekonsul-backend/internal/konsultasi/models"
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
	routes.RegisterDokterRoutes(e.Group("/api"),
		controllers.NewDokterController(services.NewDokterService(stores.Doctors, files, zerolog.Nop())),
		controllers.NewKonsultasiDokterController(services.NewKonsultasiDokterService(
			stores, testutil.NewPublisher(), &testutil.Notifier{}, zerolog.Nop())),
	)
	return e, stores
}

func TestDoctorRoutesRequireDoctorRole(t *testing.T) {
	e, stores := newServer(t)
	patient := testutil.CreatePatient(t, stores, "ani")

	rec, _ := testutil.Do(t, e, httptest.NewRequest(http.MethodGet, "/api/doctors/consultations/available", nil), "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	rec, _ = testutil.Do(t, e, httptest.NewRequest(http.MethodGet, "/api/doctors/consultations/available", nil), testutil.Token(t, patient))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for patient, got %d", rec.Code)
	}
}

func TestStartThenEndOverHTTP(t *testing.T) {
	e, stores := newServer(t)
	patient := testutil.CreatePatient(t, stores, "budi")
	doctor, _ := testutil.CreateDoctor(t, stores, "citra", "general")
	token := testutil.Token(t, doctor)

	c := &konsultasiModels.ConsultationRequest{UserID: patient.ID, Title: "Demam", Specialty: "general", Status: konsultasiModels.StatusSearching}
	if err := stores.Consultations.Create(context.Background(), c); err != nil {
		t.Fatalf("create consultation: %v", err)
	}

	rec, env := testutil.Do(t, e, httptest.NewRequest(http.MethodGet, "/api/doctors/consultations/available?page=1&limit=5", nil), token)
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Data), c.ID.Hex()) {
		t.Fatalf("expected consultation in available list, got %d %s", rec.Code, rec.Body.String())
	}

	path := "/api/doctors/consultations/" + c.ID.Hex()
	rec, env = testutil.Do(t, e, httptest.NewRequest(http.MethodPost, path+"/start", nil), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 start, got %d %s", rec.Code, rec.Body.String())
	}
	var started services.StartResult
	if err := json.Unmarshal(env.Data, &started); err != nil || started.ChatID == "" {
		t.Fatalf("expected chatId in response, got %s (%v)", env.Data, err)
	}

	rec, env = testutil.Do(t, e, httptest.NewRequest(http.MethodPost, path+"/start", nil), token)
	if rec.Code != http.StatusOK || env.Message != "Chat already exists for this consultation." {
		t.Fatalf("expected 200 on repeated start, got %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = testutil.Do(t, e, httptest.NewRequest(http.MethodPost, path+"/end", nil), token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 end, got %d %s", rec.Code, rec.Body.String())
	}
	rec, _ = testutil.Do(t, e, httptest.NewRequest(http.MethodPost, path+"/end", nil), token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on second end, got %d", rec.Code)
	}
}

func TestExportStatsReturnsWorkbook(t *testing.T) {
	e, stores := newServer(t)
	doctor, _ := testutil.CreateDoctor(t, stores, "dewi", "general")

	rec, _ := testutil.Do(t, e, httptest.NewRequest(http.MethodGet, "/api/doctors/consultations/stats/export", nil), testutil.Token(t, doctor))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderContentDisposition), ".xlsx") {
		t.Fatalf("expected xlsx attachment, got %q", rec.Header().Get(echo.HeaderContentDisposition))
	}
	// xlsx adalah arsip zip
	if !strings.HasPrefix(rec.Body.String(), "PK") {
		t.Fatalf("expected zip payload")
	}
}

func TestCompleteProfileMultipart(t *testing.T) {
	e, stores := newServer(t)
	user, _ := testutil.CreateDoctor(t, stores, "eko", "")

	body, contentType := testutil.MultipartBody(t, map[string]string{
		"specialty":         "pediatrics",
		"licenseNumber":     "STR-99",
		"yearsOfExperience": "3",
		"workPlace":         "Klinik Sehat",
	}, "degreeFiles", testutil.File{Name: "ijazah.pdf", Content: "pdf"})
	req := httptest.NewRequest(http.MethodPatch, "/api/doctors/profile/complete", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec, _ := testutil.Do(t, e, req, testutil.Token(t, user))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without license files, got %d %s", rec.Code, rec.Body.String())
	}
}
