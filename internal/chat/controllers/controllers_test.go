package controllers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/c14220110/telekonsul-backend/internal/chat/controllers"
	"github.com/c14220110/telekonsul-backend/internal/chat/models"
	"github.com/c14220110/telekonsul-backend/internal/chat/routes"
	"github.com/c14220110/telekonsul-backend/internal/chat/services"
	"github.com/c14220110/telekonsul-backend/internal/common/response"
	konsultasiModels "github.com/c14220110/telekonsul-backend/internal/konsultasi/models"
	penggunaModels "github.com/c14220110/telekonsul-backend/internal/pengguna/models"
	"github.com/c14220110/telekonsul-backend/internal/testutil"
	"github.com/c14220110/telekonsul-backend/internal/testutil/memstore"
	"github.com/c14220110/telekonsul-backend/pkg/storage"
	"github.com/c14220110/telekonsul-backend/pkg/utils"
)

type server struct {
	e       *echo.Echo
	stores  storage.Stores
	patient *penggunaModels.User
	doctor  *penggunaModels.User
	chat    *models.Chat
}

func newServer(t *testing.T) *server {
	t.Helper()
	t.Setenv("JWT_SECRET_KEY", testutil.JWTSecret)
	ctx := context.Background()
	stores := memstore.New().Stores()
	files := utils.NewFileStorage(t.TempDir(), 1<<20)

	e := echo.New()
	e.HTTPErrorHandler = response.HTTPErrorHandler
	svc := services.NewChatService(stores, files, testutil.NewPublisher(), &testutil.Notifier{}, "", zerolog.Nop())
	routes.RegisterChatRoutes(e.Group("/api"), controllers.NewChatController(svc))

	s := &server{e: e, stores: stores}
	s.patient = testutil.CreatePatient(t, stores, "ani")
	doctor, profile := testutil.CreateDoctor(t, stores, "budi", "general")
	s.doctor = doctor

	c := &konsultasiModels.ConsultationRequest{UserID: s.patient.ID, Title: "Flu", Specialty: "general", Status: konsultasiModels.StatusSearching}
	stores.Consultations.Create(ctx, c)
	if _, err := stores.Consultations.Claim(ctx, c.ID, profile.ID, time.Now()); err != nil {
		t.Fatalf("claim: %v", err)
	}
	s.chat = &models.Chat{ConsultationRequestID: c.ID, Participants: []int64{doctor.ID, s.patient.ID}}
	stores.Chats.Create(ctx, s.chat)
	return s
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestUploadSendAndReadOverHTTP(t *testing.T) {
	s := newServer(t)
	patientToken := testutil.Token(t, s.patient)
	doctorToken := testutil.Token(t, s.doctor)
	base := "/api/chats/" + s.chat.ID.Hex()

	body, contentType := testutil.MultipartBody(t, nil, "attachments", testutil.File{Name: "foto.png", Content: "png"})
	req := httptest.NewRequest(http.MethodPost, "/api/uploads/chat", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec, env := testutil.Do(t, s.e, req, patientToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 upload, got %d %s", rec.Code, rec.Body.String())
	}
	var uploaded []models.Attachment
	if err := json.Unmarshal(env.Data, &uploaded); err != nil || len(uploaded) != 1 || uploaded[0].Kind != models.KindImage {
		t.Fatalf("unexpected upload response %s (%v)", env.Data, err)
	}

	payload, _ := json.Marshal(map[string]interface{}{"content": "lihat foto", "attachments": uploaded})
	rec, _ = testutil.Do(t, s.e, jsonRequest(http.MethodPost, base+"/messages", string(payload)), patientToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 send, got %d %s", rec.Code, rec.Body.String())
	}

	rec, env = testutil.Do(t, s.e, httptest.NewRequest(http.MethodGet, "/api/chats/unread/count", nil), doctorToken)
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Data), `"unreadCount":1`) {
		t.Fatalf("expected unread 1, got %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = testutil.Do(t, s.e, httptest.NewRequest(http.MethodPut, base+"/last-opened", nil), doctorToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 last-opened, got %d", rec.Code)
	}

	rec, env = testutil.Do(t, s.e, httptest.NewRequest(http.MethodGet, base+"/messages?page=1&limit=30", nil), doctorToken)
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Data), "lihat foto") {
		t.Fatalf("expected message list, got %d %s", rec.Code, rec.Body.String())
	}

	rec, env = testutil.Do(t, s.e, httptest.NewRequest(http.MethodGet, base+"/media", nil), doctorToken)
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Data), uploaded[0].URL) {
		t.Fatalf("expected media item, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestChatAccessControl(t *testing.T) {
	s := newServer(t)
	stranger := testutil.CreatePatient(t, s.stores, "caca")
	base := "/api/chats/" + s.chat.ID.Hex()

	rec, _ := testutil.Do(t, s.e, httptest.NewRequest(http.MethodGet, base+"/messages", nil), testutil.Token(t, stranger))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non participant, got %d", rec.Code)
	}
	rec, _ = testutil.Do(t, s.e, httptest.NewRequest(http.MethodGet, "/api/chats/xyz/messages", nil), testutil.Token(t, s.patient))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid id, got %d", rec.Code)
	}
	rec, _ = testutil.Do(t, s.e, httptest.NewRequest(http.MethodGet, "/api/chats", nil), "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	rec, _ = testutil.Do(t, s.e, httptest.NewRequest(http.MethodGet, base+"/summary?format=pdf", nil), testutil.Token(t, s.patient))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without pdf font, got %d", rec.Code)
	}
}

func TestDeleteRoutes(t *testing.T) {
	s := newServer(t)
	patientToken := testutil.Token(t, s.patient)
	doctorToken := testutil.Token(t, s.doctor)
	base := "/api/chats/" + s.chat.ID.Hex()

	_, env := testutil.Do(t, s.e, jsonRequest(http.MethodPost, base+"/messages", `{"content":"salah kirim"}`), patientToken)
	var sent models.Message
	json.Unmarshal(env.Data, &sent)

	rec, _ := testutil.Do(t, s.e, httptest.NewRequest(http.MethodDelete, "/api/messages/"+sent.ID.Hex()+"/both", nil), doctorToken)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non sender, got %d", rec.Code)
	}
	rec, _ = testutil.Do(t, s.e, httptest.NewRequest(http.MethodDelete, "/api/messages/"+sent.ID.Hex()+"/both", nil), patientToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 delete for both, got %d %s", rec.Code, rec.Body.String())
	}
	rec, _ = testutil.Do(t, s.e, httptest.NewRequest(http.MethodDelete, "/api/messages/"+s.chat.ID.Hex()+"/all", nil), doctorToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 delete all, got %d", rec.Code)
	}
	rec, env = testutil.Do(t, s.e, httptest.NewRequest(http.MethodGet, base+"/messages", nil), doctorToken)
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Data), `"messages":[]`) {
		t.Fatalf("expected empty list for doctor, got %s", rec.Body.String())
	}
}
