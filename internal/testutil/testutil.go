// Package testutil berisi helper bersama untuk test service dan controller.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	dokterModels "github.com/c14220110/telekonsul-backend/internal/dokter/models"
	penggunaModels "github.com/c14220110/telekonsul-backend/internal/pengguna/models"
	"github.com/c14220110/telekonsul-backend/pkg/storage"
	"github.com/c14220110/telekonsul-backend/pkg/utils"
)

const JWTSecret = "test-secret"

// File adalah satu file untuk MultipartFiles.
type File struct {
	Name    string
	Content string
}

// MultipartFiles membangun FileHeader asli seperti hasil parsing request.
func MultipartFiles(t *testing.T, field string, files ...File) []*multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := w.CreateFormFile(field, f.Name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write([]byte(f.Content))
	}
	w.Close()
	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	t.Cleanup(func() { form.RemoveAll() })
	return form.File[field]
}

// MultipartBody membangun body multipart berisi field teks dan file.
func MultipartBody(t *testing.T, fields map[string]string, fileField string, files ...File) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		w.WriteField(k, v)
	}
	for _, f := range files {
		part, err := w.CreateFormFile(fileField, f.Name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write([]byte(f.Content))
	}
	w.Close()
	return body, w.FormDataContentType()
}

func CreatePatient(t *testing.T, stores storage.Stores, first string) *penggunaModels.User {
	t.Helper()
	birth := time.Date(1995, 6, 15, 0, 0, 0, 0, time.UTC)
	u := &penggunaModels.User{
		FirstName: first,
		LastName:  "Patient",
		Email:     first + "@patient.test",
		Password:  "x",
		Role:      penggunaModels.RolePatient,
		Gender:    "female",
		BirthDate: &birth,
		City:      "Surabaya",
	}
	if err := stores.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("create patient: %v", err)
	}
	return u
}

// CreateDoctor membuat user dokter. Jika specialty kosong profil dokter tidak dibuat.
func CreateDoctor(t *testing.T, stores storage.Stores, first, specialty string) (*penggunaModels.User, *dokterModels.Doctor) {
	t.Helper()
	u := &penggunaModels.User{
		FirstName: first,
		LastName:  "Doctor",
		Email:     first + "@doctor.test",
		Password:  "x",
		Role:      penggunaModels.RoleDoctor,
	}
	if err := stores.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("create doctor user: %v", err)
	}
	if specialty == "" {
		return u, nil
	}
	d := &dokterModels.Doctor{
		UserID:            u.ID,
		Specialty:         specialty,
		LicenseNumber:     "STR-" + first,
		YearsOfExperience: 5,
		WorkPlace:         "RS Test",
		DegreeFiles:       []string{"/doctorFiles/degree.pdf"},
		LicenseFiles:      []string{"/doctorFiles/license.pdf"},
	}
	if err := stores.Doctors.Save(context.Background(), d); err != nil {
		t.Fatalf("create doctor profile: %v", err)
	}
	return u, d
}

// Token membuat JWT untuk user; JWT_SECRET_KEY di-set untuk durasi test.
func Token(t *testing.T, u *penggunaModels.User) string {
	t.Helper()
	t.Setenv("JWT_SECRET_KEY", JWTSecret)
	token, err := utils.GenerateJWTToken(u.ID, u.Role, u.Email, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

// Envelope adalah bentuk response untuk decode di test.
type Envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Do menjalankan request terhadap e dan men-decode envelope.
func Do(t *testing.T, e *echo.Echo, req *http.Request, token string) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env Envelope
	if rec.Header().Get(echo.HeaderContentType) != "" && len(rec.Body.Bytes()) > 0 && rec.Body.Bytes()[0] == '{' {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
		}
	}
	return rec, env
}

// Event adalah satu event yang dicatat Publisher.
type Event struct {
	UserIDs []int64
	Type    string
	Data    interface{}
}

// Publisher mencatat event real-time dan mensimulasikan status online.
type Publisher struct {
	mu     sync.Mutex
	Events []Event
	Online map[int64]bool
}

func NewPublisher() *Publisher {
	return &Publisher{Online: map[int64]bool{}}
}

func (p *Publisher) SendToUsers(userIDs []int64, eventType string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, Event{UserIDs: append([]int64(nil), userIDs...), Type: eventType, Data: data})
	return nil
}

func (p *Publisher) IsOnline(userID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Online[userID]
}

// EventsOfType mengembalikan event dengan tipe tertentu.
func (p *Publisher) EventsOfType(eventType string) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Event
	for _, ev := range p.Events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}
