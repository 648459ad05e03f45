package services

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	chatModels "github.com/c14220110/telekonsul-backend/internal/chat/models"
	"github.com/c14220110/telekonsul-backend/internal/common/apperror"
	"github.com/c14220110/telekonsul-backend/internal/konsultasi/models"
	"github.com/c14220110/telekonsul-backend/internal/testutil"
	"github.com/c14220110/telekonsul-backend/internal/testutil/memstore"
	"github.com/c14220110/telekonsul-backend/pkg/storage"
	"github.com/c14220110/telekonsul-backend/pkg/utils"
)

func expectCode(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, got nil", code)
	}
	if got := apperror.CodeOf(err); got != code {
		t.Fatalf("expected status %d, got %d (%v)", code, got, err)
	}
}

func newService(t *testing.T) (*KonsultasiService, storage.Stores, *utils.FileStorage) {
	t.Helper()
	stores := memstore.New().Stores()
	files := utils.NewFileStorage(t.TempDir(), 1<<20)
	return NewKonsultasiService(stores, files, zerolog.Nop()), stores, files
}

func exists(files *utils.FileStorage, publicPath string) bool {
	_, err := os.Stat(filepath.Join(files.Root, publicPath))
	return err == nil
}

func TestCreateValidatesAndStoresAttachments(t *testing.T) {
	svc, stores, files := newService(t)
	ctx := context.Background()
	patient := testutil.CreatePatient(t, stores, "ani")

	_, err := svc.Create(ctx, patient.ID, CreateInput{Title: "Batuk", Specialty: "general"}, nil)
	expectCode(t, err, http.StatusBadRequest)

	bad := testutil.MultipartFiles(t, "attachments", testutil.File{Name: "run.exe", Content: "MZ"})
	_, err = svc.Create(ctx, patient.ID, CreateInput{Title: "Batuk", Description: "3 hari", Specialty: "general"}, bad)
	expectCode(t, err, http.StatusBadRequest)

	attachments := testutil.MultipartFiles(t, "attachments",
		testutil.File{Name: "lab.pdf", Content: "pdf"},
		testutil.File{Name: "foto.JPG", Content: "jpg"},
	)
	c, err := svc.Create(ctx, patient.ID, CreateInput{Title: " Batuk ", Description: "3 hari", Specialty: "general"}, attachments)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Status != models.StatusSearching || c.Title != "Batuk" || len(c.Attachments) != 2 {
		t.Fatalf("unexpected consultation %+v", c)
	}
	for _, p := range c.Attachments {
		if filepath.Dir(p) != "/patientFiles" || !exists(files, p) {
			t.Fatalf("expected stored file under /patientFiles, got %s", p)
		}
	}
	if filepath.Ext(c.Attachments[1]) != ".jpg" {
		t.Fatalf("expected lowercase extension, got %s", c.Attachments[1])
	}
}

func TestListMinePaginatesAndFilters(t *testing.T) {
	svc, stores, _ := newService(t)
	ctx := context.Background()
	patient := testutil.CreatePatient(t, stores, "budi")
	other := testutil.CreatePatient(t, stores, "caca")

	var last *models.ConsultationRequest
	for i := 0; i < 3; i++ {
		last, _ = svc.Create(ctx, patient.ID, CreateInput{Title: "t", Description: "d", Specialty: "general"}, nil)
	}
	svc.Create(ctx, other.ID, CreateInput{Title: "x", Description: "d", Specialty: "general"}, nil)
	_, doctor := testutil.CreateDoctor(t, stores, "bayu", "general")
	stores.Consultations.Claim(ctx, last.ID, doctor.ID, last.CreatedAt)
	stores.Consultations.Complete(ctx, last.ID, doctor.ID, last.CreatedAt)

	result, err := svc.ListMine(ctx, patient.ID, "", 1, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.Pagination.TotalItems != 3 || result.Pagination.TotalPages != 2 || len(result.Consultations) != 2 {
		t.Fatalf("unexpected page %+v", result.Pagination)
	}
	if result.Consultations[0].ID != last.ID {
		t.Fatalf("expected newest first")
	}

	result, err = svc.ListMine(ctx, patient.ID, models.StatusCompleted, 1, 10)
	if err != nil || len(result.Consultations) != 1 {
		t.Fatalf("expected one completed consultation, got %+v err=%v", result, err)
	}

	_, err = svc.ListMine(ctx, patient.ID, "cancelled", 1, 10)
	expectCode(t, err, http.StatusBadRequest)

	empty, _ := svc.ListMine(ctx, 999, "", 1, 10)
	if empty.Consultations == nil {
		t.Fatalf("expected empty slice, got nil")
	}
}

func TestGetIncludesChatAndDoctor(t *testing.T) {
	svc, stores, _ := newService(t)
	ctx := context.Background()
	patient := testutil.CreatePatient(t, stores, "dani")
	stranger := testutil.CreatePatient(t, stores, "eka")
	doctorUser, doctor := testutil.CreateDoctor(t, stores, "fina", "general")

	c, _ := svc.Create(ctx, patient.ID, CreateInput{Title: "t", Description: "d", Specialty: "general"}, nil)

	_, err := svc.Get(ctx, stranger.ID, c.ID.Hex())
	expectCode(t, err, http.StatusForbidden)
	_, err = svc.Get(ctx, patient.ID, "not-an-id")
	expectCode(t, err, http.StatusBadRequest)
	_, err = svc.Get(ctx, patient.ID, "64b7f0c2a1b2c3d4e5f60718")
	expectCode(t, err, http.StatusNotFound)

	view, err := svc.Get(ctx, patient.ID, c.ID.Hex())
	if err != nil || view.ChatID != "" || view.Doctor != nil {
		t.Fatalf("expected bare view, got %+v err=%v", view, err)
	}

	if _, err := stores.Consultations.Claim(ctx, c.ID, doctor.ID, c.CreatedAt); err != nil {
		t.Fatalf("claim: %v", err)
	}
	chat := &chatModels.Chat{ConsultationRequestID: c.ID, Participants: []int64{doctorUser.ID, patient.ID}}
	stores.Chats.Create(ctx, chat)

	view, err = svc.Get(ctx, patient.ID, c.ID.Hex())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.ChatID != chat.ID.Hex() || view.Doctor == nil || view.Doctor.Specialty != "general" {
		t.Fatalf("expected chat and doctor, got %+v", view)
	}
}

func TestUpdateOnlyWhileSearching(t *testing.T) {
	svc, stores, files := newService(t)
	ctx := context.Background()
	patient := testutil.CreatePatient(t, stores, "gilang")
	_, doctor := testutil.CreateDoctor(t, stores, "hana", "general")

	first := testutil.MultipartFiles(t, "attachments", testutil.File{Name: "a.pdf", Content: "a"})
	c, _ := svc.Create(ctx, patient.ID, CreateInput{Title: "t", Description: "d", Specialty: "general"}, first)
	oldPath := c.Attachments[0]

	empty := ""
	_, err := svc.Update(ctx, patient.ID, c.ID.Hex(), UpdateInput{Title: &empty}, nil)
	expectCode(t, err, http.StatusBadRequest)

	title := "Sakit kepala"
	second := testutil.MultipartFiles(t, "attachments", testutil.File{Name: "b.png", Content: "b"})
	updated, err := svc.Update(ctx, patient.ID, c.ID.Hex(), UpdateInput{Title: &title}, second)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != title || updated.Description != "d" || len(updated.Attachments) != 1 || updated.Attachments[0] == oldPath {
		t.Fatalf("unexpected update %+v", updated)
	}
	if exists(files, oldPath) {
		t.Fatalf("expected replaced attachment removed")
	}

	stores.Consultations.Claim(ctx, c.ID, doctor.ID, c.CreatedAt)
	_, err = svc.Update(ctx, patient.ID, c.ID.Hex(), UpdateInput{Title: &title}, nil)
	expectCode(t, err, http.StatusBadRequest)
}

func TestDeleteRules(t *testing.T) {
	svc, stores, files := newService(t)
	ctx := context.Background()
	patient := testutil.CreatePatient(t, stores, "indra")
	_, doctor := testutil.CreateDoctor(t, stores, "joko", "general")

	att := testutil.MultipartFiles(t, "attachments", testutil.File{Name: "a.pdf", Content: "a"})
	c, _ := svc.Create(ctx, patient.ID, CreateInput{Title: "t", Description: "d", Specialty: "general"}, att)

	stores.Consultations.Claim(ctx, c.ID, doctor.ID, c.CreatedAt)
	expectCode(t, svc.Delete(ctx, patient.ID, c.ID.Hex()), http.StatusBadRequest)

	stores.Consultations.Complete(ctx, c.ID, doctor.ID, c.CreatedAt)
	if err := svc.Delete(ctx, patient.ID, c.ID.Hex()); err != nil {
		t.Fatalf("delete completed: %v", err)
	}
	if exists(files, c.Attachments[0]) {
		t.Fatalf("expected attachment removed with consultation")
	}
	expectCode(t, svc.Delete(ctx, patient.ID, c.ID.Hex()), http.StatusNotFound)
}

func TestRepublish(t *testing.T) {
	svc, stores, files := newService(t)
	ctx := context.Background()
	patient := testutil.CreatePatient(t, stores, "kiki")
	stranger := testutil.CreatePatient(t, stores, "lala")
	_, doctor := testutil.CreateDoctor(t, stores, "mamat", "general")

	att := testutil.MultipartFiles(t, "attachments", testutil.File{Name: "a.pdf", Content: "a"})
	source, _ := svc.Create(ctx, patient.ID, CreateInput{Title: "t", Description: "d", Specialty: "general"}, att)

	_, err := svc.Republish(ctx, patient.ID, source.ID.Hex())
	expectCode(t, err, http.StatusBadRequest)

	stores.Consultations.Claim(ctx, source.ID, doctor.ID, source.CreatedAt)
	_, err = svc.Republish(ctx, stranger.ID, source.ID.Hex())
	expectCode(t, err, http.StatusForbidden)

	republished, err := svc.Republish(ctx, patient.ID, source.ID.Hex())
	if err != nil {
		t.Fatalf("republish: %v", err)
	}
	if republished.Status != models.StatusSearching || republished.RepublishedFromID == nil || *republished.RepublishedFromID != source.ID {
		t.Fatalf("unexpected republication %+v", republished)
	}
	if republished.AssignedDoctorID != nil || republished.Title != source.Title || len(republished.Attachments) != 1 {
		t.Fatalf("expected fresh copy, got %+v", republished)
	}

	_, err = svc.Republish(ctx, patient.ID, source.ID.Hex())
	expectCode(t, err, http.StatusConflict)

	// lampiran dipakai bersama, jadi menghapus salinan tidak menghapus file
	if err := svc.Delete(ctx, patient.ID, republished.ID.Hex()); err != nil {
		t.Fatalf("delete copy: %v", err)
	}
	if !exists(files, source.Attachments[0]) {
		t.Fatalf("expected shared attachment kept")
	}
	if _, err := svc.Republish(ctx, patient.ID, source.ID.Hex()); err != nil {
		t.Fatalf("expected republish allowed after copy removed: %v", err)
	}
}

// claimAfterRead menjalankan klaim dokter tepat setelah pembacaan pertama,
// meniru dokter yang mengambil konsultasi saat pasien sedang mengedit.
type claimAfterRead struct {
	storage.ConsultationStore
	once  sync.Once
	claim func()
}

func (c *claimAfterRead) FindByID(ctx context.Context, id primitive.ObjectID) (*models.ConsultationRequest, error) {
	found, err := c.ConsultationStore.FindByID(ctx, id)
	c.once.Do(c.claim)
	return found, err
}

func racingService(t *testing.T, stores storage.Stores, files *utils.FileStorage, id primitive.ObjectID, doctorID int64) *KonsultasiService {
	t.Helper()
	racing := stores
	racing.Consultations = &claimAfterRead{
		ConsultationStore: stores.Consultations,
		claim: func() {
			if _, err := stores.Consultations.Claim(context.Background(), id, doctorID, time.Now().UTC()); err != nil {
				t.Errorf("claim: %v", err)
			}
		},
	}
	return NewKonsultasiService(racing, files, zerolog.Nop())
}

func TestUpdateDoesNotUndoConcurrentClaim(t *testing.T) {
	svc, stores, files := newService(t)
	ctx := context.Background()
	patient := testutil.CreatePatient(t, stores, "nanda")
	_, doctor := testutil.CreateDoctor(t, stores, "oki", "general")

	att := testutil.MultipartFiles(t, "attachments", testutil.File{Name: "a.pdf", Content: "a"})
	c, _ := svc.Create(ctx, patient.ID, CreateInput{Title: "t", Description: "d", Specialty: "general"}, att)

	racing := racingService(t, stores, files, c.ID, doctor.ID)
	title := "Judul baru"
	replacement := testutil.MultipartFiles(t, "attachments", testutil.File{Name: "b.png", Content: "b"})
	_, err := racing.Update(ctx, patient.ID, c.ID.Hex(), UpdateInput{Title: &title}, replacement)
	expectCode(t, err, http.StatusBadRequest)

	stored, err := stores.Consultations.FindByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Status != models.StatusInProgress || !stored.AssignedTo(doctor.ID) || stored.StartedAt == nil {
		t.Fatalf("expected claim kept, got status=%s assigned=%v startedAt=%v", stored.Status, stored.AssignedDoctorID, stored.StartedAt)
	}
	if stored.Title != "t" || len(stored.Attachments) != 1 || stored.Attachments[0] != c.Attachments[0] {
		t.Fatalf("expected content unchanged, got %+v", stored)
	}
	if !exists(files, c.Attachments[0]) {
		t.Fatalf("expected original attachment kept")
	}
	entries, err := os.ReadDir(filepath.Join(files.Root, utils.DirPatientFiles))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected rejected upload removed, got %d files", len(entries))
	}
}

func TestDeleteDoesNotRemoveConcurrentlyClaimed(t *testing.T) {
	svc, stores, files := newService(t)
	ctx := context.Background()
	patient := testutil.CreatePatient(t, stores, "putri")
	_, doctor := testutil.CreateDoctor(t, stores, "raka", "general")

	att := testutil.MultipartFiles(t, "attachments", testutil.File{Name: "a.pdf", Content: "a"})
	c, _ := svc.Create(ctx, patient.ID, CreateInput{Title: "t", Description: "d", Specialty: "general"}, att)

	racing := racingService(t, stores, files, c.ID, doctor.ID)
	expectCode(t, racing.Delete(ctx, patient.ID, c.ID.Hex()), http.StatusBadRequest)

	stored, err := stores.Consultations.FindByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("expected consultation kept, got %v", err)
	}
	if !stored.AssignedTo(doctor.ID) {
		t.Fatalf("expected claim kept, got %+v", stored)
	}
	if !exists(files, c.Attachments[0]) {
		t.Fatalf("expected attachment kept")
	}
}

// staleCount selalu melaporkan belum ada republish, seperti dua request
// yang sama-sama lolos pengecekan sebelum salah satunya menyimpan.
type staleCount struct {
	storage.ConsultationStore
}

func (staleCount) Count(context.Context, models.ConsultationQuery) (int64, error) {
	return 0, nil
}

func TestRepublishConflictWhenCheckIsStale(t *testing.T) {
	svc, stores, files := newService(t)
	ctx := context.Background()
	patient := testutil.CreatePatient(t, stores, "sari")
	_, doctor := testutil.CreateDoctor(t, stores, "tono", "general")

	source, _ := svc.Create(ctx, patient.ID, CreateInput{Title: "t", Description: "d", Specialty: "general"}, nil)
	stores.Consultations.Claim(ctx, source.ID, doctor.ID, source.CreatedAt)

	stale := stores
	stale.Consultations = staleCount{stores.Consultations}
	racing := NewKonsultasiService(stale, files, zerolog.Nop())

	if _, err := racing.Republish(ctx, patient.ID, source.ID.Hex()); err != nil {
		t.Fatalf("first republish: %v", err)
	}
	_, err := racing.Republish(ctx, patient.ID, source.ID.Hex())
	expectCode(t, err, http.StatusConflict)

	count, _ := stores.Consultations.Count(ctx, models.ConsultationQuery{RepublishedFrom: &source.ID})
	if count != 1 {
		t.Fatalf("expected exactly one republication, got %d", count)
	}
}
