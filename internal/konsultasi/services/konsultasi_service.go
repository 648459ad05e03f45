package services

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/c14220110/telekonsul-backend/internal/common/apperror"
	"github.com/c14220110/telekonsul-backend/internal/konsultasi/models"
	penggunaModels "github.com/c14220110/telekonsul-backend/internal/pengguna/models"
	"github.com/c14220110/telekonsul-backend/pkg/storage"
	"github.com/c14220110/telekonsul-backend/pkg/utils"
)

const DefaultListLimit = 10

var (
	errNotOwner     = apperror.Forbidden("Access denied. Not your consultation.")
	errNotSearching = apperror.BadRequest("Consultation can only be updated while searching for a doctor")
	errInProgress   = apperror.BadRequest("Cannot delete a consultation that is in progress")
	errRepublished  = apperror.Conflict("Consultation has already been republished")
)

// KonsultasiService menangani permintaan konsultasi dari sisi pasien.
type KonsultasiService struct {
	stores storage.Stores
	files  *utils.FileStorage
	log    zerolog.Logger
}

func NewKonsultasiService(stores storage.Stores, files *utils.FileStorage, log zerolog.Logger) *KonsultasiService {
	return &KonsultasiService{stores: stores, files: files, log: log}
}

type CreateInput struct {
	Title       string
	Description string
	Specialty   string
}

type UpdateInput struct {
	Title       *string
	Description *string
	Specialty   *string
}

// ConsultationView adalah konsultasi beserta chat dan dokter yang menanganinya.
type ConsultationView struct {
	*models.ConsultationRequest
	ChatID string                        `json:"chatId,omitempty"`
	Doctor *penggunaModels.PublicProfile `json:"doctor,omitempty"`
}

type ListResult struct {
	Consultations []models.ConsultationRequest `json:"consultations"`
	Pagination    utils.Pagination             `json:"pagination"`
}

func (s *KonsultasiService) Create(ctx context.Context, userID int64, in CreateInput, attachments []*multipart.FileHeader) (*models.ConsultationRequest, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Specialty = strings.TrimSpace(in.Specialty)
	if in.Title == "" || in.Description == "" || in.Specialty == "" {
		return nil, apperror.BadRequest("title, description, and specialty are required")
	}

	saved, err := s.files.SaveAll(attachments, utils.DirPatientFiles)
	if err != nil {
		return nil, apperror.FromUpload(err)
	}
	consultation := &models.ConsultationRequest{
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Specialty:   in.Specialty,
		Attachments: utils.Paths(saved),
		Status:      models.StatusSearching,
	}
	if err := s.stores.Consultations.Create(ctx, consultation); err != nil {
		s.files.RemoveAll(consultation.Attachments)
		return nil, apperror.Internal(err)
	}
	s.log.Info().Str("consultation_id", consultation.ID.Hex()).Int64("user_id", userID).Msg("consultation created")
	return consultation, nil
}

// ListMine mengembalikan konsultasi milik pasien, terbaru lebih dulu.
func (s *KonsultasiService) ListMine(ctx context.Context, userID int64, status string, page, limit int) (*ListResult, error) {
	if status != "" && !models.ValidStatus(status) {
		return nil, apperror.BadRequest("Invalid status filter")
	}
	q := models.ConsultationQuery{UserID: &userID, Status: status}
	total, err := s.stores.Consultations.Count(ctx, q)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	q.Skip, q.Limit = utils.Skip(page, limit), int64(limit)
	list, err := s.stores.Consultations.List(ctx, q)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if list == nil {
		list = []models.ConsultationRequest{}
	}
	return &ListResult{Consultations: list, Pagination: utils.NewPagination(page, limit, total)}, nil
}

func (s *KonsultasiService) owned(ctx context.Context, userID int64, idRaw string) (*models.ConsultationRequest, error) {
	id, err := apperror.ParseObjectID(idRaw, "consultation")
	if err != nil {
		return nil, err
	}
	consultation, err := s.stores.Consultations.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.FromStore(err, "Consultation not found")
	}
	if consultation.UserID != userID {
		return nil, errNotOwner
	}
	return consultation, nil
}

func (s *KonsultasiService) Get(ctx context.Context, userID int64, idRaw string) (*ConsultationView, error) {
	consultation, err := s.owned(ctx, userID, idRaw)
	if err != nil {
		return nil, err
	}
	view := &ConsultationView{ConsultationRequest: consultation}

	chat, err := s.stores.Chats.FindByConsultation(ctx, consultation.ID)
	switch {
	case err == nil:
		view.ChatID = chat.ID.Hex()
	case !errors.Is(err, storage.ErrNotFound):
		return nil, apperror.Internal(err)
	}

	if consultation.AssignedDoctorID != nil {
		doctor, err := s.stores.Doctors.FindByID(ctx, *consultation.AssignedDoctorID)
		if err == nil {
			if u, uerr := s.stores.Users.FindByID(ctx, doctor.UserID); uerr == nil {
				p := u.Public()
				p.Specialty = doctor.Specialty
				view.Doctor = &p
			}
		} else if !errors.Is(err, storage.ErrNotFound) {
			return nil, apperror.Internal(err)
		}
	}
	return view, nil
}

// Update hanya boleh selama konsultasi masih searching. Lampiran baru
// menggantikan seluruh lampiran lama. Status dicek ulang oleh store secara
// atomik agar tidak menimpa klaim dokter yang terjadi setelah pembacaan.
func (s *KonsultasiService) Update(ctx context.Context, userID int64, idRaw string, in UpdateInput, attachments []*multipart.FileHeader) (*models.ConsultationRequest, error) {
	consultation, err := s.owned(ctx, userID, idRaw)
	if err != nil {
		return nil, err
	}
	if consultation.Status != models.StatusSearching {
		return nil, errNotSearching
	}

	var edit models.ConsultationEdit
	fields := []struct {
		value *string
		dst   **string
		name  string
	}{
		{in.Title, &edit.Title, "title"},
		{in.Description, &edit.Description, "description"},
		{in.Specialty, &edit.Specialty, "specialty"},
	}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		v := strings.TrimSpace(*f.value)
		if v == "" {
			return nil, apperror.BadRequest(f.name + " cannot be empty")
		}
		*f.dst = &v
	}

	saved, err := s.files.SaveAll(attachments, utils.DirPatientFiles)
	if err != nil {
		return nil, apperror.FromUpload(err)
	}
	if len(saved) > 0 {
		edit.Attachments = utils.Paths(saved)
	}

	updated, err := s.stores.Consultations.UpdateSearching(ctx, consultation.ID, userID, edit)
	if err != nil {
		s.files.RemoveAll(utils.Paths(saved))
		return nil, s.lostRace(ctx, consultation.ID, err, errNotSearching)
	}
	if len(saved) > 0 {
		s.removeFiles(ctx, updated, consultation.Attachments)
	}
	return updated, nil
}

func (s *KonsultasiService) Delete(ctx context.Context, userID int64, idRaw string) error {
	consultation, err := s.owned(ctx, userID, idRaw)
	if err != nil {
		return err
	}
	if consultation.Status == models.StatusInProgress {
		return errInProgress
	}
	if err := s.stores.Consultations.DeleteUnlessInProgress(ctx, consultation.ID, userID); err != nil {
		return s.lostRace(ctx, consultation.ID, err, errInProgress)
	}
	s.removeFiles(ctx, consultation, consultation.Attachments)
	return nil
}

// lostRace menerjemahkan kegagalan update bersyarat: dokumen yang sudah
// hilang menjadi 404, selain itu statusnya berubah sejak dibaca.
func (s *KonsultasiService) lostRace(ctx context.Context, id primitive.ObjectID, err error, changed error) error {
	if !errors.Is(err, storage.ErrNotFound) {
		return apperror.Internal(err)
	}
	if _, err := s.stores.Consultations.FindByID(ctx, id); err != nil {
		return apperror.FromStore(err, "Consultation not found")
	}
	return changed
}

// removeFiles menghapus lampiran kecuali masih dipakai bersama oleh
// konsultasi asal atau hasil republish-nya.
func (s *KonsultasiService) removeFiles(ctx context.Context, c *models.ConsultationRequest, paths []string) {
	if len(paths) == 0 {
		return
	}
	if c.RepublishedFromID != nil {
		return
	}
	copies, err := s.stores.Consultations.Count(ctx, models.ConsultationQuery{RepublishedFrom: &c.ID})
	if err != nil {
		s.log.Warn().Err(err).Str("consultation_id", c.ID.Hex()).Msg("skip attachment cleanup")
		return
	}
	if copies == 0 {
		s.files.RemoveAll(paths)
	}
}

// Republish membuat salinan searching dari konsultasi yang sudah diambil
// atau selesai, agar dokter lain bisa menanganinya.
func (s *KonsultasiService) Republish(ctx context.Context, userID int64, idRaw string) (*models.ConsultationRequest, error) {
	source, err := s.owned(ctx, userID, idRaw)
	if err != nil {
		return nil, err
	}
	if source.Status == models.StatusSearching {
		return nil, apperror.BadRequest("Consultation is still searching for a doctor")
	}
	pending, err := s.stores.Consultations.Count(ctx, models.ConsultationQuery{
		RepublishedFrom: &source.ID,
		Status:          models.StatusSearching,
	})
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if pending > 0 {
		return nil, errRepublished
	}

	sourceID := source.ID
	republished := &models.ConsultationRequest{
		UserID:            userID,
		Title:             source.Title,
		Description:       source.Description,
		Specialty:         source.Specialty,
		Attachments:       append([]string{}, source.Attachments...),
		Status:            models.StatusSearching,
		RepublishedFromID: &sourceID,
	}
	if err := s.stores.Consultations.Create(ctx, republished); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, errRepublished
		}
		return nil, apperror.Internal(err)
	}
	return republished, nil
}
