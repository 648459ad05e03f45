package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	chatModels "github.com/c14220110/telekonsul-backend/internal/chat/models"
	"github.com/c14220110/telekonsul-backend/internal/common/apperror"
	"github.com/c14220110/telekonsul-backend/internal/dokter/models"
	konsultasiModels "github.com/c14220110/telekonsul-backend/internal/konsultasi/models"
	"github.com/c14220110/telekonsul-backend/internal/notifikasi"
	penggunaModels "github.com/c14220110/telekonsul-backend/internal/pengguna/models"
	"github.com/c14220110/telekonsul-backend/pkg/storage"
	"github.com/c14220110/telekonsul-backend/pkg/utils"
	"github.com/c14220110/telekonsul-backend/ws"
)

const (
	DefaultAvailableLimit = 15
	DefaultStatsLimit     = 20

	EventConsultationStarted   = "consultation_started"
	EventConsultationCompleted = "consultation_completed"
)

var errNotDoctor = apperror.Forbidden("Access denied. Not a doctor.")

// KonsultasiDokterService menjalankan alur konsultasi dari sisi dokter:
// melihat antrean, mengambil konsultasi, dan menyelesaikannya.
type KonsultasiDokterService struct {
	stores   storage.Stores
	realtime ws.Publisher
	notifier notifikasi.Notifier
	log      zerolog.Logger
	now      func() time.Time
}

func NewKonsultasiDokterService(stores storage.Stores, realtime ws.Publisher, notifier notifikasi.Notifier, log zerolog.Logger) *KonsultasiDokterService {
	return &KonsultasiDokterService{
		stores:   stores,
		realtime: realtime,
		notifier: notifier,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ConsultationItem adalah konsultasi beserta data publik pasiennya.
type ConsultationItem struct {
	konsultasiModels.ConsultationRequest
	Patient *penggunaModels.PublicProfile `json:"patient"`
}

type AvailableResult struct {
	Consultations []ConsultationItem `json:"consultations"`
	Pagination    utils.Pagination   `json:"pagination"`
}

func (s *KonsultasiDokterService) doctorFor(ctx context.Context, userID int64) (*models.Doctor, error) {
	doctor, err := s.stores.Doctors.FindByUserID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, errNotDoctor
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return doctor, nil
}

// availableQuery memfilter konsultasi searching sesuai spesialisasi, tanpa
// konsultasi yang pernah ditangani dokter ini maupun hasil republish-nya.
func (s *KonsultasiDokterService) availableQuery(ctx context.Context, doctor *models.Doctor) (konsultasiModels.ConsultationQuery, error) {
	q := konsultasiModels.ConsultationQuery{
		Specialty: doctor.Specialty,
		Status:    konsultasiModels.StatusSearching,
	}
	assigned, err := s.stores.Consultations.IDsAssignedTo(ctx, doctor.ID)
	if err != nil {
		return q, err
	}
	republished, err := s.stores.Consultations.IDsRepublishedFrom(ctx, assigned)
	if err != nil {
		return q, err
	}
	q.ExcludeIDs = append(assigned, republished...)
	return q, nil
}

func (s *KonsultasiDokterService) Available(ctx context.Context, userID int64, page, limit int) (*AvailableResult, error) {
	doctor, err := s.doctorFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	q, err := s.availableQuery(ctx, doctor)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	total, err := s.stores.Consultations.Count(ctx, q)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	q.Skip, q.Limit = utils.Skip(page, limit), int64(limit)
	list, err := s.stores.Consultations.List(ctx, q)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	items, err := s.withPatients(ctx, list)
	if err != nil {
		return nil, err
	}
	return &AvailableResult{Consultations: items, Pagination: utils.NewPagination(page, limit, total)}, nil
}

func (s *KonsultasiDokterService) Latest(ctx context.Context, userID int64) (*ConsultationItem, error) {
	doctor, err := s.doctorFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	q, err := s.availableQuery(ctx, doctor)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	q.Limit = 1
	list, err := s.stores.Consultations.List(ctx, q)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if len(list) == 0 {
		return nil, apperror.NotFound("No available consultation found")
	}
	items, err := s.withPatients(ctx, list)
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (s *KonsultasiDokterService) withPatients(ctx context.Context, list []konsultasiModels.ConsultationRequest) ([]ConsultationItem, error) {
	ids := make([]int64, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.UserID)
	}
	users, err := s.stores.Users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	items := make([]ConsultationItem, 0, len(list))
	for _, c := range list {
		item := ConsultationItem{ConsultationRequest: c}
		if u, ok := users[c.UserID]; ok {
			p := u.Public()
			item.Patient = &p
		}
		items = append(items, item)
	}
	return items, nil
}

type ConsultationStats struct {
	TotalAssigned   int64                                  `json:"totalAssigned"`
	InProgressCount int64                                  `json:"inProgressCount"`
	CompletedCount  int64                                  `json:"completedCount"`
	Searching       []konsultasiModels.ConsultationRequest `json:"searching"`
	InProgress      []konsultasiModels.ConsultationRequest `json:"inProgress"`
	Completed       []konsultasiModels.ConsultationRequest `json:"completed"`
}

// Stats menjalankan semua query dashboard secara paralel.
func (s *KonsultasiDokterService) Stats(ctx context.Context, userID int64, limit int) (*ConsultationStats, error) {
	doctor, err := s.doctorFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	lim := int64(limit)
	stats := &ConsultationStats{}
	mine := func(status string) konsultasiModels.ConsultationQuery {
		return konsultasiModels.ConsultationQuery{AssignedDoctorID: &doctor.ID, Status: status}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.TotalAssigned, err = s.stores.Consultations.Count(gctx, mine(""))
		return err
	})
	g.Go(func() (err error) {
		stats.InProgressCount, err = s.stores.Consultations.Count(gctx, mine(konsultasiModels.StatusInProgress))
		return err
	})
	g.Go(func() (err error) {
		stats.CompletedCount, err = s.stores.Consultations.Count(gctx, mine(konsultasiModels.StatusCompleted))
		return err
	})
	g.Go(func() (err error) {
		stats.Searching, err = s.stores.Consultations.List(gctx, konsultasiModels.ConsultationQuery{
			Specialty: doctor.Specialty,
			Status:    konsultasiModels.StatusSearching,
			Limit:     lim,
		})
		return err
	})
	g.Go(func() (err error) {
		q := mine(konsultasiModels.StatusInProgress)
		q.SortByUpdated, q.Limit = true, lim
		stats.InProgress, err = s.stores.Consultations.List(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		q := mine(konsultasiModels.StatusCompleted)
		q.SortByUpdated, q.Limit = true, lim
		stats.Completed, err = s.stores.Consultations.List(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperror.Internal(err)
	}
	return stats, nil
}

type PatientInfo struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Gender       string `json:"gender"`
	Age          *int   `json:"age"`
	City         string `json:"city"`
	ProfileImage string `json:"profileImage"`
}

type ConsultationDetails struct {
	Consultation     *konsultasiModels.ConsultationRequest `json:"consultation"`
	Patient          *PatientInfo                          `json:"patient"`
	ChatID           string                                `json:"chatId,omitempty"`
	IsDoctorVerified bool                                  `json:"isDoctorVerified"`
}

func (s *KonsultasiDokterService) Details(ctx context.Context, userID int64, idRaw string) (*ConsultationDetails, error) {
	doctor, err := s.doctorFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	id, err := apperror.ParseObjectID(idRaw, "consultation")
	if err != nil {
		return nil, err
	}
	consultation, err := s.stores.Consultations.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.FromStore(err, "Consultation not found")
	}
	if consultation.AssignedDoctorID != nil && !consultation.AssignedTo(doctor.ID) {
		return nil, apperror.Forbidden("Access denied. Consultation assigned to another doctor.")
	}
	if consultation.Specialty != doctor.Specialty && !consultation.AssignedTo(doctor.ID) {
		return nil, apperror.Forbidden("Access denied. Specialty mismatch.")
	}

	details := &ConsultationDetails{Consultation: consultation, IsDoctorVerified: doctor.VerifiedByAdmin}
	patient, err := s.stores.Users.FindByID(ctx, consultation.UserID)
	switch {
	case err == nil:
		info := &PatientInfo{
			ID:           patient.ID,
			Name:         patient.FullName(),
			Gender:       patient.Gender,
			City:         patient.City,
			ProfileImage: patient.ProfileImage,
		}
		if patient.BirthDate != nil {
			age := utils.AgeAt(*patient.BirthDate, s.now())
			info.Age = &age
		}
		details.Patient = info
	case !errors.Is(err, storage.ErrNotFound):
		return nil, apperror.Internal(err)
	}

	if chat, err := s.stores.Chats.FindByConsultation(ctx, id); err == nil {
		details.ChatID = chat.ID.Hex()
	}
	return details, nil
}

type StartResult struct {
	ConsultationID string `json:"consultationId"`
	ChatID         string `json:"chatId"`
	// Created false berarti chat sudah ada sebelumnya.
	Created bool `json:"-"`
}

// Start mengambil konsultasi dan membuat chat dokter-pasien. Perubahan
// status searching -> in_progress dilakukan atomik di storage sehingga
// hanya satu dokter yang bisa menang.
func (s *KonsultasiDokterService) Start(ctx context.Context, userID int64, idRaw string) (*StartResult, error) {
	id, err := apperror.ParseObjectID(idRaw, "consultation")
	if err != nil {
		return nil, err
	}
	doctor, err := s.doctorFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	consultation, err := s.stores.Consultations.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.FromStore(err, "Consultation not found")
	}
	if consultation.Status == konsultasiModels.StatusCompleted {
		return nil, apperror.BadRequest("Consultation already completed")
	}
	takenByOther := apperror.BadRequest("Consultation already in progress by another doctor")
	if consultation.Status == konsultasiModels.StatusInProgress && !consultation.AssignedTo(doctor.ID) {
		return nil, takenByOther
	}
	// dokter yang sudah ditugaskan tetap boleh lanjut walau spesialisasinya berubah
	if consultation.Specialty != doctor.Specialty && !consultation.AssignedTo(doctor.ID) {
		return nil, apperror.Forbidden("Access denied. Specialty mismatch.")
	}
	if _, err := s.stores.Users.FindByID(ctx, consultation.UserID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperror.BadRequest("Patient not found for this consultation")
		}
		return nil, apperror.Internal(err)
	}

	if chat, err := s.stores.Chats.FindByConsultation(ctx, id); err == nil {
		if !chat.HasParticipant(userID) {
			return nil, takenByOther
		}
		return &StartResult{ConsultationID: id.Hex(), ChatID: chat.ID.Hex()}, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, apperror.Internal(err)
	}

	if consultation.Status == konsultasiModels.StatusSearching {
		claimed, err := s.stores.Consultations.Claim(ctx, id, doctor.ID, s.now())
		switch {
		case err == nil:
			consultation = claimed
		case errors.Is(err, storage.ErrNotFound):
			// kalah race; tetap lanjut hanya jika ternyata milik dokter ini
			current, ferr := s.stores.Consultations.FindByID(ctx, id)
			if ferr != nil || !current.AssignedTo(doctor.ID) {
				return nil, takenByOther
			}
			consultation = current
		default:
			return nil, apperror.Internal(err)
		}
	}

	chat := &chatModels.Chat{
		ConsultationRequestID: id,
		Participants:          []int64{userID, consultation.UserID},
	}
	created := true
	if err := s.stores.Chats.Create(ctx, chat); err != nil {
		if !errors.Is(err, storage.ErrDuplicate) {
			return nil, apperror.Internal(err)
		}
		existing, ferr := s.stores.Chats.FindByConsultation(ctx, id)
		if ferr != nil {
			return nil, apperror.Internal(ferr)
		}
		chat, created = existing, false
	}

	result := &StartResult{ConsultationID: id.Hex(), ChatID: chat.ID.Hex(), Created: created}
	if created {
		s.announce(ctx, consultation.UserID, EventConsultationStarted, notifikasi.Message{
			Title: "Consultation started",
			Body:  "A doctor has accepted your consultation: " + consultation.Title,
			Data:  map[string]string{"type": EventConsultationStarted, "consultationId": id.Hex(), "chatId": result.ChatID},
		}, map[string]interface{}{"consultationId": id.Hex(), "chatId": result.ChatID, "doctorId": doctor.ID})
		s.log.Info().Str("consultation_id", id.Hex()).Int64("doctor_id", doctor.ID).Msg("consultation started")
	}
	return result, nil
}

// End menyelesaikan konsultasi in_progress milik dokter ini.
func (s *KonsultasiDokterService) End(ctx context.Context, userID int64, idRaw string) (*konsultasiModels.ConsultationRequest, error) {
	id, err := apperror.ParseObjectID(idRaw, "consultation")
	if err != nil {
		return nil, err
	}
	doctor, err := s.doctorFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	consultation, err := s.stores.Consultations.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.FromStore(err, "Consultation not found")
	}
	if !consultation.AssignedTo(doctor.ID) {
		return nil, apperror.Forbidden("Access denied. Not the assigned doctor.")
	}
	if consultation.Status != konsultasiModels.StatusInProgress {
		return nil, apperror.BadRequest("Consultation cannot be ended. Current status: " + consultation.Status)
	}

	completed, err := s.stores.Consultations.Complete(ctx, id, doctor.ID, s.now())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperror.BadRequest("Consultation cannot be ended. Current status: " + konsultasiModels.StatusCompleted)
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}

	data := map[string]interface{}{"consultationId": id.Hex()}
	push := map[string]string{"type": EventConsultationCompleted, "consultationId": id.Hex()}
	if chat, err := s.stores.Chats.FindByConsultation(ctx, id); err == nil {
		data["chatId"] = chat.ID.Hex()
		push["chatId"] = chat.ID.Hex()
	}
	s.announce(ctx, completed.UserID, EventConsultationCompleted, notifikasi.Message{
		Title: "Consultation completed",
		Body:  "Your consultation \"" + completed.Title + "\" has been completed",
		Data:  push,
	}, data)
	return completed, nil
}

func (s *KonsultasiDokterService) announce(ctx context.Context, userID int64, event string, msg notifikasi.Message, data interface{}) {
	if err := s.realtime.SendToUsers([]int64{userID}, event, data); err != nil {
		s.log.Warn().Err(err).Str("event", event).Msg("failed to publish realtime event")
	}
	if err := s.notifier.Notify(ctx, []int64{userID}, msg); err != nil {
		s.log.Warn().Err(err).Str("event", event).Msg("failed to send push notification")
	}
}
