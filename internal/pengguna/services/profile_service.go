package services

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/c14220110/telekonsul-backend/internal/common/apperror"
	dokterModels "github.com/c14220110/telekonsul-backend/internal/dokter/models"
	konsultasiModels "github.com/c14220110/telekonsul-backend/internal/konsultasi/models"
	"github.com/c14220110/telekonsul-backend/internal/pengguna/models"
	"github.com/c14220110/telekonsul-backend/pkg/storage"
	"github.com/c14220110/telekonsul-backend/pkg/utils"
)

const dateLayout = "2006-01-02"

type ProfileService struct {
	stores storage.Stores
	files  *utils.FileStorage
	log    zerolog.Logger
}

func NewProfileService(stores storage.Stores, files *utils.FileStorage, log zerolog.Logger) *ProfileService {
	return &ProfileService{stores: stores, files: files, log: log}
}

type ProfileView struct {
	User   *models.User          `json:"user"`
	Doctor *dokterModels.Doctor  `json:"doctor,omitempty"`
	Rating *models.RatingSummary `json:"rating,omitempty"`
}

func (s *ProfileService) GetProfile(ctx context.Context, userID int64) (*ProfileView, error) {
	user, err := s.stores.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperror.FromStore(err, "User not found")
	}
	view := &ProfileView{User: user}
	if user.Role != models.RoleDoctor {
		return view, nil
	}

	doctor, err := s.stores.Doctors.FindByUserID(ctx, userID)
	switch {
	case err == nil:
		view.Doctor = doctor
	case !errors.Is(err, storage.ErrNotFound):
		return nil, apperror.Internal(err)
	}
	summary, err := s.stores.Ratings.SummaryFor(ctx, userID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	view.Rating = &summary
	return view, nil
}

// ProfileUpdate berisi field opsional; nil berarti tidak diubah.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Gender    *string
	BirthDate *string
	City      *string
}

func (s *ProfileService) UpdateProfile(ctx context.Context, userID int64, in ProfileUpdate, image *multipart.FileHeader) (*models.User, error) {
	user, err := s.stores.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperror.FromStore(err, "User not found")
	}

	if in.FirstName != nil {
		if strings.TrimSpace(*in.FirstName) == "" {
			return nil, apperror.BadRequest("firstName cannot be empty")
		}
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Gender != nil {
		gender, err := parseGender(*in.Gender)
		if err != nil {
			return nil, err
		}
		user.Gender = gender
	}
	if in.BirthDate != nil {
		birth, err := parseBirthDate(*in.BirthDate)
		if err != nil {
			return nil, err
		}
		user.BirthDate = birth
	}
	if in.City != nil {
		user.City = strings.TrimSpace(*in.City)
	}
	return s.saveWithImage(ctx, user, image)
}

// CompleteProfile mengisi data wajib setelah registrasi.
func (s *ProfileService) CompleteProfile(ctx context.Context, userID int64, gender, birthDate, city string, image *multipart.FileHeader) (*models.User, error) {
	if strings.TrimSpace(gender) == "" || strings.TrimSpace(birthDate) == "" || strings.TrimSpace(city) == "" {
		return nil, apperror.BadRequest("gender, birthDate, and city are required")
	}
	g, err := parseGender(gender)
	if err != nil {
		return nil, err
	}
	birth, err := parseBirthDate(birthDate)
	if err != nil {
		return nil, err
	}

	user, err := s.stores.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperror.FromStore(err, "User not found")
	}
	user.Gender = g
	user.BirthDate = birth
	user.City = strings.TrimSpace(city)
	user.ProfileCompleted = true
	return s.saveWithImage(ctx, user, image)
}

// saveWithImage menyimpan user; gambar lama baru dihapus setelah update berhasil.
func (s *ProfileService) saveWithImage(ctx context.Context, user *models.User, image *multipart.FileHeader) (*models.User, error) {
	oldImage := user.ProfileImage
	var newImage string
	if image != nil {
		stored, err := s.files.Save(image, utils.DirProfileImage)
		if err != nil {
			return nil, apperror.FromUpload(err)
		}
		newImage = stored.Path
		user.ProfileImage = newImage
	}

	if err := s.stores.Users.Update(ctx, user); err != nil {
		if newImage != "" {
			s.files.Remove(newImage)
		}
		return nil, apperror.FromStore(err, "User not found")
	}
	if newImage != "" && oldImage != "" {
		if err := s.files.Remove(oldImage); err != nil {
			s.log.Warn().Err(err).Str("path", oldImage).Msg("failed to remove old profile image")
		}
	}
	return user, nil
}

// DeleteProfile menghapus akun beserta konsultasi yang masih searching.
func (s *ProfileService) DeleteProfile(ctx context.Context, userID int64) error {
	user, err := s.stores.Users.FindByID(ctx, userID)
	if err != nil {
		return apperror.FromStore(err, "User not found")
	}
	var doctorFiles []string
	if user.Role == models.RoleDoctor {
		if d, err := s.stores.Doctors.FindByUserID(ctx, userID); err == nil {
			doctorFiles = append(append(doctorFiles, d.DegreeFiles...), d.LicenseFiles...)
		}
	}

	if err := s.stores.Consultations.DeleteSearchingByUser(ctx, userID); err != nil {
		return apperror.Internal(err)
	}
	if err := s.stores.Users.Delete(ctx, userID); err != nil {
		return apperror.FromStore(err, "User not found")
	}
	if user.ProfileImage != "" {
		doctorFiles = append(doctorFiles, user.ProfileImage)
	}
	s.files.RemoveAll(doctorFiles)
	return nil
}

type PatientStatistics struct {
	Total      int64 `json:"totalConsultations"`
	Searching  int64 `json:"searching"`
	InProgress int64 `json:"inProgress"`
	Completed  int64 `json:"completed"`
}

type DoctorStatistics struct {
	TotalAssigned int64                `json:"totalAssigned"`
	InProgress    int64                `json:"inProgress"`
	Completed     int64                `json:"completed"`
	Rating        models.RatingSummary `json:"rating"`
}

// Statistics mengembalikan PatientStatistics atau DoctorStatistics sesuai role.
func (s *ProfileService) Statistics(ctx context.Context, userID int64, role string) (interface{}, error) {
	if role == models.RoleDoctor {
		return s.doctorStatistics(ctx, userID)
	}

	var stats PatientStatistics
	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int64, status string) {
		g.Go(func() error {
			n, err := s.stores.Consultations.Count(gctx, konsultasiModels.ConsultationQuery{UserID: &userID, Status: status})
			*dst = n
			return err
		})
	}
	count(&stats.Total, "")
	count(&stats.Searching, konsultasiModels.StatusSearching)
	count(&stats.InProgress, konsultasiModels.StatusInProgress)
	count(&stats.Completed, konsultasiModels.StatusCompleted)
	if err := g.Wait(); err != nil {
		return nil, apperror.Internal(err)
	}
	return stats, nil
}

func (s *ProfileService) doctorStatistics(ctx context.Context, userID int64) (*DoctorStatistics, error) {
	stats := &DoctorStatistics{}
	doctor, err := s.stores.Doctors.FindByUserID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return stats, nil
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}

	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int64, status string) {
		g.Go(func() error {
			n, err := s.stores.Consultations.Count(gctx, konsultasiModels.ConsultationQuery{AssignedDoctorID: &doctor.ID, Status: status})
			*dst = n
			return err
		})
	}
	count(&stats.TotalAssigned, "")
	count(&stats.InProgress, konsultasiModels.StatusInProgress)
	count(&stats.Completed, konsultasiModels.StatusCompleted)
	g.Go(func() error {
		summary, err := s.stores.Ratings.SummaryFor(gctx, userID)
		stats.Rating = summary
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperror.Internal(err)
	}
	return stats, nil
}

// OtherParticipant mengembalikan profil publik lawan bicara di chat.
func (s *ProfileService) OtherParticipant(ctx context.Context, userID int64, chatIDRaw string) (*models.PublicProfile, error) {
	chatID, err := apperror.ParseObjectID(chatIDRaw, "chat")
	if err != nil {
		return nil, err
	}
	chat, err := s.stores.Chats.FindByID(ctx, chatID)
	if err != nil {
		return nil, apperror.FromStore(err, "Chat not found")
	}
	if !chat.HasParticipant(userID) {
		return nil, apperror.Forbidden("Access denied. Not a participant of this chat.")
	}
	otherID, ok := chat.OtherParticipant(userID)
	if !ok {
		return nil, apperror.NotFound("Other participant not found")
	}
	other, err := s.stores.Users.FindByID(ctx, otherID)
	if err != nil {
		return nil, apperror.FromStore(err, "Other participant not found")
	}

	profile := other.Public()
	if other.Role == models.RoleDoctor {
		if d, err := s.stores.Doctors.FindByUserID(ctx, other.ID); err == nil {
			profile.Specialty = d.Specialty
		}
	}
	return &profile, nil
}

func (s *ProfileService) RegisterDeviceToken(ctx context.Context, userID int64, token, platform string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperror.BadRequest("token is required")
	}
	if platform == "" {
		platform = "unknown"
	}
	if err := s.stores.DeviceTokens.Save(ctx, &models.DeviceToken{UserID: userID, Token: token, Platform: platform}); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func parseGender(raw string) (string, error) {
	g := strings.ToLower(strings.TrimSpace(raw))
	if g != "male" && g != "female" {
		return "", apperror.BadRequest("gender must be male or female")
	}
	return g, nil
}

func parseBirthDate(raw string) (*time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return nil, apperror.BadRequest("birthDate must use YYYY-MM-DD format")
	}
	if t.After(time.Now()) {
		return nil, apperror.BadRequest("birthDate cannot be in the future")
	}
	return &t, nil
}
