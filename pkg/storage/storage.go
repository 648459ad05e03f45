// Package storage mendefinisikan kontrak penyimpanan yang dipakai service.
// Implementasinya ada di pkg/storage/mariadb (data relasional) dan
// pkg/storage/mongodb (dokumen konsultasi dan chat).
package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	chatModels "github.com/c14220110/telekonsul-backend/internal/chat/models"
	dokterModels "github.com/c14220110/telekonsul-backend/internal/dokter/models"
	konsultasiModels "github.com/c14220110/telekonsul-backend/internal/konsultasi/models"
	penggunaModels "github.com/c14220110/telekonsul-backend/internal/pengguna/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type UserStore interface {
	Create(ctx context.Context, u *penggunaModels.User) error
	FindByID(ctx context.Context, id int64) (*penggunaModels.User, error)
	FindByEmail(ctx context.Context, email string) (*penggunaModels.User, error)
	FindByIDs(ctx context.Context, ids []int64) (map[int64]penggunaModels.User, error)
	Update(ctx context.Context, u *penggunaModels.User) error
	Delete(ctx context.Context, id int64) error
}

type DoctorStore interface {
	FindByUserID(ctx context.Context, userID int64) (*dokterModels.Doctor, error)
	FindByID(ctx context.Context, id int64) (*dokterModels.Doctor, error)
	// Save melakukan insert atau update berdasarkan user_id.
	Save(ctx context.Context, d *dokterModels.Doctor) error
	UserIDsBySpecialty(ctx context.Context, specialty string) ([]int64, error)
}

type RatingStore interface {
	Create(ctx context.Context, r *penggunaModels.Rating) error
	FindByChatAndRater(ctx context.Context, chatID string, raterID int64) (*penggunaModels.Rating, error)
	SummaryFor(ctx context.Context, ratedID int64) (penggunaModels.RatingSummary, error)
}

type DeviceTokenStore interface {
	Save(ctx context.Context, t *penggunaModels.DeviceToken) error
	TokensFor(ctx context.Context, userIDs []int64) ([]string, error)
	DeleteTokens(ctx context.Context, tokens []string) error
}

type ConsultationStore interface {
	Create(ctx context.Context, c *konsultasiModels.ConsultationRequest) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*konsultasiModels.ConsultationRequest, error)
	// UpdateSearching menerapkan edit hanya jika dokumen milik userID dan
	// masih searching. ErrNotFound berarti kondisi tidak terpenuhi.
	UpdateSearching(ctx context.Context, id primitive.ObjectID, userID int64, edit konsultasiModels.ConsultationEdit) (*konsultasiModels.ConsultationRequest, error)
	// DeleteUnlessInProgress menghapus dokumen milik userID yang tidak sedang
	// in_progress. ErrNotFound berarti kondisi tidak terpenuhi.
	DeleteUnlessInProgress(ctx context.Context, id primitive.ObjectID, userID int64) error
	List(ctx context.Context, q konsultasiModels.ConsultationQuery) ([]konsultasiModels.ConsultationRequest, error)
	Count(ctx context.Context, q konsultasiModels.ConsultationQuery) (int64, error)
	IDsAssignedTo(ctx context.Context, doctorID int64) ([]primitive.ObjectID, error)
	IDsRepublishedFrom(ctx context.Context, ids []primitive.ObjectID) ([]primitive.ObjectID, error)
	// Claim mengubah searching -> in_progress hanya jika belum ada dokter.
	// ErrNotFound berarti kondisi tidak terpenuhi (atau dokumen tidak ada).
	Claim(ctx context.Context, id primitive.ObjectID, doctorID int64, at time.Time) (*konsultasiModels.ConsultationRequest, error)
	// Complete mengubah in_progress -> completed hanya untuk dokter yang ditugaskan.
	Complete(ctx context.Context, id primitive.ObjectID, doctorID int64, at time.Time) (*konsultasiModels.ConsultationRequest, error)
	MarkReminded(ctx context.Context, id primitive.ObjectID, at time.Time) error
	DeleteSearchingByUser(ctx context.Context, userID int64) error
}

type ChatStore interface {
	// Create mengembalikan ErrDuplicate jika chat untuk konsultasi tersebut sudah ada.
	Create(ctx context.Context, c *chatModels.Chat) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*chatModels.Chat, error)
	FindByConsultation(ctx context.Context, consultationID primitive.ObjectID) (*chatModels.Chat, error)
	ListByParticipant(ctx context.Context, userID int64) ([]chatModels.Chat, error)
	SetLastOpened(ctx context.Context, id primitive.ObjectID, userID int64, at time.Time) error
	SetLastMessage(ctx context.Context, id primitive.ObjectID, preview chatModels.MessagePreview) error
}

type MessageStore interface {
	Create(ctx context.Context, m *chatModels.Message) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*chatModels.Message, error)
	List(ctx context.Context, q chatModels.MessageQuery) ([]chatModels.Message, error)
	Count(ctx context.Context, q chatModels.MessageQuery) (int64, error)
	HideFor(ctx context.Context, id primitive.ObjectID, userID int64) error
	HideAllFor(ctx context.Context, chatID primitive.ObjectID, userID int64) error
	DeleteForAll(ctx context.Context, id primitive.ObjectID) error
}

// Stores mengumpulkan semua store agar mudah dioper ke service.
type Stores struct {
	Users         UserStore
	Doctors       DoctorStore
	Ratings       RatingStore
	DeviceTokens  DeviceTokenStore
	Consultations ConsultationStore
	Chats         ChatStore
	Messages      MessageStore
}
