package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusSearching  = "searching"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

func ValidStatus(s string) bool {
	return s == StatusSearching || s == StatusInProgress || s == StatusCompleted
}

// ConsultationRequest adalah dokumen di koleksi consultation_requests.
// UserID adalah users.id pasien, AssignedDoctorID adalah doctors.id (MariaDB).
type ConsultationRequest struct {
	ID                primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID            int64               `bson:"userId" json:"userId"`
	Title             string              `bson:"title" json:"title"`
	Description       string              `bson:"description" json:"description"`
	Specialty         string              `bson:"specialty" json:"specialty"`
	Attachments       []string            `bson:"attachments" json:"attachments"`
	Status            string              `bson:"status" json:"status"`
	AssignedDoctorID  *int64              `bson:"assignedDoctorId,omitempty" json:"assignedDoctorId,omitempty"`
	RepublishedFromID *primitive.ObjectID `bson:"republishedFromId,omitempty" json:"republishedFromId,omitempty"`
	ReminderSentAt    *time.Time          `bson:"reminderSentAt,omitempty" json:"-"`
	StartedAt         *time.Time          `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt       *time.Time          `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CreatedAt         time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time           `bson:"updatedAt" json:"updatedAt"`
}

func (c ConsultationRequest) AssignedTo(doctorID int64) bool {
	return c.AssignedDoctorID != nil && *c.AssignedDoctorID == doctorID
}

// ConsultationEdit berisi perubahan dari pasien. Field nil tidak diubah,
// Attachments nil berarti lampiran lama dipertahankan.
type ConsultationEdit struct {
	Title       *string
	Description *string
	Specialty   *string
	Attachments []string
}

// ConsultationQuery adalah filter generik untuk List dan Count.
// Field kosong/nil berarti tidak difilter.
type ConsultationQuery struct {
	UserID           *int64
	AssignedDoctorID *int64
	Specialty        string
	Status           string
	ExcludeIDs       []primitive.ObjectID
	RepublishedFrom  *primitive.ObjectID
	CreatedBefore    *time.Time
	NotReminded      bool
	SortByUpdated    bool
	Skip             int64
	Limit            int64
}
