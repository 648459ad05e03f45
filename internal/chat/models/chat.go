package models

import (
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat terikat 1:1 dengan satu consultation request.
// Participants berisi users.id dokter dan pasien.
type Chat struct {
	ID                    primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	ConsultationRequestID primitive.ObjectID   `bson:"consultationRequestId" json:"consultationRequestId"`
	Participants          []int64              `bson:"participants" json:"participants"`
	LastOpened            map[string]time.Time `bson:"lastOpened,omitempty" json:"lastOpened,omitempty"`
	LastMessage           *MessagePreview      `bson:"lastMessage,omitempty" json:"lastMessage,omitempty"`
	CreatedAt             time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt             time.Time            `bson:"updatedAt" json:"updatedAt"`
}

type MessagePreview struct {
	MessageID primitive.ObjectID `bson:"messageId" json:"messageId"`
	SenderID  int64              `bson:"senderId" json:"senderId"`
	Type      string             `bson:"type" json:"type"`
	Content   string             `bson:"content" json:"content"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

func (c Chat) HasParticipant(userID int64) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant mengembalikan peserta selain userID.
func (c Chat) OtherParticipant(userID int64) (int64, bool) {
	for _, p := range c.Participants {
		if p != userID {
			return p, true
		}
	}
	return 0, false
}

func (c Chat) LastOpenedBy(userID int64) time.Time {
	return c.LastOpened[LastOpenedKey(userID)]
}

func LastOpenedKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
