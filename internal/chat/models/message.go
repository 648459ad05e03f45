package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MessageText  = "text"
	MessageImage = "image"
	MessageFile  = "file"

	KindImage    = "image"
	KindVideo    = "video"
	KindAudio    = "audio"
	KindDocument = "document"
)

type Attachment struct {
	URL      string `bson:"url" json:"url"`
	Name     string `bson:"name" json:"name"`
	MimeType string `bson:"mimeType" json:"mimeType"`
	Size     int64  `bson:"size" json:"size"`
	Kind     string `bson:"kind" json:"kind"`
}

func (a Attachment) IsMedia() bool {
	return a.Kind == KindImage || a.Kind == KindVideo
}

type Message struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatID        primitive.ObjectID `bson:"chatId" json:"chatId"`
	SenderID      int64              `bson:"senderId" json:"senderId"`
	Type          string             `bson:"type" json:"type"`
	Content       string             `bson:"content" json:"content"`
	Attachments   []Attachment       `bson:"attachments,omitempty" json:"attachments"`
	Links         []string           `bson:"links,omitempty" json:"links,omitempty"`
	DeletedFor    []int64            `bson:"deletedFor,omitempty" json:"-"`
	DeletedForAll bool               `bson:"deletedForAll" json:"deletedForAll"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}

func (m Message) HiddenFor(userID int64) bool {
	for _, id := range m.DeletedFor {
		if id == userID {
			return true
		}
	}
	return false
}

// MessageQuery adalah filter untuk List dan Count pesan.
type MessageQuery struct {
	ChatIDs        []primitive.ObjectID
	VisibleTo      int64
	NotSender      int64
	SenderID       int64
	After          *time.Time
	HasAttachments bool
	HasLinks       bool
	Text           string
	Skip           int64
	Limit          int64
}
