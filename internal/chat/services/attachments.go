package services

import (
	"context"
	"mime/multipart"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/c14220110/telekonsul-backend/internal/chat/models"
	"github.com/c14220110/telekonsul-backend/internal/common/apperror"
	"github.com/c14220110/telekonsul-backend/pkg/utils"
)

// SharedItem adalah satu lampiran atau tautan beserta pesan asalnya.
type SharedItem struct {
	models.Attachment
	MessageID primitive.ObjectID `json:"messageId"`
	SenderID  int64              `json:"senderId"`
	CreatedAt time.Time          `json:"createdAt"`
}

type SharedLink struct {
	URL       string             `json:"url"`
	MessageID primitive.ObjectID `json:"messageId"`
	SenderID  int64              `json:"senderId"`
	CreatedAt time.Time          `json:"createdAt"`
}

func (s *ChatService) attachmentsIn(ctx context.Context, userID int64, chatIDRaw string, keep func(models.Attachment) bool) ([]SharedItem, error) {
	chat, err := s.participantChat(ctx, userID, chatIDRaw)
	if err != nil {
		return nil, err
	}
	list, err := s.stores.Messages.List(ctx, models.MessageQuery{
		ChatIDs:        []primitive.ObjectID{chat.ID},
		VisibleTo:      userID,
		HasAttachments: true,
	})
	if err != nil {
		return nil, apperror.Internal(err)
	}
	items := []SharedItem{}
	for _, m := range list {
		for _, a := range m.Attachments {
			if keep(a) {
				items = append(items, SharedItem{Attachment: a, MessageID: m.ID, SenderID: m.SenderID, CreatedAt: m.CreatedAt})
			}
		}
	}
	return items, nil
}

// Media mengembalikan lampiran gambar dan video.
func (s *ChatService) Media(ctx context.Context, userID int64, chatIDRaw string) ([]SharedItem, error) {
	return s.attachmentsIn(ctx, userID, chatIDRaw, models.Attachment.IsMedia)
}

// Documents mengembalikan lampiran selain gambar dan video.
func (s *ChatService) Documents(ctx context.Context, userID int64, chatIDRaw string) ([]SharedItem, error) {
	return s.attachmentsIn(ctx, userID, chatIDRaw, func(a models.Attachment) bool { return !a.IsMedia() })
}

func (s *ChatService) Links(ctx context.Context, userID int64, chatIDRaw string) ([]SharedLink, error) {
	chat, err := s.participantChat(ctx, userID, chatIDRaw)
	if err != nil {
		return nil, err
	}
	list, err := s.stores.Messages.List(ctx, models.MessageQuery{
		ChatIDs:   []primitive.ObjectID{chat.ID},
		VisibleTo: userID,
		HasLinks:  true,
	})
	if err != nil {
		return nil, apperror.Internal(err)
	}
	links := []SharedLink{}
	for _, m := range list {
		for _, l := range m.Links {
			links = append(links, SharedLink{URL: l, MessageID: m.ID, SenderID: m.SenderID, CreatedAt: m.CreatedAt})
		}
	}
	return links, nil
}

// Upload menyimpan lampiran chat di /uploads dan mengembalikan deskriptor
// yang dipakai send_message.
func (s *ChatService) Upload(files []*multipart.FileHeader) ([]models.Attachment, error) {
	if len(files) == 0 {
		return nil, apperror.BadRequest("No files uploaded")
	}
	saved, err := s.files.SaveAll(files, utils.DirChatUploads)
	if err != nil {
		return nil, apperror.FromUpload(err)
	}
	out := make([]models.Attachment, 0, len(saved))
	for _, f := range saved {
		out = append(out, models.Attachment{
			URL:      f.Path,
			Name:     f.Name,
			MimeType: f.MimeType,
			Size:     f.Size,
			Kind:     KindOf(f.MimeType),
		})
	}
	return out, nil
}
