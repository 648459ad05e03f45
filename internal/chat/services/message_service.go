package services

import (
	"context"
	"errors"
	"mime"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/c14220110/telekonsul-backend/internal/chat/models"
	"github.com/c14220110/telekonsul-backend/internal/common/apperror"
	konsultasiModels "github.com/c14220110/telekonsul-backend/internal/konsultasi/models"
	"github.com/c14220110/telekonsul-backend/internal/notifikasi"
	"github.com/c14220110/telekonsul-backend/pkg/storage"
	"github.com/c14220110/telekonsul-backend/pkg/utils"
)

var linkPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// SendInput dipakai oleh REST maupun event websocket send_message.
type SendInput struct {
	ChatID      string              `json:"chatId"`
	Content     string              `json:"content"`
	Attachments []models.Attachment `json:"attachments"`
}

// SendMessage menyimpan pesan, memperbarui preview chat, lalu mengirim
// new_message ke kedua peserta. Push hanya untuk penerima yang offline.
func (s *ChatService) SendMessage(ctx context.Context, userID int64, in SendInput) (*models.Message, error) {
	chat, err := s.participantChat(ctx, userID, in.ChatID)
	if err != nil {
		return nil, err
	}
	consultation, err := s.stores.Consultations.FindByID(ctx, chat.ConsultationRequestID)
	if err != nil {
		return nil, apperror.FromStore(err, "Consultation not found")
	}
	if consultation.Status != konsultasiModels.StatusInProgress {
		return nil, apperror.BadRequest("Consultation is not active. Current status: " + consultation.Status)
	}

	content := strings.TrimSpace(in.Content)
	if content == "" && len(in.Attachments) == 0 {
		return nil, apperror.BadRequest("Message content or attachments are required")
	}
	attachments, err := normalizeAttachments(in.Attachments)
	if err != nil {
		return nil, err
	}

	message := &models.Message{
		ChatID:      chat.ID,
		SenderID:    userID,
		Type:        messageType(attachments),
		Content:     content,
		Attachments: attachments,
		Links:       linkPattern.FindAllString(content, -1),
		CreatedAt:   s.now(),
	}
	if err := s.stores.Messages.Create(ctx, message); err != nil {
		return nil, apperror.Internal(err)
	}
	if err := s.stores.Chats.SetLastMessage(ctx, chat.ID, preview(message)); err != nil {
		s.log.Warn().Err(err).Str("chat_id", chat.ID.Hex()).Msg("failed to update last message")
	}

	s.publish(chat.Participants, EventNewMessage, message)
	if recipient, ok := chat.OtherParticipant(userID); ok && !s.realtime.IsOnline(recipient) {
		s.pushNewMessage(ctx, userID, recipient, consultation.Title, message)
	}
	return message, nil
}

func (s *ChatService) pushNewMessage(ctx context.Context, senderID, recipient int64, title string, m *models.Message) {
	sender := "New message"
	if u, err := s.stores.Users.FindByID(ctx, senderID); err == nil {
		sender = u.FullName()
	}
	err := s.notifier.Notify(ctx, []int64{recipient}, notifikasi.Message{
		Title: sender,
		Body:  preview(m).Content,
		Data: map[string]string{
			"type":      EventNewMessage,
			"chatId":    m.ChatID.Hex(),
			"messageId": m.ID.Hex(),
			"title":     title,
		},
	})
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", recipient).Msg("failed to send push notification")
	}
}

// normalizeAttachments hanya menerima file yang sudah diupload ke /uploads/
// dan mengisi ulang kind dari tipe MIME.
func normalizeAttachments(in []models.Attachment) ([]models.Attachment, error) {
	if len(in) == 0 {
		return nil, nil
	}
	prefix := "/" + utils.DirChatUploads + "/"
	out := make([]models.Attachment, 0, len(in))
	for _, a := range in {
		if !strings.HasPrefix(a.URL, prefix) || strings.Contains(a.URL, "..") {
			return nil, apperror.BadRequest("Invalid attachment url: " + a.URL)
		}
		if a.MimeType == "" {
			a.MimeType = mime.TypeByExtension(strings.ToLower(filepath.Ext(a.URL)))
		}
		if a.Name == "" {
			a.Name = filepath.Base(a.URL)
		}
		a.Kind = KindOf(a.MimeType)
		out = append(out, a)
	}
	return out, nil
}

// KindOf mengelompokkan lampiran berdasarkan tipe MIME.
func KindOf(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return models.KindImage
	case strings.HasPrefix(mimeType, "video/"):
		return models.KindVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return models.KindAudio
	default:
		return models.KindDocument
	}
}

func messageType(attachments []models.Attachment) string {
	if len(attachments) == 0 {
		return models.MessageText
	}
	for _, a := range attachments {
		if a.Kind != models.KindImage {
			return models.MessageFile
		}
	}
	return models.MessageImage
}

func preview(m *models.Message) models.MessagePreview {
	content := m.Content
	if content == "" && len(m.Attachments) > 0 {
		content = m.Attachments[0].Name
	}
	return models.MessagePreview{
		MessageID: m.ID,
		SenderID:  m.SenderID,
		Type:      m.Type,
		Content:   content,
		CreatedAt: m.CreatedAt,
	}
}

// DeleteAll mengosongkan chat hanya untuk user ini.
func (s *ChatService) DeleteAll(ctx context.Context, userID int64, chatIDRaw string) error {
	chat, err := s.participantChat(ctx, userID, chatIDRaw)
	if err != nil {
		return err
	}
	if err := s.stores.Messages.HideAllFor(ctx, chat.ID, userID); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func (s *ChatService) messageFor(ctx context.Context, userID int64, messageIDRaw string) (*models.Message, *models.Chat, error) {
	id, err := apperror.ParseObjectID(messageIDRaw, "message")
	if err != nil {
		return nil, nil, err
	}
	message, err := s.stores.Messages.FindByID(ctx, id)
	if err != nil {
		return nil, nil, apperror.FromStore(err, "Message not found")
	}
	chat, err := s.participantChat(ctx, userID, message.ChatID.Hex())
	if err != nil {
		return nil, nil, err
	}
	if message.HiddenFor(userID) {
		return nil, nil, apperror.NotFound("Message not found")
	}
	return message, chat, nil
}

func (s *ChatService) DeleteForOne(ctx context.Context, userID int64, messageIDRaw string) error {
	message, _, err := s.messageFor(ctx, userID, messageIDRaw)
	if err != nil {
		return err
	}
	if err := s.stores.Messages.HideFor(ctx, message.ID, userID); err != nil {
		return apperror.FromStore(err, "Message not found")
	}
	return nil
}

// DeleteForBoth mengosongkan isi pesan untuk semua peserta. Hanya pengirim
// yang boleh melakukannya.
func (s *ChatService) DeleteForBoth(ctx context.Context, userID int64, messageIDRaw string) error {
	message, chat, err := s.messageFor(ctx, userID, messageIDRaw)
	if err != nil {
		return err
	}
	if message.SenderID != userID {
		return apperror.Forbidden("Only the sender can delete this message for everyone")
	}
	if message.DeletedForAll {
		return nil
	}
	if err := s.stores.Messages.DeleteForAll(ctx, message.ID); err != nil {
		return apperror.FromStore(err, "Message not found")
	}

	if chat.LastMessage != nil && chat.LastMessage.MessageID == message.ID {
		p := *chat.LastMessage
		p.Content = ""
		if err := s.stores.Chats.SetLastMessage(ctx, chat.ID, p); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn().Err(err).Str("chat_id", chat.ID.Hex()).Msg("failed to clear last message")
		}
	}
	s.publish(chat.Participants, EventMessageDeleted, map[string]interface{}{
		"chatId":    chat.ID.Hex(),
		"messageId": message.ID.Hex(),
	})
	return nil
}
