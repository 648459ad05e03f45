package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/c14220110/telekonsul-backend/internal/chat/models"
	"github.com/c14220110/telekonsul-backend/internal/common/apperror"
	konsultasiModels "github.com/c14220110/telekonsul-backend/internal/konsultasi/models"
	"github.com/c14220110/telekonsul-backend/internal/notifikasi"
	penggunaModels "github.com/c14220110/telekonsul-backend/internal/pengguna/models"
	"github.com/c14220110/telekonsul-backend/pkg/storage"
	"github.com/c14220110/telekonsul-backend/pkg/utils"
	"github.com/c14220110/telekonsul-backend/ws"
)

const (
	DefaultMessageLimit = 30
	searchMessageLimit  = 50

	EventNewMessage     = "new_message"
	EventTyping         = "typing"
	EventMessagesRead   = "messages_read"
	EventMessageDeleted = "message_deleted"
)

// ChatService melayani chat dokter-pasien lewat REST maupun websocket.
type ChatService struct {
	stores   storage.Stores
	files    *utils.FileStorage
	realtime ws.Publisher
	notifier notifikasi.Notifier
	fontPath string
	log      zerolog.Logger
	now      func() time.Time
}

func NewChatService(stores storage.Stores, files *utils.FileStorage, realtime ws.Publisher, notifier notifikasi.Notifier, fontPath string, log zerolog.Logger) *ChatService {
	return &ChatService{
		stores:   stores,
		files:    files,
		realtime: realtime,
		notifier: notifier,
		fontPath: fontPath,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// participantChat memuat chat dan memastikan userID adalah pesertanya.
func (s *ChatService) participantChat(ctx context.Context, userID int64, chatIDRaw string) (*models.Chat, error) {
	id, err := apperror.ParseObjectID(chatIDRaw, "chat")
	if err != nil {
		return nil, err
	}
	chat, err := s.stores.Chats.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.FromStore(err, "Chat not found")
	}
	if !chat.HasParticipant(userID) {
		return nil, apperror.Forbidden("Access denied. Not a participant of this chat.")
	}
	return chat, nil
}

type ChatItem struct {
	ID             primitive.ObjectID            `json:"id"`
	ConsultationID primitive.ObjectID            `json:"consultationId"`
	Title          string                        `json:"title"`
	Status         string                        `json:"status"`
	Participant    *penggunaModels.PublicProfile `json:"participant"`
	LastMessage    *models.MessagePreview        `json:"lastMessage"`
	UnreadCount    int64                         `json:"unreadCount"`
	UpdatedAt      time.Time                     `json:"updatedAt"`
}

// List mengembalikan semua chat milik user, aktivitas terbaru lebih dulu.
func (s *ChatService) List(ctx context.Context, userID int64) ([]ChatItem, error) {
	chats, err := s.stores.Chats.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	otherIDs := make([]int64, 0, len(chats))
	for _, c := range chats {
		if other, ok := c.OtherParticipant(userID); ok {
			otherIDs = append(otherIDs, other)
		}
	}
	users, err := s.stores.Users.FindByIDs(ctx, otherIDs)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	items := make([]ChatItem, 0, len(chats))
	specialties := map[int64]string{}
	for _, c := range chats {
		item := ChatItem{
			ID:             c.ID,
			ConsultationID: c.ConsultationRequestID,
			LastMessage:    c.LastMessage,
			UpdatedAt:      c.UpdatedAt,
		}
		if other, ok := c.OtherParticipant(userID); ok {
			if u, found := users[other]; found {
				p := u.Public()
				if u.Role == penggunaModels.RoleDoctor {
					p.Specialty = s.specialtyOf(ctx, other, specialties)
				}
				item.Participant = &p
			}
		}
		consultation, err := s.stores.Consultations.FindByID(ctx, c.ConsultationRequestID)
		switch {
		case err == nil:
			item.Title, item.Status = consultation.Title, consultation.Status
		case !errors.Is(err, storage.ErrNotFound):
			return nil, apperror.Internal(err)
		}
		if item.UnreadCount, err = s.unreadIn(ctx, c, userID); err != nil {
			return nil, apperror.Internal(err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *ChatService) specialtyOf(ctx context.Context, userID int64, cache map[int64]string) string {
	if sp, ok := cache[userID]; ok {
		return sp
	}
	sp := ""
	if d, err := s.stores.Doctors.FindByUserID(ctx, userID); err == nil {
		sp = d.Specialty
	}
	cache[userID] = sp
	return sp
}

func (s *ChatService) unreadIn(ctx context.Context, c models.Chat, userID int64) (int64, error) {
	q := models.MessageQuery{ChatIDs: []primitive.ObjectID{c.ID}, VisibleTo: userID, NotSender: userID}
	if opened := c.LastOpenedBy(userID); !opened.IsZero() {
		q.After = &opened
	}
	return s.stores.Messages.Count(ctx, q)
}

// MarkOpened mencatat waktu terakhir chat dibuka dan memberi tahu lawan bicara.
func (s *ChatService) MarkOpened(ctx context.Context, userID int64, chatIDRaw string) (time.Time, error) {
	chat, err := s.participantChat(ctx, userID, chatIDRaw)
	if err != nil {
		return time.Time{}, err
	}
	at := s.now()
	if err := s.stores.Chats.SetLastOpened(ctx, chat.ID, userID, at); err != nil {
		return time.Time{}, apperror.FromStore(err, "Chat not found")
	}
	if other, ok := chat.OtherParticipant(userID); ok {
		s.publish([]int64{other}, EventMessagesRead, map[string]interface{}{
			"chatId": chat.ID.Hex(),
			"userId": userID,
			"readAt": at,
		})
	}
	return at, nil
}

type MessagesResult struct {
	Messages   []models.Message `json:"messages"`
	Pagination utils.Pagination `json:"pagination"`
}

// Messages mengambil halaman pesan terbaru, lalu membaliknya agar urut lama ke baru.
func (s *ChatService) Messages(ctx context.Context, userID int64, chatIDRaw string, page, limit int) (*MessagesResult, error) {
	chat, err := s.participantChat(ctx, userID, chatIDRaw)
	if err != nil {
		return nil, err
	}
	q := models.MessageQuery{ChatIDs: []primitive.ObjectID{chat.ID}, VisibleTo: userID}
	total, err := s.stores.Messages.Count(ctx, q)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	q.Skip, q.Limit = utils.Skip(page, limit), int64(limit)
	list, err := s.stores.Messages.List(ctx, q)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	messages := make([]models.Message, len(list))
	for i, m := range list {
		messages[len(list)-1-i] = m
	}
	return &MessagesResult{Messages: messages, Pagination: utils.NewPagination(page, limit, total)}, nil
}

// UnreadCount menjumlahkan pesan dari pihak lain setelah lastOpened di semua chat.
func (s *ChatService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	chats, err := s.stores.Chats.ListByParticipant(ctx, userID)
	if err != nil {
		return 0, apperror.Internal(err)
	}
	var total int64
	for _, c := range chats {
		n, err := s.unreadIn(ctx, c, userID)
		if err != nil {
			return 0, apperror.Internal(err)
		}
		total += n
	}
	return total, nil
}

type ChatStats struct {
	TotalChats     int   `json:"totalChats"`
	ActiveChats    int   `json:"activeChats"`
	CompletedChats int   `json:"completedChats"`
	MessagesSent   int64 `json:"messagesSent"`
}

func (s *ChatService) Stats(ctx context.Context, userID int64) (*ChatStats, error) {
	chats, err := s.stores.Chats.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	stats := &ChatStats{TotalChats: len(chats)}
	if len(chats) == 0 {
		return stats, nil
	}

	ids := make([]primitive.ObjectID, 0, len(chats))
	for _, c := range chats {
		ids = append(ids, c.ID)
		consultation, err := s.stores.Consultations.FindByID(ctx, c.ConsultationRequestID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, apperror.Internal(err)
		}
		switch consultation.Status {
		case konsultasiModels.StatusInProgress:
			stats.ActiveChats++
		case konsultasiModels.StatusCompleted:
			stats.CompletedChats++
		}
	}
	stats.MessagesSent, err = s.stores.Messages.Count(ctx, models.MessageQuery{ChatIDs: ids, SenderID: userID})
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return stats, nil
}

// SearchChats mencocokkan nama lawan bicara atau judul konsultasi.
func (s *ChatService) SearchChats(ctx context.Context, userID int64, query string) ([]ChatItem, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, apperror.BadRequest("Search query is required")
	}
	items, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	matched := []ChatItem{}
	for _, item := range items {
		name := ""
		if item.Participant != nil {
			name = item.Participant.FirstName + " " + item.Participant.LastName
		}
		if strings.Contains(strings.ToLower(name), query) || strings.Contains(strings.ToLower(item.Title), query) {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

// SearchMessages mencari teks pesan yang masih terlihat di semua chat user.
func (s *ChatService) SearchMessages(ctx context.Context, userID int64, query string) ([]models.Message, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.BadRequest("Search query is required")
	}
	chats, err := s.stores.Chats.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if len(chats) == 0 {
		return []models.Message{}, nil
	}
	ids := make([]primitive.ObjectID, 0, len(chats))
	for _, c := range chats {
		ids = append(ids, c.ID)
	}
	list, err := s.stores.Messages.List(ctx, models.MessageQuery{
		ChatIDs:   ids,
		VisibleTo: userID,
		Text:      query,
		Limit:     searchMessageLimit,
	})
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if list == nil {
		list = []models.Message{}
	}
	return list, nil
}

func (s *ChatService) publish(userIDs []int64, event string, data interface{}) {
	if err := s.realtime.SendToUsers(userIDs, event, data); err != nil {
		s.log.Warn().Err(err).Str("event", event).Msg("failed to publish realtime event")
	}
}
