package services

import (
	"context"
	"errors"
	"strings"

	"github.com/c14220110/telekonsul-backend/internal/common/apperror"
	konsultasiModels "github.com/c14220110/telekonsul-backend/internal/konsultasi/models"
	"github.com/c14220110/telekonsul-backend/internal/pengguna/models"
	"github.com/c14220110/telekonsul-backend/pkg/storage"
)

type RatingService struct {
	stores storage.Stores
}

func NewRatingService(stores storage.Stores) *RatingService {
	return &RatingService{stores: stores}
}

type RatingInput struct {
	ChatID  string `json:"chatId"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Create menyimpan rating dari satu peserta chat untuk peserta lainnya.
// Hanya boleh sekali per chat dan setelah konsultasi selesai.
func (s *RatingService) Create(ctx context.Context, raterID int64, in RatingInput) (*models.Rating, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperror.BadRequest("Rating must be between 1 and 5")
	}
	chatID, err := apperror.ParseObjectID(in.ChatID, "chat")
	if err != nil {
		return nil, err
	}
	chat, err := s.stores.Chats.FindByID(ctx, chatID)
	if err != nil {
		return nil, apperror.FromStore(err, "Chat not found")
	}
	if !chat.HasParticipant(raterID) {
		return nil, apperror.Forbidden("Access denied. Not a participant of this chat.")
	}
	consultation, err := s.stores.Consultations.FindByID(ctx, chat.ConsultationRequestID)
	if err != nil {
		return nil, apperror.FromStore(err, "Consultation not found")
	}
	if consultation.Status != konsultasiModels.StatusCompleted {
		return nil, apperror.BadRequest("Consultation must be completed before rating")
	}
	ratedID, ok := chat.OtherParticipant(raterID)
	if !ok {
		return nil, apperror.BadRequest("No participant to rate")
	}

	if _, err := s.stores.Ratings.FindByChatAndRater(ctx, chatID.Hex(), raterID); err == nil {
		return nil, apperror.Conflict("You have already rated this consultation")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, apperror.Internal(err)
	}

	rating := &models.Rating{
		ChatID:         chatID.Hex(),
		ConsultationID: consultation.ID.Hex(),
		RaterID:        raterID,
		RatedID:        ratedID,
		Score:          in.Rating,
		Comment:        strings.TrimSpace(in.Comment),
	}
	if err := s.stores.Ratings.Create(ctx, rating); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperror.Conflict("You have already rated this consultation")
		}
		return nil, apperror.Internal(err)
	}
	return rating, nil
}

type RatingCheck struct {
	HasRated bool           `json:"hasRated"`
	Rating   *models.Rating `json:"rating,omitempty"`
}

func (s *RatingService) Check(ctx context.Context, raterID int64, chatIDRaw string) (*RatingCheck, error) {
	chatID, err := apperror.ParseObjectID(chatIDRaw, "chat")
	if err != nil {
		return nil, err
	}
	chat, err := s.stores.Chats.FindByID(ctx, chatID)
	if err != nil {
		return nil, apperror.FromStore(err, "Chat not found")
	}
	if !chat.HasParticipant(raterID) {
		return nil, apperror.Forbidden("Access denied. Not a participant of this chat.")
	}
	rating, err := s.stores.Ratings.FindByChatAndRater(ctx, chatID.Hex(), raterID)
	if errors.Is(err, storage.ErrNotFound) {
		return &RatingCheck{}, nil
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return &RatingCheck{HasRated: true, Rating: rating}, nil
}
