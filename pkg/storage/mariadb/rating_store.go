package mariadb

import (
	"context"
	"database/sql"
	"time"

	"github.com/c14220110/telekonsul-backend/internal/pengguna/models"
)

type RatingStore struct {
	DB *sql.DB
}

func NewRatingStore(db *sql.DB) *RatingStore {
	return &RatingStore{DB: db}
}

func (s *RatingStore) Create(ctx context.Context, r *models.Rating) error {
	r.CreatedAt = time.Now().UTC()
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO ratings (chat_id, consultation_id, rater_id, rated_id, score, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ChatID, r.ConsultationID, r.RaterID, r.RatedID, r.Score, r.Comment, r.CreatedAt)
	if err != nil {
		return translate(err)
	}
	r.ID, err = res.LastInsertId()
	return err
}

func (s *RatingStore) FindByChatAndRater(ctx context.Context, chatID string, raterID int64) (*models.Rating, error) {
	var r models.Rating
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, chat_id, consultation_id, rater_id, rated_id, score, comment, created_at
		FROM ratings
		WHERE chat_id = ? AND rater_id = ?`, chatID, raterID).
		Scan(&r.ID, &r.ChatID, &r.ConsultationID, &r.RaterID, &r.RatedID, &r.Score, &r.Comment, &r.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *RatingStore) SummaryFor(ctx context.Context, ratedID int64) (models.RatingSummary, error) {
	var summary models.RatingSummary
	var avg sql.NullFloat64
	err := s.DB.QueryRowContext(ctx,
		"SELECT AVG(score), COUNT(*) FROM ratings WHERE rated_id = ?", ratedID).
		Scan(&avg, &summary.Count)
	if err != nil {
		return summary, err
	}
	if avg.Valid {
		summary.Average = avg.Float64
	}
	return summary, nil
}
