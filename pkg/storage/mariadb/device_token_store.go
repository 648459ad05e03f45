package mariadb

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/c14220110/telekonsul-backend/internal/pengguna/models"
)

type DeviceTokenStore struct {
	DB *sql.DB
}

func NewDeviceTokenStore(db *sql.DB) *DeviceTokenStore {
	return &DeviceTokenStore{DB: db}
}

// Save menyimpan token FCM. Token yang sama dipindahkan ke user terbaru.
func (s *DeviceTokenStore) Save(ctx context.Context, t *models.DeviceToken) error {
	now := time.Now().UTC()
	t.UpdatedAt = now
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO device_tokens (user_id, token, platform, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			user_id = VALUES(user_id),
			platform = VALUES(platform),
			updated_at = VALUES(updated_at)`,
		t.UserID, t.Token, t.Platform, now, now)
	return translate(err)
}

func (s *DeviceTokenStore) TokensFor(ctx context.Context, userIDs []int64) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(userIDs)
	rows, err := s.DB.QueryContext(ctx, "SELECT token FROM device_tokens WHERE user_id IN ("+in+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func (s *DeviceTokenStore) DeleteTokens(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tokens)), ",")
	args := make([]interface{}, len(tokens))
	for i, t := range tokens {
		args[i] = t
	}
	_, err := s.DB.ExecContext(ctx, "DELETE FROM device_tokens WHERE token IN ("+placeholders+")", args...)
	return err
}
