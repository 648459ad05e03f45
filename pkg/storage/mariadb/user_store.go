package mariadb

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/c14220110/telekonsul-backend/internal/pengguna/models"
	"github.com/c14220110/telekonsul-backend/pkg/storage"
)

type UserStore struct {
	DB *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{DB: db}
}

const userColumns = `id, first_name, last_name, email, password, role, gender, birth_date,
	city, profile_image, profile_completed, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var u models.User
	var birth sql.NullTime
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Password, &u.Role, &u.Gender,
		&birth, &u.City, &u.ProfileImage, &u.ProfileCompleted, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if birth.Valid {
		t := birth.Time
		u.BirthDate = &t
	}
	return &u, nil
}

func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO users
			(first_name, last_name, email, password, role, gender, birth_date, city,
			 profile_image, profile_completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.FirstName, u.LastName, strings.ToLower(u.Email), u.Password, u.Role, u.Gender,
		u.BirthDate, u.City, u.ProfileImage, u.ProfileCompleted, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	u.ID, err = res.LastInsertId()
	return err
}

func (s *UserStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	return u, translate(err)
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ?", strings.ToLower(email)))
	return u, translate(err)
}

func (s *UserStore) FindByIDs(ctx context.Context, ids []int64) (map[int64]models.User, error) {
	result := make(map[int64]models.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	in, args := inClause(ids)
	rows, err := s.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users WHERE id IN ("+in+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result[u.ID] = *u
	}
	return result, rows.Err()
}

func (s *UserStore) Update(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := s.DB.ExecContext(ctx, `
		UPDATE users
		SET first_name = ?, last_name = ?, gender = ?, birth_date = ?, city = ?,
		    profile_image = ?, profile_completed = ?, updated_at = ?
		WHERE id = ?`,
		u.FirstName, u.LastName, u.Gender, u.BirthDate, u.City,
		u.ProfileImage, u.ProfileCompleted, u.UpdatedAt, u.ID)
	if err != nil {
		return translate(err)
	}
	return requireAffected(res)
}

func (s *UserStore) Delete(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return translate(err)
	}
	return requireAffected(res)
}

// requireAffected mengubah "0 rows affected" menjadi ErrNotFound. Koneksi
// memakai ClientFoundRows, jadi 0 berarti tidak ada baris yang cocok.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
