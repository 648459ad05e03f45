package mariadb

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/c14220110/telekonsul-backend/internal/dokter/models"
)

type DoctorStore struct {
	DB *sql.DB
}

func NewDoctorStore(db *sql.DB) *DoctorStore {
	return &DoctorStore{DB: db}
}

const doctorColumns = `id, user_id, specialty, license_number, years_of_experience, work_place,
	degree_files, license_files, verified_by_admin, created_at, updated_at`

func scanDoctor(row interface{ Scan(...interface{}) error }) (*models.Doctor, error) {
	var d models.Doctor
	var degree, license string
	err := row.Scan(&d.ID, &d.UserID, &d.Specialty, &d.LicenseNumber, &d.YearsOfExperience,
		&d.WorkPlace, &degree, &license, &d.VerifiedByAdmin, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := decodePaths(degree, &d.DegreeFiles); err != nil {
		return nil, err
	}
	if err := decodePaths(license, &d.LicenseFiles); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *DoctorStore) FindByUserID(ctx context.Context, userID int64) (*models.Doctor, error) {
	d, err := scanDoctor(s.DB.QueryRowContext(ctx, "SELECT "+doctorColumns+" FROM doctors WHERE user_id = ?", userID))
	return d, translate(err)
}

func (s *DoctorStore) FindByID(ctx context.Context, id int64) (*models.Doctor, error) {
	d, err := scanDoctor(s.DB.QueryRowContext(ctx, "SELECT "+doctorColumns+" FROM doctors WHERE id = ?", id))
	return d, translate(err)
}

func (s *DoctorStore) Save(ctx context.Context, d *models.Doctor) error {
	degree, err := json.Marshal(nonNil(d.DegreeFiles))
	if err != nil {
		return err
	}
	license, err := json.Marshal(nonNil(d.LicenseFiles))
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO doctors
			(user_id, specialty, license_number, years_of_experience, work_place,
			 degree_files, license_files, verified_by_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			specialty = VALUES(specialty),
			license_number = VALUES(license_number),
			years_of_experience = VALUES(years_of_experience),
			work_place = VALUES(work_place),
			degree_files = VALUES(degree_files),
			license_files = VALUES(license_files),
			updated_at = VALUES(updated_at)`,
		d.UserID, d.Specialty, d.LicenseNumber, d.YearsOfExperience, d.WorkPlace,
		string(degree), string(license), d.VerifiedByAdmin, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return translate(err)
	}

	// LastInsertId tidak bisa diandalkan untuk cabang UPDATE, jadi id dibaca ulang.
	return translate(s.DB.QueryRowContext(ctx,
		"SELECT id, created_at FROM doctors WHERE user_id = ?", d.UserID).Scan(&d.ID, &d.CreatedAt))
}

func (s *DoctorStore) UserIDsBySpecialty(ctx context.Context, specialty string) ([]int64, error) {
	rows, err := s.DB.QueryContext(ctx, "SELECT user_id FROM doctors WHERE specialty = ?", specialty)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func decodePaths(raw string, dst *[]string) error {
	if raw == "" {
		*dst = []string{}
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}

func nonNil(paths []string) []string {
	if paths == nil {
		return []string{}
	}
	return paths
}
