package models

import (
	"strings"
	"time"
)

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
)

// User adalah akun pasien atau dokter (tabel users).
// Password tidak pernah dikirim dalam response.
type User struct {
	ID               int64      `json:"id"`
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	Email            string     `json:"email"`
	Password         string     `json:"-"`
	Role             string     `json:"role"`
	Gender           string     `json:"gender,omitempty"`
	BirthDate        *time.Time `json:"birthDate,omitempty"`
	City             string     `json:"city,omitempty"`
	ProfileImage     string     `json:"profileImage,omitempty"`
	ProfileCompleted bool       `json:"profileCompleted"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// PublicProfile adalah potongan data user yang boleh dilihat pihak lain.
type PublicProfile struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	ProfileImage string `json:"profileImage"`
	Role         string `json:"role,omitempty"`
	Specialty    string `json:"specialty,omitempty"`
}

func (u User) Public() PublicProfile {
	return PublicProfile{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		ProfileImage: u.ProfileImage,
		Role:         u.Role,
	}
}
