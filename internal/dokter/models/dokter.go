package models

import "time"

// Doctor merepresentasikan profil dokter (tabel doctors), terhubung 1:1 ke users.
type Doctor struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"userId"`
	Specialty         string    `json:"specialty"`
	LicenseNumber     string    `json:"licenseNumber"`
	YearsOfExperience int       `json:"yearsOfExperience"`
	WorkPlace         string    `json:"workPlace"`
	DegreeFiles       []string  `json:"degreeFiles"`
	LicenseFiles      []string  `json:"licenseFiles"`
	VerifiedByAdmin   bool      `json:"verifiedByAdmin"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}
