package services

import (
	"context"
	"errors"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/c14220110/telekonsul-backend/internal/common/apperror"
	"github.com/c14220110/telekonsul-backend/internal/dokter/models"
	"github.com/c14220110/telekonsul-backend/pkg/storage"
	"github.com/c14220110/telekonsul-backend/pkg/utils"
)

// DokterService mengelola profil dokter (spesialisasi, STR, berkas ijazah).
type DokterService struct {
	doctors storage.DoctorStore
	files   *utils.FileStorage
	log     zerolog.Logger
}

func NewDokterService(doctors storage.DoctorStore, files *utils.FileStorage, log zerolog.Logger) *DokterService {
	return &DokterService{doctors: doctors, files: files, log: log}
}

type ProfileInput struct {
	Specialty         *string
	LicenseNumber     *string
	YearsOfExperience *string
	WorkPlace         *string
}

// CompleteProfile membuat atau menimpa profil dokter. Semua field dan
// minimal satu berkas ijazah dan satu berkas STR wajib ada.
func (s *DokterService) CompleteProfile(ctx context.Context, userID int64, in ProfileInput, degreeFiles, licenseFiles []*multipart.FileHeader) (*models.Doctor, error) {
	if blank(in.Specialty) || blank(in.LicenseNumber) || blank(in.YearsOfExperience) || blank(in.WorkPlace) {
		return nil, apperror.BadRequest("specialty, licenseNumber, yearsOfExperience, and workPlace are required")
	}
	if len(degreeFiles) == 0 || len(licenseFiles) == 0 {
		return nil, apperror.BadRequest("degreeFiles and licenseFiles are required")
	}
	years, err := parseYears(*in.YearsOfExperience)
	if err != nil {
		return nil, err
	}

	previous, err := s.doctors.FindByUserID(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, apperror.Internal(err)
	}

	degree, license, err := s.saveDocuments(degreeFiles, licenseFiles)
	if err != nil {
		return nil, err
	}
	doctor := &models.Doctor{
		UserID:            userID,
		Specialty:         strings.TrimSpace(*in.Specialty),
		LicenseNumber:     strings.TrimSpace(*in.LicenseNumber),
		YearsOfExperience: years,
		WorkPlace:         strings.TrimSpace(*in.WorkPlace),
		DegreeFiles:       degree,
		LicenseFiles:      license,
	}
	if previous != nil {
		doctor.VerifiedByAdmin = previous.VerifiedByAdmin
	}
	if err := s.doctors.Save(ctx, doctor); err != nil {
		s.files.RemoveAll(append(degree, license...))
		return nil, apperror.Internal(err)
	}
	if previous != nil {
		s.files.RemoveAll(append(previous.DegreeFiles, previous.LicenseFiles...))
	}
	return doctor, nil
}

// UpdateProfile mengubah sebagian field. Berkas baru menggantikan berkas
// lama pada kategori yang sama.
func (s *DokterService) UpdateProfile(ctx context.Context, userID int64, in ProfileInput, degreeFiles, licenseFiles []*multipart.FileHeader) (*models.Doctor, error) {
	doctor, err := s.doctors.FindByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.FromStore(err, "Doctor profile not found")
	}

	if in.Specialty != nil {
		if blank(in.Specialty) {
			return nil, apperror.BadRequest("specialty cannot be empty")
		}
		doctor.Specialty = strings.TrimSpace(*in.Specialty)
	}
	if in.LicenseNumber != nil {
		if blank(in.LicenseNumber) {
			return nil, apperror.BadRequest("licenseNumber cannot be empty")
		}
		doctor.LicenseNumber = strings.TrimSpace(*in.LicenseNumber)
	}
	if in.YearsOfExperience != nil {
		years, err := parseYears(*in.YearsOfExperience)
		if err != nil {
			return nil, err
		}
		doctor.YearsOfExperience = years
	}
	if in.WorkPlace != nil {
		if blank(in.WorkPlace) {
			return nil, apperror.BadRequest("workPlace cannot be empty")
		}
		doctor.WorkPlace = strings.TrimSpace(*in.WorkPlace)
	}

	degree, license, err := s.saveDocuments(degreeFiles, licenseFiles)
	if err != nil {
		return nil, err
	}
	var replaced []string
	if len(degree) > 0 {
		replaced = append(replaced, doctor.DegreeFiles...)
		doctor.DegreeFiles = degree
	}
	if len(license) > 0 {
		replaced = append(replaced, doctor.LicenseFiles...)
		doctor.LicenseFiles = license
	}

	if err := s.doctors.Save(ctx, doctor); err != nil {
		s.files.RemoveAll(append(degree, license...))
		return nil, apperror.Internal(err)
	}
	s.files.RemoveAll(replaced)
	return doctor, nil
}

func (s *DokterService) saveDocuments(degreeFiles, licenseFiles []*multipart.FileHeader) ([]string, []string, error) {
	degree, err := s.files.SaveAll(degreeFiles, utils.DirDoctorFiles)
	if err != nil {
		return nil, nil, apperror.FromUpload(err)
	}
	license, err := s.files.SaveAll(licenseFiles, utils.DirDoctorFiles)
	if err != nil {
		s.files.RemoveAll(utils.Paths(degree))
		return nil, nil, apperror.FromUpload(err)
	}
	return utils.Paths(degree), utils.Paths(license), nil
}

func blank(v *string) bool {
	return v == nil || strings.TrimSpace(*v) == ""
}

func parseYears(raw string) (int, error) {
	years, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || years < 0 {
		return 0, apperror.BadRequest("yearsOfExperience must be a non-negative integer")
	}
	return years, nil
}
