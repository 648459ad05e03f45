package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"

	"github.com/c14220110/telekonsul-backend/internal/common/apperror"
	konsultasiModels "github.com/c14220110/telekonsul-backend/internal/konsultasi/models"
)

const exportSheet = "Consultations"

var exportHeaders = []string{"No", "Title", "Specialty", "Status", "Patient", "Created At", "Started At", "Completed At"}

// ExportHistory menulis workbook xlsx berisi semua konsultasi yang pernah
// ditangani dokter ke w.
func (s *KonsultasiDokterService) ExportHistory(ctx context.Context, userID int64, w io.Writer) error {
	doctor, err := s.doctorFor(ctx, userID)
	if err != nil {
		return err
	}
	list, err := s.stores.Consultations.List(ctx, konsultasiModels.ConsultationQuery{AssignedDoctorID: &doctor.ID})
	if err != nil {
		return apperror.Internal(err)
	}
	items, err := s.withPatients(ctx, list)
	if err != nil {
		return err
	}

	file := excelize.NewFile()
	file.NewSheet(exportSheet)
	file.DeleteSheet("Sheet1")
	file.SetActiveSheet(file.GetSheetIndex(exportSheet))
	for i, h := range exportHeaders {
		file.SetCellValue(exportSheet, cell(i, 1), h)
	}
	for i, item := range items {
		row := i + 2
		patient := ""
		if item.Patient != nil {
			patient = item.Patient.FirstName + " " + item.Patient.LastName
		}
		values := []interface{}{
			i + 1,
			item.Title,
			item.Specialty,
			item.Status,
			patient,
			formatTime(&item.CreatedAt),
			formatTime(item.StartedAt),
			formatTime(item.CompletedAt),
		}
		for col, v := range values {
			file.SetCellValue(exportSheet, cell(col, row), v)
		}
	}
	if err := file.Write(w); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func cell(col, row int) string {
	return fmt.Sprintf("%c%d", 'A'+col, row)
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}
