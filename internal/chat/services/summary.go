package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/signintech/gopdf"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/c14220110/telekonsul-backend/internal/chat/models"
	"github.com/c14220110/telekonsul-backend/internal/common/apperror"
	penggunaModels "github.com/c14220110/telekonsul-backend/internal/pengguna/models"
	"github.com/c14220110/telekonsul-backend/pkg/storage"
)

const summaryFont = "summary"

type Summary struct {
	ChatID          string                        `json:"chatId"`
	ConsultationID  string                        `json:"consultationId"`
	Title           string                        `json:"title"`
	Description     string                        `json:"description"`
	Specialty       string                        `json:"specialty"`
	Status          string                        `json:"status"`
	Doctor          *penggunaModels.PublicProfile `json:"doctor"`
	Patient         *penggunaModels.PublicProfile `json:"patient"`
	StartedAt       *time.Time                    `json:"startedAt"`
	CompletedAt     *time.Time                    `json:"completedAt"`
	MessageCount    int64                         `json:"messageCount"`
	AttachmentCount int                           `json:"attachmentCount"`
}

func (s *ChatService) Summary(ctx context.Context, userID int64, chatIDRaw string) (*Summary, error) {
	chat, err := s.participantChat(ctx, userID, chatIDRaw)
	if err != nil {
		return nil, err
	}
	consultation, err := s.stores.Consultations.FindByID(ctx, chat.ConsultationRequestID)
	if err != nil {
		return nil, apperror.FromStore(err, "Consultation not found")
	}
	summary := &Summary{
		ChatID:         chat.ID.Hex(),
		ConsultationID: consultation.ID.Hex(),
		Title:          consultation.Title,
		Description:    consultation.Description,
		Specialty:      consultation.Specialty,
		Status:         consultation.Status,
		StartedAt:      consultation.StartedAt,
		CompletedAt:    consultation.CompletedAt,
	}

	users, err := s.stores.Users.FindByIDs(ctx, chat.Participants)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	for _, id := range chat.Participants {
		u, ok := users[id]
		if !ok {
			continue
		}
		p := u.Public()
		if id == consultation.UserID {
			summary.Patient = &p
			continue
		}
		if d, err := s.stores.Doctors.FindByUserID(ctx, id); err == nil {
			p.Specialty = d.Specialty
		} else if !errors.Is(err, storage.ErrNotFound) {
			return nil, apperror.Internal(err)
		}
		summary.Doctor = &p
	}

	scope := models.MessageQuery{ChatIDs: []primitive.ObjectID{chat.ID}}
	if summary.MessageCount, err = s.stores.Messages.Count(ctx, scope); err != nil {
		return nil, apperror.Internal(err)
	}
	scope.HasAttachments = true
	withFiles, err := s.stores.Messages.List(ctx, scope)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	for _, m := range withFiles {
		summary.AttachmentCount += len(m.Attachments)
	}
	return summary, nil
}

// SummaryPDF menulis ringkasan konsultasi sebagai PDF. Font TTF wajib
// dikonfigurasi lewat PDF_FONT_PATH.
func (s *ChatService) SummaryPDF(ctx context.Context, userID int64, chatIDRaw string, w io.Writer) error {
	summary, err := s.Summary(ctx, userID, chatIDRaw)
	if err != nil {
		return err
	}
	if s.fontPath == "" {
		return apperror.Unavailable("PDF export is not configured")
	}
	if err := renderSummary(summary, s.fontPath, w); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func renderSummary(summary *Summary, fontPath string, w io.Writer) error {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()
	if err := pdf.AddTTFFont(summaryFont, fontPath); err != nil {
		return fmt.Errorf("load font: %w", err)
	}

	if err := pdf.SetFont(summaryFont, "", 18); err != nil {
		return err
	}
	pdf.SetX(40)
	pdf.SetY(40)
	pdf.Cell(nil, "Consultation Summary")
	pdf.Br(30)

	if err := pdf.SetFont(summaryFont, "", 11); err != nil {
		return err
	}
	rows := [][2]string{
		{"Title", summary.Title},
		{"Specialty", summary.Specialty},
		{"Status", summary.Status},
		{"Doctor", profileName(summary.Doctor)},
		{"Patient", profileName(summary.Patient)},
		{"Started", pdfTime(summary.StartedAt)},
		{"Completed", pdfTime(summary.CompletedAt)},
		{"Messages", fmt.Sprint(summary.MessageCount)},
		{"Attachments", fmt.Sprint(summary.AttachmentCount)},
	}
	for _, row := range rows {
		pdf.SetX(40)
		pdf.Cell(nil, row[0]+": "+row[1])
		pdf.Br(16)
	}

	pdf.Br(10)
	pdf.SetX(40)
	pdf.Cell(nil, "Description:")
	pdf.Br(16)
	lines, err := pdf.SplitText(summary.Description, 500)
	if err != nil {
		return err
	}
	for _, l := range lines {
		pdf.SetX(40)
		pdf.Cell(nil, l)
		pdf.Br(14)
	}

	_, err = pdf.WriteTo(w)
	return err
}

func profileName(p *penggunaModels.PublicProfile) string {
	if p == nil {
		return "-"
	}
	return p.FirstName + " " + p.LastName
}

func pdfTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04 UTC")
}
