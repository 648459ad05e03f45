package notifikasi

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	konsultasiModels "github.com/c14220110/telekonsul-backend/internal/konsultasi/models"
	"github.com/c14220110/telekonsul-backend/pkg/storage"
)

const reminderBatch = 100

// Reminder mengingatkan dokter dengan spesialisasi yang sesuai tentang
// konsultasi yang masih searching setelah jangka waktu tertentu.
type Reminder struct {
	consultations storage.ConsultationStore
	doctors       storage.DoctorStore
	notifier      Notifier
	interval      time.Duration
	after         time.Duration
	log           zerolog.Logger
	now           func() time.Time
}

func NewReminder(consultations storage.ConsultationStore, doctors storage.DoctorStore, notifier Notifier, interval, after time.Duration, log zerolog.Logger) *Reminder {
	return &Reminder{
		consultations: consultations,
		doctors:       doctors,
		notifier:      notifier,
		interval:      interval,
		after:         after,
		log:           log.With().Str("component", "reminder").Logger(),
		now:           time.Now,
	}
}

// Start menjadwalkan RunOnce dan mengembalikan scheduler agar bisa dihentikan.
func (r *Reminder) Start() (*gocron.Scheduler, error) {
	scheduler := gocron.NewScheduler(time.Local)
	_, err := scheduler.Every(r.interval).SingletonMode().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.interval)
		defer cancel()
		if n, err := r.RunOnce(ctx); err != nil {
			r.log.Error().Err(err).Msg("consultation reminder run failed")
		} else if n > 0 {
			r.log.Info().Int("reminded", n).Msg("consultation reminders sent")
		}
	})
	if err != nil {
		return nil, err
	}
	scheduler.StartAsync()
	r.log.Info().Dur("interval", r.interval).Dur("after", r.after).Msg("consultation reminder started")
	return scheduler, nil
}

// RunOnce memproses satu batch konsultasi dan mengembalikan jumlah yang diingatkan.
func (r *Reminder) RunOnce(ctx context.Context) (int, error) {
	now := r.now()
	cutoff := now.Add(-r.after)
	pending, err := r.consultations.List(ctx, konsultasiModels.ConsultationQuery{
		Status:        konsultasiModels.StatusSearching,
		CreatedBefore: &cutoff,
		NotReminded:   true,
		Limit:         reminderBatch,
	})
	if err != nil {
		return 0, err
	}

	doctorsBySpecialty := make(map[string][]int64)
	reminded := 0
	for _, c := range pending {
		userIDs, ok := doctorsBySpecialty[c.Specialty]
		if !ok {
			userIDs, err = r.doctors.UserIDsBySpecialty(ctx, c.Specialty)
			if err != nil {
				return reminded, err
			}
			doctorsBySpecialty[c.Specialty] = userIDs
		}
		if len(userIDs) > 0 {
			err := r.notifier.Notify(ctx, userIDs, Message{
				Title: "Consultation waiting",
				Body:  c.Title + " is still waiting for a " + c.Specialty + " doctor",
				Data: map[string]string{
					"type":           "consultation_reminder",
					"consultationId": c.ID.Hex(),
				},
			})
			if err != nil {
				r.log.Warn().Err(err).Str("consultation_id", c.ID.Hex()).Msg("reminder push failed")
			}
		}
		if err := r.consultations.MarkReminded(ctx, c.ID, now); err != nil {
			return reminded, err
		}
		reminded++
	}
	return reminded, nil
}
