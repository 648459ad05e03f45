// Package notifikasi mengirim push notification lewat Firebase Cloud Messaging
// dan menjalankan job pengingat untuk konsultasi yang belum diambil dokter.
package notifikasi

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Message adalah isi push notification.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

type Notifier interface {
	Notify(ctx context.Context, userIDs []int64, msg Message) error
}

// NoopNotifier dipakai saat Firebase tidak dikonfigurasi.
type NoopNotifier struct {
	Log zerolog.Logger
}

func (n NoopNotifier) Notify(ctx context.Context, userIDs []int64, msg Message) error {
	n.Log.Debug().Ints64("user_ids", userIDs).Str("title", msg.Title).Msg("push skipped, notifier disabled")
	return nil
}

const asyncTimeout = 10 * time.Second

// Async menjalankan Notify di goroutine terpisah sehingga request HTTP
// tidak menunggu FCM. Error hanya dicatat ke log.
type Async struct {
	next Notifier
	log  zerolog.Logger
}

func NewAsync(next Notifier, log zerolog.Logger) *Async {
	return &Async{next: next, log: log}
}

func (a *Async) Notify(_ context.Context, userIDs []int64, msg Message) error {
	if len(userIDs) == 0 {
		return nil
	}
	ids := append([]int64(nil), userIDs...)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncTimeout)
		defer cancel()
		if err := a.next.Notify(ctx, ids, msg); err != nil {
			a.log.Error().Err(err).Ints64("user_ids", ids).Str("title", msg.Title).Msg("push notification failed")
		}
	}()
	return nil
}
