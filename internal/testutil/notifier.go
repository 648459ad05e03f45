package testutil

import (
	"context"
	"sync"

	"github.com/c14220110/telekonsul-backend/internal/notifikasi"
)

type Push struct {
	UserIDs []int64
	Message notifikasi.Message
}

// Notifier mencatat push notification secara sinkron.
type Notifier struct {
	mu     sync.Mutex
	Pushes []Push
}

func (n *Notifier) Notify(ctx context.Context, userIDs []int64, msg notifikasi.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Pushes = append(n.Pushes, Push{UserIDs: append([]int64(nil), userIDs...), Message: msg})
	return nil
}

func (n *Notifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Pushes)
}
