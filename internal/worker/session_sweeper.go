package worker

import (
	"context"
	"fmt"
	"time"

	"gearshed/internal/repository"
)

// SessionSweeper deletes expired sessions so the table does not grow
// forever. Validation already refuses expired tokens, this is cleanup.
type SessionSweeper struct {
	sessionRepo *repository.SessionRepository
	ticker      *time.Ticker
}

func NewSessionSweeper(db *repository.Database, interval time.Duration) *SessionSweeper {
	return &SessionSweeper{
		sessionRepo: repository.NewSessionRepository(db),
		ticker:      time.NewTicker(interval),
	}
}

func (w *SessionSweeper) StartWorker(ctx context.Context) {
	defer w.ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.ticker.C:
			w.sweep()
		}
	}
}

func (w *SessionSweeper) sweep() {
	deleted, err := w.sessionRepo.DeleteExpired(time.Now())
	if err != nil {
		fmt.Printf("[SessionSweeper] Error deleting expired sessions: %v\n", err)
		return
	}
	if deleted > 0 {
		fmt.Printf("[SessionSweeper] Deleted %d expired sessions\n", deleted)
	}
}
