package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SessionLifetime is how long a fresh session is valid.
	SessionLifetime = 7 * 24 * time.Hour
	// SessionRenewalWindow: a session touched with less than this much
	// lifetime left gets its expiry pushed out again.
	SessionRenewalWindow = 3 * 24 * time.Hour
)

// Session is a server-side login session. ID is the hex sha256 of the
// opaque token handed to the client; the token itself is never stored.
type Session struct {
	ID        string    `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s *Session) NeedsRenewal(now time.Time) bool {
	return now.After(s.ExpiresAt.Add(-SessionRenewalWindow))
}
