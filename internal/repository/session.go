package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"gearshed/internal/domain"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepository struct {
	db *Database
}

func NewSessionRepository(db *Database) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(session *domain.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, expires_at)
		VALUES ($1, $2, $3)
	`
	_, err := r.db.Exec(query, session.ID, session.UserID, session.ExpiresAt)
	return err
}

func (r *SessionRepository) FindByID(id string) (*domain.Session, error) {
	query := `SELECT id, user_id, expires_at FROM sessions WHERE id = $1`

	session := &domain.Session{}
	err := r.db.Get(session, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

func (r *SessionRepository) UpdateExpiry(id string, expiresAt time.Time) error {
	query := `UPDATE sessions SET expires_at = $1 WHERE id = $2`
	_, err := r.db.Exec(query, expiresAt, id)
	return err
}

func (r *SessionRepository) Delete(id string) error {
	query := `DELETE FROM sessions WHERE id = $1`
	_, err := r.db.Exec(query, id)
	return err
}

func (r *SessionRepository) DeleteByUserID(userID uuid.UUID) error {
	query := `DELETE FROM sessions WHERE user_id = $1`
	_, err := r.db.Exec(query, userID)
	return err
}

// DeleteExpired removes sessions past their expiry and reports how many
// rows went away. Used by the hourly sweeper.
func (r *SessionRepository) DeleteExpired(now time.Time) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at <= $1`
	result, err := r.db.Exec(query, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
