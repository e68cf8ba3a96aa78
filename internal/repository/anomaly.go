package repository

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"gearshed/internal/domain"
)

var ErrAnomalyResultNotFound = errors.New("anomaly result not found")

type AnomalyRepository struct {
	db *Database
}

func NewAnomalyRepository(db *Database) *AnomalyRepository {
	return &AnomalyRepository{db: db}
}

func (r *AnomalyRepository) Upsert(result *domain.AnomalyResult) error {
	query := `
		INSERT INTO anomaly_results (borrow_request_id, score, is_anomaly)
		VALUES ($1, $2, $3)
		ON CONFLICT (borrow_request_id) DO UPDATE
		SET score = EXCLUDED.score, is_anomaly = EXCLUDED.is_anomaly
	`
	_, err := r.db.Exec(query, result.BorrowRequestID, result.Score, result.IsAnomaly)
	return err
}

func (r *AnomalyRepository) FindByRequestID(requestID uuid.UUID) (*domain.AnomalyResult, error) {
	query := `
		SELECT borrow_request_id, score, is_anomaly, is_false_positive
		FROM anomaly_results
		WHERE borrow_request_id = $1
	`

	result := &domain.AnomalyResult{}
	err := r.db.Get(result, query, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAnomalyResultNotFound
		}
		return nil, err
	}
	return result, nil
}

func (r *AnomalyRepository) MarkFalsePositive(requestID uuid.UUID, falsePositive bool) error {
	query := `UPDATE anomaly_results SET is_false_positive = $1 WHERE borrow_request_id = $2`
	result, err := r.db.Exec(query, falsePositive, requestID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrAnomalyResultNotFound
	}
	return nil
}

type ReallocationRepository struct {
	db *Database
}

func NewReallocationRepository(db *Database) *ReallocationRepository {
	return &ReallocationRepository{db: db}
}

func (r *ReallocationRepository) Create(h ExtHandle, realloc *domain.Reallocation) error {
	query := `
		INSERT INTO reallocations (equipment_type_id, from_status, to_status, quantity, moved_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	return h.QueryRow(query,
		realloc.EquipmentTypeID, realloc.FromStatus, realloc.ToStatus,
		realloc.Quantity, realloc.MovedBy,
	).Scan(&realloc.ID, &realloc.CreatedAt)
}

func (r *ReallocationRepository) ListByType(typeID uuid.UUID) ([]*domain.Reallocation, error) {
	query := `
		SELECT id, created_at, equipment_type_id, from_status, to_status, quantity, moved_by
		FROM reallocations
		WHERE equipment_type_id = $1
		ORDER BY created_at DESC
	`

	reallocations := []*domain.Reallocation{}
	if err := r.db.Select(&reallocations, query, typeID); err != nil {
		return nil, err
	}
	return reallocations, nil
}
