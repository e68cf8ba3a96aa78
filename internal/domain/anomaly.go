package domain

import "github.com/google/uuid"

// AnomalyResult is the stored outcome of scoring a borrow request
// against the external anomaly service.
type AnomalyResult struct {
	BorrowRequestID uuid.UUID `json:"borrowRequestId" db:"borrow_request_id"`
	Score           float64   `json:"score" db:"score"`
	IsAnomaly       bool      `json:"isAnomaly" db:"is_anomaly"`
	IsFalsePositive *bool     `json:"isFalsePositive" db:"is_false_positive"`
}

// Reallocation audits a manual move of units between status buckets.
type Reallocation struct {
	Model
	EquipmentTypeID uuid.UUID  `db:"equipment_type_id"`
	FromStatus      UnitStatus `db:"from_status"`
	ToStatus        UnitStatus `db:"to_status"`
	Quantity        int        `db:"quantity"`
	MovedBy         uuid.UUID  `db:"moved_by"`
}
