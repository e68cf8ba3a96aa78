package domain

import (
	"time"

	"github.com/google/uuid"
)

type ReturnRequest struct {
	Model
	BorrowRequestID uuid.UUID  `db:"borrow_request_id"`
	ConfirmedBy     *uuid.UUID `db:"confirmed_by"`
	ConfirmedAt     *time.Time `db:"confirmed_at"`
	Remarks         *string    `db:"remarks"`
}

func (r *ReturnRequest) Confirmed() bool {
	return r.ConfirmedAt != nil
}

type ReturnRequestItem struct {
	ID                  uuid.UUID `db:"id"`
	ReturnRequestID     uuid.UUID `db:"return_request_id"`
	BorrowRequestItemID uuid.UUID `db:"borrow_request_item_id"`
	Quantity            int       `db:"quantity"`
}
