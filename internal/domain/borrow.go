package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type BorrowStatus string

const (
	BorrowPending   BorrowStatus = "pending"
	BorrowApproved  BorrowStatus = "approved"
	BorrowClaimed   BorrowStatus = "claimed"
	BorrowReturned  BorrowStatus = "returned"
	BorrowUnclaimed BorrowStatus = "unclaimed"
	BorrowRejected  BorrowStatus = "rejected"
)

func ParseBorrowStatus(s string) (BorrowStatus, error) {
	switch BorrowStatus(s) {
	case BorrowPending, BorrowApproved, BorrowClaimed,
		BorrowReturned, BorrowUnclaimed, BorrowRejected:
		return BorrowStatus(s), nil
	}
	return "", fmt.Errorf("invalid borrow status: %q", s)
}

var borrowTransitions = map[BorrowStatus][]BorrowStatus{
	BorrowPending:  {BorrowApproved, BorrowRejected},
	BorrowApproved: {BorrowClaimed, BorrowUnclaimed},
	BorrowClaimed:  {BorrowReturned},
}

// CanTransition reports whether a borrow request may move from one
// status to another. Terminal statuses have no outgoing edges.
func (s BorrowStatus) CanTransition(to BorrowStatus) bool {
	for _, next := range borrowTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type BorrowRequest struct {
	Model
	RequestedBy      uuid.UUID    `db:"requested_by"`
	Location         string       `db:"location"`
	Purpose          string       `db:"purpose"`
	ExpectedReturnAt time.Time    `db:"expected_return_at"`
	Status           BorrowStatus `db:"status"`
	ReviewedBy       *uuid.UUID   `db:"reviewed_by"`
	ReviewedAt       *time.Time   `db:"reviewed_at"`
	ClaimedAt        *time.Time   `db:"claimed_at"`
	ReturnedAt       *time.Time   `db:"returned_at"`
	Remarks          *string      `db:"remarks"`
}

type BorrowRequestItem struct {
	ID              uuid.UUID `db:"id"`
	BorrowRequestID uuid.UUID `db:"borrow_request_id"`
	EquipmentTypeID uuid.UUID `db:"equipment_type_id"`
	Quantity        int       `db:"quantity"`
}

// BorrowItemUnit records one physical unit allocated to a request line
// at approval time. ReturnedAt is stamped when the unit comes back.
type BorrowItemUnit struct {
	BorrowRequestItemID uuid.UUID  `db:"borrow_request_item_id"`
	EquipmentUnitID     uuid.UUID  `db:"equipment_unit_id"`
	ReturnedAt          *time.Time `db:"returned_at"`
}

type ClaimToken struct {
	Code            string    `db:"code"`
	BorrowRequestID uuid.UUID `db:"borrow_request_id"`
	ExpiresAt       time.Time `db:"expires_at"`
	CreatedAt       time.Time `db:"created_at"`
}

func (t *ClaimToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
