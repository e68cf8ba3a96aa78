package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type UnitStatus string

const (
	UnitAvailable   UnitStatus = "available"
	UnitReserved    UnitStatus = "reserved"
	UnitBorrowed    UnitStatus = "borrowed"
	UnitDamaged     UnitStatus = "damaged"
	UnitLost        UnitStatus = "lost"
	UnitMaintenance UnitStatus = "maintenance"
	UnitDisposed    UnitStatus = "disposed"
)

func ParseUnitStatus(s string) (UnitStatus, error) {
	switch UnitStatus(s) {
	case UnitAvailable, UnitReserved, UnitBorrowed, UnitDamaged,
		UnitLost, UnitMaintenance, UnitDisposed:
		return UnitStatus(s), nil
	}
	return "", fmt.Errorf("invalid equipment status: %q", s)
}

// Reallocatable reports whether a unit may be moved into this bucket by
// hand. reserved and borrowed are owned by the borrow lifecycle.
func (s UnitStatus) Reallocatable() bool {
	return s != UnitReserved && s != UnitBorrowed
}

type EquipmentType struct {
	Model
	Name      string  `db:"name"`
	Brand     *string `db:"brand"`
	ItemModel *string `db:"model"`
	ImageURL  *string `db:"image_url"`
}

type EquipmentUnit struct {
	Model
	EquipmentTypeID uuid.UUID  `db:"equipment_type_id"`
	Status          UnitStatus `db:"status"`
	AcquiredAt      time.Time  `db:"acquired_at"`
}

// StatusQuantity is one bucket of an equipment type's breakdown.
type StatusQuantity struct {
	Status   UnitStatus `json:"status" db:"status"`
	Quantity int        `json:"quantity" db:"quantity"`
}
