package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gearshed/internal/domain"
	"gearshed/internal/repository"
)

// ClaimExpiryWorker releases approved borrow requests whose claim code
// expired before the borrower showed up: reserved units go back to
// available and the request lands in the unclaimed terminal status.
type ClaimExpiryWorker struct {
	db            *repository.Database
	borrowRepo    *repository.BorrowRepository
	equipmentRepo *repository.EquipmentRepository
	ticker        *time.Ticker
}

func NewClaimExpiryWorker(db *repository.Database, interval time.Duration) *ClaimExpiryWorker {
	return &ClaimExpiryWorker{
		db:            db,
		borrowRepo:    repository.NewBorrowRepository(db),
		equipmentRepo: repository.NewEquipmentRepository(db),
		ticker:        time.NewTicker(interval),
	}
}

func (w *ClaimExpiryWorker) StartWorker(ctx context.Context) {
	defer w.ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.ticker.C:
			w.releaseExpired()
		}
	}
}

func (w *ClaimExpiryWorker) releaseExpired() {
	requestIDs, err := w.borrowRepo.ExpiredApprovedRequests(w.db, time.Now())
	if err != nil {
		fmt.Printf("[ClaimExpiryWorker] Error listing expired requests: %v\n", err)
		return
	}

	released := 0
	for _, requestID := range requestIDs {
		if err := w.releaseOne(requestID); err != nil {
			fmt.Printf("[ClaimExpiryWorker] Error releasing %s: %v\n", requestID, err)
			continue
		}
		released++
	}

	if released > 0 {
		fmt.Printf("[ClaimExpiryWorker] Released %d unclaimed requests\n", released)
	}
}

func (w *ClaimExpiryWorker) releaseOne(requestID uuid.UUID) error {
	tx, err := w.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	req, err := w.borrowRepo.FindByIDForUpdate(tx, requestID)
	if err != nil {
		return err
	}
	// Another worker tick or a handover may have won the race.
	if !req.Status.CanTransition(domain.BorrowUnclaimed) {
		return nil
	}

	unitIDs, err := w.borrowRepo.AllocatedUnitIDs(tx, requestID, true)
	if err != nil {
		return err
	}
	if len(unitIDs) > 0 {
		if err := w.equipmentRepo.UpdateUnitsStatus(tx, unitIDs, domain.UnitAvailable); err != nil {
			return err
		}
	}

	if err := w.borrowRepo.UpdateStatus(tx, requestID, domain.BorrowUnclaimed); err != nil {
		return err
	}
	if err := w.borrowRepo.DeleteClaimTokens(tx, requestID); err != nil {
		return err
	}

	return tx.Commit()
}
