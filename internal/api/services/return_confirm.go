package services

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"gearshed/internal/domain"
	"gearshed/internal/redis"
	"gearshed/internal/repository"
)

var (
	ErrReturnRequestNotFound  = errors.New("return request not found")
	ErrReturnAlreadyConfirmed = errors.New("return request already confirmed")
)

type ReturnConfirmService struct {
	db            *repository.Database
	borrowRepo    *repository.BorrowRepository
	returnRepo    *repository.ReturnRepository
	equipmentRepo *repository.EquipmentRepository
	broker        *redis.Broker
}

func NewReturnConfirmService(
	db *repository.Database,
	borrowRepo *repository.BorrowRepository,
	returnRepo *repository.ReturnRepository,
	equipmentRepo *repository.EquipmentRepository,
	broker *redis.Broker,
) *ReturnConfirmService {
	return &ReturnConfirmService{
		db:            db,
		borrowRepo:    borrowRepo,
		returnRepo:    returnRepo,
		equipmentRepo: equipmentRepo,
		broker:        broker,
	}
}

// Confirm settles a return request: the returned units go back to
// available and the allocations are stamped. A second confirmation of
// the same request is refused, and once every allocated unit of the
// borrow request is back the request itself flips to returned.
func (s *ReturnConfirmService) Confirm(ctx context.Context, id uuid.UUID, confirmedBy uuid.UUID, remarks *string) (*repository.ReturnView, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	returnReq, err := s.returnRepo.FindByIDForUpdate(tx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReturnRequestNotFound) {
			return nil, ErrReturnRequestNotFound
		}
		return nil, err
	}
	if returnReq.Confirmed() {
		return nil, ErrReturnAlreadyConfirmed
	}

	items, err := s.returnRepo.ItemsByReturnID(tx, id)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		unitIDs, err := s.borrowRepo.StampReturned(tx, item.BorrowRequestItemID, item.Quantity)
		if err != nil {
			return nil, err
		}
		if len(unitIDs) < item.Quantity {
			return nil, ErrExceedsRemainingQuantity
		}
		if err := s.equipmentRepo.UpdateUnitsStatus(tx, unitIDs, domain.UnitAvailable); err != nil {
			return nil, err
		}
	}

	if err := s.returnRepo.Confirm(tx, id, confirmedBy, remarks); err != nil {
		return nil, err
	}

	outstanding, err := s.borrowRepo.AllocatedUnitIDs(tx, returnReq.BorrowRequestID, true)
	if err != nil {
		return nil, err
	}
	if len(outstanding) == 0 {
		if err := s.borrowRepo.UpdateStatus(tx, returnReq.BorrowRequestID, domain.BorrowReturned); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if err := s.broker.Publish(ctx, EventReturnConfirm, map[string]string{"id": id.String()}); err != nil {
		log.Printf("publish %s: %v", EventReturnConfirm, err)
	}
	return s.returnRepo.FindView(id)
}
