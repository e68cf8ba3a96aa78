package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"gearshed/internal/domain"
	"gearshed/internal/repository"
)

var (
	ErrClaimTokenNotFound = errors.New("claim token not found")
	ErrClaimTokenExpired  = errors.New("claim token expired")
)

type BorrowClaimService struct {
	db            *repository.Database
	borrowRepo    *repository.BorrowRepository
	equipmentRepo *repository.EquipmentRepository
}

func NewBorrowClaimService(
	db *repository.Database,
	borrowRepo *repository.BorrowRepository,
	equipmentRepo *repository.EquipmentRepository,
) *BorrowClaimService {
	return &BorrowClaimService{
		db:            db,
		borrowRepo:    borrowRepo,
		equipmentRepo: equipmentRepo,
	}
}

// Resolve maps a scanned claim code to its borrow transaction. The code
// is opaque to the caller; lookup is the only interpretation.
func (s *BorrowClaimService) Resolve(ctx context.Context, code string) (*repository.BorrowTransaction, error) {
	token, err := s.borrowRepo.FindClaimToken(s.db, code)
	if err != nil {
		if errors.Is(err, repository.ErrClaimTokenNotFound) {
			return nil, ErrClaimTokenNotFound
		}
		return nil, err
	}
	if token.Expired(time.Now()) {
		return nil, ErrClaimTokenExpired
	}
	return s.borrowRepo.FindTransaction(token.BorrowRequestID)
}

// Claim hands the reserved units over: approved becomes claimed, the
// allocated units flip to borrowed and the claim code is retired.
func (s *BorrowClaimService) Claim(ctx context.Context, id uuid.UUID) (*repository.BorrowTransaction, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	req, err := s.borrowRepo.FindByIDForUpdate(tx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBorrowRequestNotFound) {
			return nil, ErrBorrowRequestNotFound
		}
		return nil, err
	}
	if !req.Status.CanTransition(domain.BorrowClaimed) {
		return nil, ErrIllegalTransition
	}

	unitIDs, err := s.borrowRepo.AllocatedUnitIDs(tx, id, true)
	if err != nil {
		return nil, err
	}
	if err := s.equipmentRepo.UpdateUnitsStatus(tx, unitIDs, domain.UnitBorrowed); err != nil {
		return nil, err
	}
	if err := s.borrowRepo.UpdateStatus(tx, id, domain.BorrowClaimed); err != nil {
		return nil, err
	}
	if err := s.borrowRepo.DeleteClaimTokens(tx, id); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.borrowRepo.FindTransaction(id)
}
