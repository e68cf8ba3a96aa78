package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"gearshed/internal/domain"
	"gearshed/internal/redis"
	"gearshed/internal/repository"
	"gearshed/internal/util"
)

var (
	ErrBorrowRequestNotFound = errors.New("borrow request not found")
	ErrIllegalTransition     = errors.New("illegal borrow status transition")
	ErrInvalidReviewStatus   = errors.New("review status must be approved or rejected")
)

const (
	claimTokenLength   = 6
	claimTokenLifetime = 30 * time.Minute
	claimTokenRetries  = 5
)

type BorrowReviewService struct {
	db            *repository.Database
	borrowRepo    *repository.BorrowRepository
	equipmentRepo *repository.EquipmentRepository
	broker        *redis.Broker
}

func NewBorrowReviewService(
	db *repository.Database,
	borrowRepo *repository.BorrowRepository,
	equipmentRepo *repository.EquipmentRepository,
	broker *redis.Broker,
) *BorrowReviewService {
	return &BorrowReviewService{
		db:            db,
		borrowRepo:    borrowRepo,
		equipmentRepo: equipmentRepo,
		broker:        broker,
	}
}

// Review settles a pending request. Approval reserves one physical unit
// per requested quantity, oldest acquisitions first, and issues the
// claim code the borrower presents at pickup. A single short line is
// enough to sink the whole approval.
func (s *BorrowReviewService) Review(ctx context.Context, id uuid.UUID, status domain.BorrowStatus, reviewedBy uuid.UUID, remarks *string) (*repository.BorrowTransaction, *domain.ClaimToken, error) {
	if status != domain.BorrowApproved && status != domain.BorrowRejected {
		return nil, nil, ErrInvalidReviewStatus
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	req, err := s.borrowRepo.FindByIDForUpdate(tx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBorrowRequestNotFound) {
			return nil, nil, ErrBorrowRequestNotFound
		}
		return nil, nil, err
	}
	if !req.Status.CanTransition(status) {
		return nil, nil, ErrIllegalTransition
	}

	var token *domain.ClaimToken
	if status == domain.BorrowApproved {
		items, err := s.borrowRepo.ItemsByRequestID(tx, id)
		if err != nil {
			return nil, nil, err
		}
		for _, item := range items {
			unitIDs, err := s.equipmentRepo.ReserveUnits(tx, item.EquipmentTypeID, item.Quantity)
			if err != nil {
				if errors.Is(err, repository.ErrNotEnoughUnits) {
					return nil, nil, ErrInsufficientEquipment
				}
				return nil, nil, err
			}
			if err := s.borrowRepo.InsertAllocations(tx, item.ID, unitIDs); err != nil {
				return nil, nil, err
			}
		}

		token, err = s.issueClaimToken(tx, id)
		if err != nil {
			return nil, nil, err
		}
	}

	if err := s.borrowRepo.Review(tx, id, status, reviewedBy, remarks); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	view, err := s.borrowRepo.FindTransaction(id)
	if err != nil {
		return nil, nil, err
	}
	return view, token, nil
}

// issueClaimToken mints a unique numeric code, retrying on the rare
// collision with a live token.
func (s *BorrowReviewService) issueClaimToken(h repository.ExtHandle, requestID uuid.UUID) (*domain.ClaimToken, error) {
	for attempt := 0; attempt < claimTokenRetries; attempt++ {
		code, err := util.GenerateOTP(claimTokenLength)
		if err != nil {
			return nil, err
		}

		token := &domain.ClaimToken{
			Code:            code,
			BorrowRequestID: requestID,
			ExpiresAt:       time.Now().Add(claimTokenLifetime),
		}
		err = s.borrowRepo.CreateClaimToken(h, token)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, repository.ErrClaimTokenExists) {
			return nil, err
		}
	}
	return nil, errors.New("could not mint a unique claim code")
}
