package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"gearshed/internal/domain"
	"gearshed/internal/repository"
)

var (
	ErrBorrowRequestNotClaimed  = errors.New("borrow request is not claimed")
	ErrInvalidReturnQuantity    = errors.New("return quantity must be positive")
	ErrExceedsRemainingQuantity = errors.New("return quantity exceeds outstanding units")
	ErrItemNotInRequest         = errors.New("item does not belong to the borrow request")
)

type ReturnLineInput struct {
	BorrowRequestItemID uuid.UUID
	Quantity            int
}

type CreateReturnInput struct {
	BorrowRequestID uuid.UUID
	Items           []ReturnLineInput
}

type ReturnCreateService struct {
	db         *repository.Database
	borrowRepo *repository.BorrowRepository
	returnRepo *repository.ReturnRepository
}

func NewReturnCreateService(
	db *repository.Database,
	borrowRepo *repository.BorrowRepository,
	returnRepo *repository.ReturnRepository,
) *ReturnCreateService {
	return &ReturnCreateService{
		db:         db,
		borrowRepo: borrowRepo,
		returnRepo: returnRepo,
	}
}

// Create opens a return request for part or all of a claimed borrow.
// Each line is bounded by the units still out on that borrow line.
func (s *ReturnCreateService) Create(ctx context.Context, input CreateReturnInput) (*repository.ReturnView, error) {
	if len(input.Items) == 0 {
		return nil, ErrEmptyEquipmentList
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	req, err := s.borrowRepo.FindByIDForUpdate(tx, input.BorrowRequestID)
	if err != nil {
		if errors.Is(err, repository.ErrBorrowRequestNotFound) {
			return nil, ErrBorrowRequestNotFound
		}
		return nil, err
	}
	if req.Status != domain.BorrowClaimed {
		return nil, ErrBorrowRequestNotClaimed
	}

	items := make([]*domain.ReturnRequestItem, 0, len(input.Items))
	for _, line := range input.Items {
		if line.Quantity <= 0 {
			return nil, ErrInvalidReturnQuantity
		}

		item, err := s.borrowRepo.FindItemByID(tx, line.BorrowRequestItemID)
		if err != nil {
			if errors.Is(err, repository.ErrBorrowRequestNotFound) {
				return nil, ErrItemNotInRequest
			}
			return nil, err
		}
		if item.BorrowRequestID != input.BorrowRequestID {
			return nil, ErrItemNotInRequest
		}

		outstanding, err := s.borrowRepo.OutstandingQuantity(tx, item.ID)
		if err != nil {
			return nil, err
		}
		if line.Quantity > outstanding {
			return nil, ErrExceedsRemainingQuantity
		}

		items = append(items, &domain.ReturnRequestItem{
			BorrowRequestItemID: item.ID,
			Quantity:            line.Quantity,
		})
	}

	returnReq := &domain.ReturnRequest{BorrowRequestID: input.BorrowRequestID}
	if err := s.returnRepo.Create(tx, returnReq, items); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.returnRepo.FindView(returnReq.ID)
}

// Get resolves a scanned return request id to its view.
func (s *ReturnCreateService) Get(ctx context.Context, id uuid.UUID) (*repository.ReturnView, error) {
	view, err := s.returnRepo.FindView(id)
	if err != nil {
		if errors.Is(err, repository.ErrReturnRequestNotFound) {
			return nil, ErrReturnRequestNotFound
		}
		return nil, err
	}
	return view, nil
}

func (s *ReturnCreateService) ListUnconfirmed(ctx context.Context, userID *uuid.UUID, sort string) ([]*repository.ReturnView, error) {
	return s.returnRepo.ListUnconfirmed(userID, sort)
}
