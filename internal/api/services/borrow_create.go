package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"gearshed/internal/domain"
	"gearshed/internal/redis"
	"gearshed/internal/repository"
)

var (
	ErrEmptyEquipmentList    = errors.New("equipment list is empty")
	ErrInvalidBorrowQuantity = errors.New("borrow quantity must be positive")
	ErrInsufficientEquipment = errors.New("requested quantity exceeds available units")
)

type BorrowLineInput struct {
	EquipmentTypeID uuid.UUID
	Quantity        int
}

type CreateBorrowInput struct {
	RequestedBy      uuid.UUID
	Location         string
	Purpose          string
	ExpectedReturnAt time.Time
	Equipments       []BorrowLineInput
}

type BorrowCreateService struct {
	db            *repository.Database
	borrowRepo    *repository.BorrowRepository
	equipmentRepo *repository.EquipmentRepository
	broker        *redis.Broker
	scorer        *AnomalyService
}

func NewBorrowCreateService(
	db *repository.Database,
	borrowRepo *repository.BorrowRepository,
	equipmentRepo *repository.EquipmentRepository,
	broker *redis.Broker,
	scorer *AnomalyService,
) *BorrowCreateService {
	return &BorrowCreateService{
		db:            db,
		borrowRepo:    borrowRepo,
		equipmentRepo: equipmentRepo,
		broker:        broker,
		scorer:        scorer,
	}
}

// Create submits a pending borrow request. Every line must name a known
// equipment type with a positive quantity no greater than the units
// available at submission time.
func (s *BorrowCreateService) Create(ctx context.Context, input CreateBorrowInput) (*repository.BorrowTransaction, error) {
	if len(input.Equipments) == 0 {
		return nil, ErrEmptyEquipmentList
	}
	if input.Location == "" || input.Purpose == "" || input.ExpectedReturnAt.IsZero() {
		return nil, ErrInvalidInput
	}
	for _, line := range input.Equipments {
		if line.Quantity <= 0 {
			return nil, ErrInvalidBorrowQuantity
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	items := make([]*domain.BorrowRequestItem, 0, len(input.Equipments))
	for _, line := range input.Equipments {
		available, err := s.equipmentRepo.CountByStatus(tx, line.EquipmentTypeID, domain.UnitAvailable)
		if err != nil {
			return nil, err
		}
		if line.Quantity > available {
			return nil, ErrInsufficientEquipment
		}
		items = append(items, &domain.BorrowRequestItem{
			EquipmentTypeID: line.EquipmentTypeID,
			Quantity:        line.Quantity,
		})
	}

	req := &domain.BorrowRequest{
		RequestedBy:      input.RequestedBy,
		Location:         input.Location,
		Purpose:          input.Purpose,
		ExpectedReturnAt: input.ExpectedReturnAt,
		Status:           domain.BorrowPending,
	}
	if err := s.borrowRepo.Create(tx, req, items); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if err := s.broker.Publish(ctx, EventEquipmentCreate, map[string]string{"id": req.ID.String()}); err != nil {
		log.Printf("publish %s: %v", EventEquipmentCreate, err)
	}

	if s.scorer != nil {
		go s.scorer.Score(context.WithoutCancel(ctx), req.ID)
	}

	return s.borrowRepo.FindTransaction(req.ID)
}

// ListPending is the manager review queue.
func (s *BorrowCreateService) List(ctx context.Context, filter repository.HistoryFilter) ([]*repository.BorrowTransaction, error) {
	return s.borrowRepo.ListTransactions(filter)
}
