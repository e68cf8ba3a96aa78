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
	ErrEquipmentNotFound = errors.New("equipment not found")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrSameStatus        = errors.New("old and new status must differ")
	ErrStatusNotMovable  = errors.New("status bucket is owned by the borrow lifecycle")
	ErrNotEnoughUnits    = errors.New("not enough units in source bucket")
)

const (
	// EventEquipmentCreate invalidates catalog caches.
	EventEquipmentCreate = "equipment:create"
	// EventEquipmentAnomaly signals a scored borrow request.
	EventEquipmentAnomaly = "equipment:anomaly"
	// EventReturnConfirm signals a confirmed return.
	EventReturnConfirm = "return-request:confirm"

	namesCacheKey = "all"
)

type CreateEquipmentInput struct {
	Name       string
	Brand      string
	ItemModel  string
	ImageURL   string
	Quantity   int
	AcquiredAt time.Time
}

type UpdateEquipmentInput struct {
	Name      *string
	Brand     *string
	ItemModel *string
	ImageURL  *string
}

type ReallocateInput struct {
	OldStatus string
	NewStatus string
	Quantity  int
}

type EquipmentService struct {
	db            *repository.Database
	equipmentRepo *repository.EquipmentRepository
	reallocRepo   *repository.ReallocationRepository
	broker        *redis.Broker
	namesCache    *redis.JSONCache[[]string]
}

func NewEquipmentService(
	db *repository.Database,
	equipmentRepo *repository.EquipmentRepository,
	reallocRepo *repository.ReallocationRepository,
	broker *redis.Broker,
	namesCache *redis.JSONCache[[]string],
) *EquipmentService {
	return &EquipmentService{
		db:            db,
		equipmentRepo: equipmentRepo,
		reallocRepo:   reallocRepo,
		broker:        broker,
		namesCache:    namesCache,
	}
}

func (s *EquipmentService) List(ctx context.Context, filter repository.EquipmentFilter) ([]*repository.EquipmentView, error) {
	return s.equipmentRepo.ListTypes(filter)
}

func (s *EquipmentService) Get(ctx context.Context, id uuid.UUID) (*repository.EquipmentView, error) {
	view, err := s.equipmentRepo.FindViewByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrEquipmentNotFound) {
			return nil, ErrEquipmentNotFound
		}
		return nil, err
	}
	return view, nil
}

// Create registers the type (or reuses an existing one with the same
// name/brand/model) and mints quantity available units.
func (s *EquipmentService) Create(ctx context.Context, input CreateEquipmentInput) (*repository.EquipmentView, error) {
	if input.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if input.Name == "" {
		return nil, ErrInvalidInput
	}
	acquiredAt := input.AcquiredAt
	if acquiredAt.IsZero() {
		acquiredAt = time.Now()
	}

	et := &domain.EquipmentType{Name: input.Name}
	if input.Brand != "" {
		et.Brand = &input.Brand
	}
	if input.ItemModel != "" {
		et.ItemModel = &input.ItemModel
	}
	if input.ImageURL != "" {
		et.ImageURL = &input.ImageURL
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.equipmentRepo.UpsertType(tx, et); err != nil {
		return nil, err
	}
	if err := s.equipmentRepo.CreateUnits(tx, et.ID, input.Quantity, acquiredAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.invalidateNames(ctx)
	if err := s.broker.Publish(ctx, EventEquipmentCreate, map[string]string{"id": et.ID.String()}); err != nil {
		log.Printf("publish %s: %v", EventEquipmentCreate, err)
	}

	return s.Get(ctx, et.ID)
}

func (s *EquipmentService) Update(ctx context.Context, id uuid.UUID, input UpdateEquipmentInput) (*repository.EquipmentView, error) {
	et, err := s.equipmentRepo.FindTypeByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrEquipmentNotFound) {
			return nil, ErrEquipmentNotFound
		}
		return nil, err
	}

	if input.Name != nil {
		et.Name = *input.Name
	}
	if input.Brand != nil {
		et.Brand = input.Brand
	}
	if input.ItemModel != nil {
		et.ItemModel = input.ItemModel
	}
	if input.ImageURL != nil {
		et.ImageURL = input.ImageURL
	}

	if err := s.equipmentRepo.UpdateType(et); err != nil {
		return nil, err
	}

	s.invalidateNames(ctx)
	return s.Get(ctx, id)
}

// Names lists distinct type names for the catalog filter, served from
// the redis cache when warm.
func (s *EquipmentService) Names(ctx context.Context) ([]string, error) {
	if cached, err := s.namesCache.Get(ctx, namesCacheKey); err == nil && cached != nil {
		return *cached, nil
	}

	names, err := s.equipmentRepo.DistinctNames()
	if err != nil {
		return nil, err
	}
	if err := s.namesCache.Set(ctx, namesCacheKey, &names); err != nil {
		log.Printf("cache equipment names: %v", err)
	}
	return names, nil
}

// Reallocate moves quantity units of the type between status buckets
// and records the move. reserved and borrowed cannot be touched here.
func (s *EquipmentService) Reallocate(ctx context.Context, typeID uuid.UUID, movedBy uuid.UUID, input ReallocateInput) (*domain.Reallocation, error) {
	oldStatus, err := domain.ParseUnitStatus(input.OldStatus)
	if err != nil {
		return nil, ErrInvalidInput
	}
	newStatus, err := domain.ParseUnitStatus(input.NewStatus)
	if err != nil {
		return nil, ErrInvalidInput
	}
	if oldStatus == newStatus {
		return nil, ErrSameStatus
	}
	if !oldStatus.Reallocatable() || !newStatus.Reallocatable() {
		return nil, ErrStatusNotMovable
	}
	if input.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	if _, err := s.equipmentRepo.FindTypeByID(typeID); err != nil {
		if errors.Is(err, repository.ErrEquipmentNotFound) {
			return nil, ErrEquipmentNotFound
		}
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.equipmentRepo.MoveBucket(tx, typeID, oldStatus, newStatus, input.Quantity); err != nil {
		if errors.Is(err, repository.ErrNotEnoughUnits) {
			return nil, ErrNotEnoughUnits
		}
		return nil, err
	}

	realloc := &domain.Reallocation{
		EquipmentTypeID: typeID,
		FromStatus:      oldStatus,
		ToStatus:        newStatus,
		Quantity:        input.Quantity,
		MovedBy:         movedBy,
	}
	if err := s.reallocRepo.Create(tx, realloc); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if err := s.broker.Publish(ctx, EventEquipmentCreate, map[string]string{"id": typeID.String()}); err != nil {
		log.Printf("publish %s: %v", EventEquipmentCreate, err)
	}
	return realloc, nil
}

func (s *EquipmentService) invalidateNames(ctx context.Context) {
	if err := s.namesCache.Delete(ctx, namesCacheKey); err != nil {
		log.Printf("invalidate equipment names cache: %v", err)
	}
}
