package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"gearshed/internal/domain"
)

var (
	ErrEquipmentNotFound = errors.New("equipment not found")
	ErrNotEnoughUnits    = errors.New("not enough units in status bucket")
)

type EquipmentRepository struct {
	db *Database
}

func NewEquipmentRepository(db *Database) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

// EquipmentFilter narrows the catalog listing. Names matches exact type
// names, Status keeps only types with at least one unit in that bucket,
// Search is a case-insensitive substring over name, brand and model.
type EquipmentFilter struct {
	Names  []string
	Status domain.UnitStatus
	Search string
}

// EquipmentView is one catalog entry: the type plus its quantity
// breakdown by unit status.
type EquipmentView struct {
	domain.EquipmentType
	StatusQuantity []domain.StatusQuantity
}

func (r *EquipmentRepository) UpsertType(h ExtHandle, et *domain.EquipmentType) error {
	query := `
		INSERT INTO equipment_types (name, brand, model, image_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name, lower(coalesce(brand, '')), lower(coalesce(model, ''))) DO UPDATE
		SET image_url = COALESCE(EXCLUDED.image_url, equipment_types.image_url)
		RETURNING id, created_at
	`
	return h.QueryRow(query, et.Name, et.Brand, et.ItemModel, et.ImageURL).
		Scan(&et.ID, &et.CreatedAt)
}

func (r *EquipmentRepository) FindTypeByID(id uuid.UUID) (*domain.EquipmentType, error) {
	query := `
		SELECT id, created_at, name, brand, model, image_url
		FROM equipment_types
		WHERE id = $1
	`

	et := &domain.EquipmentType{}
	err := r.db.Get(et, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEquipmentNotFound
		}
		return nil, err
	}
	return et, nil
}

func (r *EquipmentRepository) UpdateType(et *domain.EquipmentType) error {
	query := `
		UPDATE equipment_types
		SET name = $1, brand = $2, model = $3, image_url = $4
		WHERE id = $5
	`
	result, err := r.db.Exec(query, et.Name, et.Brand, et.ItemModel, et.ImageURL, et.ID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrEquipmentNotFound
	}
	return nil
}

// ListTypes returns the filtered catalog with per-status quantities,
// types with available units first.
func (r *EquipmentRepository) ListTypes(filter EquipmentFilter) ([]*EquipmentView, error) {
	conditions := []string{}
	args := []interface{}{}

	if len(filter.Names) > 0 {
		args = append(args, pq.Array(filter.Names))
		conditions = append(conditions, fmt.Sprintf("et.name = ANY($%d)", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM equipment_units eu WHERE eu.equipment_type_id = et.id AND eu.status = $%d)",
			len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(et.name ILIKE $%d OR et.brand ILIKE $%d OR et.model ILIKE $%d)", n, n, n))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT et.id, et.created_at, et.name, et.brand, et.model, et.image_url
		FROM equipment_types et
		%s
		ORDER BY
			(SELECT COUNT(*) FROM equipment_units eu
			 WHERE eu.equipment_type_id = et.id AND eu.status = 'available') DESC,
			et.name ASC
	`, where)

	types := []*domain.EquipmentType{}
	if err := r.db.Select(&types, query, args...); err != nil {
		return nil, err
	}

	views := make([]*EquipmentView, 0, len(types))
	ids := make([]uuid.UUID, 0, len(types))
	for _, et := range types {
		views = append(views, &EquipmentView{EquipmentType: *et})
		ids = append(ids, et.ID)
	}

	breakdown, err := r.breakdownFor(ids)
	if err != nil {
		return nil, err
	}
	for _, v := range views {
		v.StatusQuantity = breakdown[v.ID]
	}
	return views, nil
}

func (r *EquipmentRepository) FindViewByID(id uuid.UUID) (*EquipmentView, error) {
	et, err := r.FindTypeByID(id)
	if err != nil {
		return nil, err
	}

	breakdown, err := r.breakdownFor([]uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	return &EquipmentView{EquipmentType: *et, StatusQuantity: breakdown[id]}, nil
}

type typeStatusQuantity struct {
	EquipmentTypeID uuid.UUID         `db:"equipment_type_id"`
	Status          domain.UnitStatus `db:"status"`
	Quantity        int               `db:"quantity"`
}

func (r *EquipmentRepository) breakdownFor(ids []uuid.UUID) (map[uuid.UUID][]domain.StatusQuantity, error) {
	out := make(map[uuid.UUID][]domain.StatusQuantity, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `
		SELECT equipment_type_id, status, COUNT(*) AS quantity
		FROM equipment_units
		WHERE equipment_type_id = ANY($1)
		GROUP BY equipment_type_id, status
		ORDER BY status
	`

	rows := []typeStatusQuantity{}
	if err := r.db.Select(&rows, query, pq.Array(ids)); err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.EquipmentTypeID] = append(out[row.EquipmentTypeID], domain.StatusQuantity{
			Status:   row.Status,
			Quantity: row.Quantity,
		})
	}
	return out, nil
}

// DistinctNames lists every equipment type name once, for the catalog
// name filter.
func (r *EquipmentRepository) DistinctNames() ([]string, error) {
	names := []string{}
	err := r.db.Select(&names, `SELECT DISTINCT name FROM equipment_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (r *EquipmentRepository) CreateUnits(h ExtHandle, typeID uuid.UUID, quantity int, acquiredAt time.Time) error {
	query := `
		INSERT INTO equipment_units (equipment_type_id, status, acquired_at)
		SELECT $1, 'available', $2 FROM generate_series(1, $3)
	`
	_, err := h.Exec(query, typeID, acquiredAt, quantity)
	return err
}

func (r *EquipmentRepository) CountByStatus(h ExtHandle, typeID uuid.UUID, status domain.UnitStatus) (int, error) {
	query := `
		SELECT COUNT(*) FROM equipment_units
		WHERE equipment_type_id = $1 AND status = $2
	`
	count := 0
	err := h.Get(&count, query, typeID, status)
	return count, err
}

// ReserveUnits flips n available units of the type to reserved, oldest
// acquisitions first, and returns the unit ids. Rows are locked so two
// concurrent approvals cannot grab the same unit.
func (r *EquipmentRepository) ReserveUnits(h ExtHandle, typeID uuid.UUID, quantity int) ([]uuid.UUID, error) {
	query := `
		UPDATE equipment_units
		SET status = 'reserved'
		WHERE id IN (
			SELECT id FROM equipment_units
			WHERE equipment_type_id = $1 AND status = 'available'
			ORDER BY acquired_at, created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id
	`

	ids := []uuid.UUID{}
	if err := h.Select(&ids, query, typeID, quantity); err != nil {
		return nil, err
	}
	if len(ids) < quantity {
		return nil, ErrNotEnoughUnits
	}
	return ids, nil
}

func (r *EquipmentRepository) UpdateUnitsStatus(h ExtHandle, unitIDs []uuid.UUID, status domain.UnitStatus) error {
	if len(unitIDs) == 0 {
		return nil
	}
	query := `UPDATE equipment_units SET status = $1 WHERE id = ANY($2)`
	_, err := h.Exec(query, status, pq.Array(unitIDs))
	return err
}

// MoveBucket reassigns quantity units of the type from one status to
// another, oldest first. Fails when the source bucket is short.
func (r *EquipmentRepository) MoveBucket(h ExtHandle, typeID uuid.UUID, from, to domain.UnitStatus, quantity int) error {
	query := `
		UPDATE equipment_units
		SET status = $1
		WHERE id IN (
			SELECT id FROM equipment_units
			WHERE equipment_type_id = $2 AND status = $3
			ORDER BY acquired_at, created_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
	`
	result, err := h.Exec(query, to, typeID, from, quantity)
	if err != nil {
		return err
	}
	moved, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if moved < int64(quantity) {
		return ErrNotEnoughUnits
	}
	return nil
}
