package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"gearshed/internal/domain"
)

var ErrReturnRequestNotFound = errors.New("return request not found")

type ReturnRepository struct {
	db *Database
}

func NewReturnRepository(db *Database) *ReturnRepository {
	return &ReturnRepository{db: db}
}

func (r *ReturnRepository) Create(h ExtHandle, req *domain.ReturnRequest, items []*domain.ReturnRequestItem) error {
	query := `
		INSERT INTO return_requests (borrow_request_id)
		VALUES ($1)
		RETURNING id, created_at
	`
	if err := h.QueryRow(query, req.BorrowRequestID).Scan(&req.ID, &req.CreatedAt); err != nil {
		return err
	}

	itemQuery := `
		INSERT INTO return_request_items (return_request_id, borrow_request_item_id, quantity)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	for _, item := range items {
		item.ReturnRequestID = req.ID
		if err := h.QueryRow(itemQuery, req.ID, item.BorrowRequestItemID, item.Quantity).Scan(&item.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *ReturnRepository) FindByID(h ExtHandle, id uuid.UUID) (*domain.ReturnRequest, error) {
	query := `
		SELECT id, created_at, borrow_request_id, confirmed_by, confirmed_at, remarks
		FROM return_requests
		WHERE id = $1
	`

	req := &domain.ReturnRequest{}
	err := h.Get(req, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReturnRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

// FindByIDForUpdate locks the row so two confirmations of the same
// return request cannot interleave.
func (r *ReturnRepository) FindByIDForUpdate(h ExtHandle, id uuid.UUID) (*domain.ReturnRequest, error) {
	query := `
		SELECT id, created_at, borrow_request_id, confirmed_by, confirmed_at, remarks
		FROM return_requests
		WHERE id = $1
		FOR UPDATE
	`

	req := &domain.ReturnRequest{}
	err := h.Get(req, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReturnRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

func (r *ReturnRepository) ItemsByReturnID(h ExtHandle, returnID uuid.UUID) ([]*domain.ReturnRequestItem, error) {
	query := `
		SELECT id, return_request_id, borrow_request_item_id, quantity
		FROM return_request_items
		WHERE return_request_id = $1
		ORDER BY id
	`

	items := []*domain.ReturnRequestItem{}
	if err := h.Select(&items, query, returnID); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ReturnRepository) Confirm(h ExtHandle, id uuid.UUID, confirmedBy uuid.UUID, remarks *string) error {
	query := `
		UPDATE return_requests
		SET confirmed_by = $1, confirmed_at = NOW(), remarks = $2
		WHERE id = $3
	`
	_, err := h.Exec(query, confirmedBy, remarks, id)
	return err
}

// ReturnView is the listing/scan view of one return request: borrower
// plus the lines being handed back.
type ReturnView struct {
	domain.ReturnRequest
	BorrowRequestStatus domain.BorrowStatus `db:"borrow_request_status"`
	BorrowerID          uuid.UUID           `db:"borrower_id"`
	BorrowerName        string              `db:"borrower_name"`
	Items               []ReturnLine        `db:"-"`
}

type ReturnLine struct {
	ReturnRequestItemID uuid.UUID `db:"return_request_item_id"`
	BorrowRequestItemID uuid.UUID `db:"borrow_request_item_id"`
	EquipmentTypeID     uuid.UUID `db:"equipment_type_id"`
	Name                string    `db:"name"`
	Brand               *string   `db:"brand"`
	ItemModel           *string   `db:"model"`
	Quantity            int       `db:"quantity"`
}

const returnViewSelect = `
	SELECT rr.id, rr.created_at, rr.borrow_request_id, rr.confirmed_by,
		rr.confirmed_at, rr.remarks,
		br.status AS borrow_request_status,
		borrower.id AS borrower_id,
		concat_ws(' ', borrower.first_name, borrower.middle_name, borrower.last_name) AS borrower_name
	FROM return_requests rr
	INNER JOIN borrow_requests br ON br.id = rr.borrow_request_id
	INNER JOIN users borrower ON borrower.id = br.requested_by
`

func (r *ReturnRepository) FindView(id uuid.UUID) (*ReturnView, error) {
	view := &ReturnView{}
	err := r.db.Get(view, returnViewSelect+` WHERE rr.id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReturnRequestNotFound
		}
		return nil, err
	}

	if view.Items, err = r.viewLines(id); err != nil {
		return nil, err
	}
	return view, nil
}

// ListUnconfirmed lists pending return requests, optionally for one
// borrower, newest first unless asked otherwise.
func (r *ReturnRepository) ListUnconfirmed(userID *uuid.UUID, sort string) ([]*ReturnView, error) {
	query := returnViewSelect + ` WHERE rr.confirmed_at IS NULL`
	args := []interface{}{}
	if userID != nil {
		query += ` AND br.requested_by = $1`
		args = append(args, *userID)
	}
	direction := "DESC"
	if strings.EqualFold(sort, "asc") {
		direction = "ASC"
	}
	query += ` ORDER BY rr.created_at ` + direction

	views := []*ReturnView{}
	if err := r.db.Select(&views, query, args...); err != nil {
		return nil, err
	}

	for _, view := range views {
		items, err := r.viewLines(view.ID)
		if err != nil {
			return nil, err
		}
		view.Items = items
	}
	return views, nil
}

func (r *ReturnRepository) viewLines(returnID uuid.UUID) ([]ReturnLine, error) {
	query := `
		SELECT rri.id AS return_request_item_id, rri.borrow_request_item_id,
			bri.equipment_type_id, et.name, et.brand, et.model, rri.quantity
		FROM return_request_items rri
		INNER JOIN borrow_request_items bri ON bri.id = rri.borrow_request_item_id
		INNER JOIN equipment_types et ON et.id = bri.equipment_type_id
		WHERE rri.return_request_id = $1
		ORDER BY rri.id
	`

	lines := []ReturnLine{}
	if err := r.db.Select(&lines, query, returnID); err != nil {
		return nil, err
	}
	return lines, nil
}
