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
	ErrBorrowRequestNotFound = errors.New("borrow request not found")
	ErrClaimTokenNotFound    = errors.New("claim token not found")
	ErrClaimTokenExists      = errors.New("claim token code already exists")
)

type BorrowRepository struct {
	db *Database
}

func NewBorrowRepository(db *Database) *BorrowRepository {
	return &BorrowRepository{db: db}
}

func (r *BorrowRepository) Create(h ExtHandle, req *domain.BorrowRequest, items []*domain.BorrowRequestItem) error {
	query := `
		INSERT INTO borrow_requests (requested_by, location, purpose, expected_return_at, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := h.QueryRow(query,
		req.RequestedBy, req.Location, req.Purpose, req.ExpectedReturnAt, req.Status,
	).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		return err
	}

	itemQuery := `
		INSERT INTO borrow_request_items (borrow_request_id, equipment_type_id, quantity)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	for _, item := range items {
		item.BorrowRequestID = req.ID
		if err := h.QueryRow(itemQuery, req.ID, item.EquipmentTypeID, item.Quantity).Scan(&item.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *BorrowRepository) FindByID(h ExtHandle, id uuid.UUID) (*domain.BorrowRequest, error) {
	query := `
		SELECT id, created_at, requested_by, location, purpose, expected_return_at,
			status, reviewed_by, reviewed_at, claimed_at, returned_at, remarks
		FROM borrow_requests
		WHERE id = $1
	`

	req := &domain.BorrowRequest{}
	err := h.Get(req, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBorrowRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

// FindByIDForUpdate locks the request row for the rest of the
// transaction, serializing concurrent lifecycle changes.
func (r *BorrowRepository) FindByIDForUpdate(h ExtHandle, id uuid.UUID) (*domain.BorrowRequest, error) {
	query := `
		SELECT id, created_at, requested_by, location, purpose, expected_return_at,
			status, reviewed_by, reviewed_at, claimed_at, returned_at, remarks
		FROM borrow_requests
		WHERE id = $1
		FOR UPDATE
	`

	req := &domain.BorrowRequest{}
	err := h.Get(req, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBorrowRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

func (r *BorrowRepository) UpdateStatus(h ExtHandle, id uuid.UUID, status domain.BorrowStatus) error {
	var query string
	switch status {
	case domain.BorrowClaimed:
		query = `UPDATE borrow_requests SET status = $1, claimed_at = NOW() WHERE id = $2`
	case domain.BorrowReturned:
		query = `UPDATE borrow_requests SET status = $1, returned_at = NOW() WHERE id = $2`
	default:
		query = `UPDATE borrow_requests SET status = $1 WHERE id = $2`
	}
	_, err := h.Exec(query, status, id)
	return err
}

func (r *BorrowRepository) Review(h ExtHandle, id uuid.UUID, status domain.BorrowStatus, reviewedBy uuid.UUID, remarks *string) error {
	query := `
		UPDATE borrow_requests
		SET status = $1, reviewed_by = $2, reviewed_at = NOW(), remarks = $3
		WHERE id = $4
	`
	_, err := h.Exec(query, status, reviewedBy, remarks, id)
	return err
}

func (r *BorrowRepository) ItemsByRequestID(h ExtHandle, requestID uuid.UUID) ([]*domain.BorrowRequestItem, error) {
	query := `
		SELECT id, borrow_request_id, equipment_type_id, quantity
		FROM borrow_request_items
		WHERE borrow_request_id = $1
		ORDER BY id
	`

	items := []*domain.BorrowRequestItem{}
	if err := h.Select(&items, query, requestID); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *BorrowRepository) FindItemByID(h ExtHandle, itemID uuid.UUID) (*domain.BorrowRequestItem, error) {
	query := `
		SELECT id, borrow_request_id, equipment_type_id, quantity
		FROM borrow_request_items
		WHERE id = $1
	`

	item := &domain.BorrowRequestItem{}
	err := h.Get(item, query, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBorrowRequestNotFound
		}
		return nil, err
	}
	return item, nil
}

func (r *BorrowRepository) InsertAllocations(h ExtHandle, itemID uuid.UUID, unitIDs []uuid.UUID) error {
	query := `
		INSERT INTO borrow_item_units (borrow_request_item_id, equipment_unit_id)
		SELECT $1, unnest($2::uuid[])
	`
	_, err := h.Exec(query, itemID, pq.Array(unitIDs))
	return err
}

// AllocatedUnitIDs lists every physical unit tied to the request,
// optionally only the ones not yet returned.
func (r *BorrowRepository) AllocatedUnitIDs(h ExtHandle, requestID uuid.UUID, outstandingOnly bool) ([]uuid.UUID, error) {
	query := `
		SELECT biu.equipment_unit_id
		FROM borrow_item_units biu
		INNER JOIN borrow_request_items bri ON bri.id = biu.borrow_request_item_id
		WHERE bri.borrow_request_id = $1
	`
	if outstandingOnly {
		query += ` AND biu.returned_at IS NULL`
	}

	ids := []uuid.UUID{}
	if err := h.Select(&ids, query, requestID); err != nil {
		return nil, err
	}
	return ids, nil
}

// OutstandingQuantity is how many units of the line are still out:
// allocated minus already returned.
func (r *BorrowRepository) OutstandingQuantity(h ExtHandle, itemID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM borrow_item_units
		WHERE borrow_request_item_id = $1 AND returned_at IS NULL
	`
	count := 0
	err := h.Get(&count, query, itemID)
	return count, err
}

// StampReturned marks quantity outstanding units of the line as
// returned and hands back their unit ids for the status flip.
func (r *BorrowRepository) StampReturned(h ExtHandle, itemID uuid.UUID, quantity int) ([]uuid.UUID, error) {
	query := `
		UPDATE borrow_item_units
		SET returned_at = NOW()
		WHERE equipment_unit_id IN (
			SELECT equipment_unit_id FROM borrow_item_units
			WHERE borrow_request_item_id = $1 AND returned_at IS NULL
			LIMIT $2
		)
		AND borrow_request_item_id = $1
		RETURNING equipment_unit_id
	`

	ids := []uuid.UUID{}
	if err := h.Select(&ids, query, itemID, quantity); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *BorrowRepository) CreateClaimToken(h ExtHandle, token *domain.ClaimToken) error {
	query := `
		INSERT INTO claim_tokens (code, borrow_request_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	err := h.QueryRow(query, token.Code, token.BorrowRequestID, token.ExpiresAt).
		Scan(&token.CreatedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrClaimTokenExists
		}
		return err
	}
	return nil
}

func (r *BorrowRepository) FindClaimToken(h ExtHandle, code string) (*domain.ClaimToken, error) {
	query := `
		SELECT code, borrow_request_id, expires_at, created_at
		FROM claim_tokens
		WHERE code = $1
	`

	token := &domain.ClaimToken{}
	err := h.Get(token, query, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClaimTokenNotFound
		}
		return nil, err
	}
	return token, nil
}

func (r *BorrowRepository) DeleteClaimTokens(h ExtHandle, requestID uuid.UUID) error {
	query := `DELETE FROM claim_tokens WHERE borrow_request_id = $1`
	_, err := h.Exec(query, requestID)
	return err
}

// ExpiredApprovedRequests lists approved requests whose claim token has
// lapsed, for the expiry worker.
func (r *BorrowRepository) ExpiredApprovedRequests(h ExtHandle, now time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT br.id
		FROM borrow_requests br
		INNER JOIN claim_tokens ct ON ct.borrow_request_id = br.id
		WHERE br.status = 'approved' AND ct.expires_at <= $1
	`

	ids := []uuid.UUID{}
	if err := h.Select(&ids, query, now); err != nil {
		return nil, err
	}
	return ids, nil
}

// TransactionLine is one equipment line of a borrow transaction view.
type TransactionLine struct {
	BorrowRequestItemID uuid.UUID `db:"borrow_request_item_id"`
	EquipmentTypeID     uuid.UUID `db:"equipment_type_id"`
	Name                string    `db:"name"`
	Brand               *string   `db:"brand"`
	ItemModel           *string   `db:"model"`
	ImageURL            *string   `db:"image_url"`
	Quantity            int       `db:"quantity"`
	ReturnedQuantity    int       `db:"returned_quantity"`
}

// BorrowTransaction is the assembled history/queue view of one borrow
// request: people, lines and the anomaly verdict if scored.
type BorrowTransaction struct {
	domain.BorrowRequest
	BorrowerName string                `db:"borrower_name"`
	ReviewerName *string               `db:"reviewer_name"`
	Items        []TransactionLine     `db:"-"`
	Anomaly      *domain.AnomalyResult `db:"-"`
}

// HistoryFilter narrows and orders the transaction listing.
type HistoryFilter struct {
	UserID   *uuid.UUID
	Statuses []domain.BorrowStatus
	Category string
	Search   string
	SortBy   string // borrowedAt | expectedReturnAt | returnedAt | status
	Sort     string // asc | desc
}

var historySortColumns = map[string]string{
	"borrowedAt":       "br.created_at",
	"expectedReturnAt": "br.expected_return_at",
	"returnedAt":       "br.returned_at",
	"status":           "br.status",
}

type transactionRow struct {
	domain.BorrowRequest
	BorrowerName string   `db:"borrower_name"`
	ReviewerName *string  `db:"reviewer_name"`
	Score        *float64 `db:"score"`
	IsAnomaly    *bool    `db:"is_anomaly"`
	IsFalsePos   *bool    `db:"is_false_positive"`
}

func (r *BorrowRepository) ListTransactions(filter HistoryFilter) ([]*BorrowTransaction, error) {
	conditions := []string{}
	args := []interface{}{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conditions = append(conditions, fmt.Sprintf("br.requested_by = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		conditions = append(conditions, fmt.Sprintf("br.status = ANY($%d::borrow_status[])", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM borrow_request_items bri
			INNER JOIN equipment_types et ON et.id = bri.equipment_type_id
			WHERE bri.borrow_request_id = br.id AND et.name = $%d
		)`, len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(`(
			concat_ws(' ', borrower.first_name, borrower.middle_name, borrower.last_name) ILIKE $%d
			OR EXISTS (
				SELECT 1 FROM borrow_request_items bri
				INNER JOIN equipment_types et ON et.id = bri.equipment_type_id
				WHERE bri.borrow_request_id = br.id
					AND (et.name ILIKE $%d OR et.brand ILIKE $%d OR et.model ILIKE $%d)
			)
		)`, n, n, n, n))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	orderBy, ok := historySortColumns[filter.SortBy]
	if !ok {
		orderBy = "br.created_at"
	}
	direction := "DESC"
	if strings.EqualFold(filter.Sort, "asc") {
		direction = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT br.id, br.created_at, br.requested_by, br.location, br.purpose,
			br.expected_return_at, br.status, br.reviewed_by, br.reviewed_at,
			br.claimed_at, br.returned_at, br.remarks,
			concat_ws(' ', borrower.first_name, borrower.middle_name, borrower.last_name) AS borrower_name,
			CASE WHEN reviewer.id IS NULL THEN NULL
				ELSE concat_ws(' ', reviewer.first_name, reviewer.middle_name, reviewer.last_name)
			END AS reviewer_name,
			ar.score, ar.is_anomaly, ar.is_false_positive
		FROM borrow_requests br
		INNER JOIN users borrower ON borrower.id = br.requested_by
		LEFT JOIN users reviewer ON reviewer.id = br.reviewed_by
		LEFT JOIN anomaly_results ar ON ar.borrow_request_id = br.id
		%s
		ORDER BY %s %s NULLS LAST
	`, where, orderBy, direction)

	rows := []transactionRow{}
	if err := r.db.Select(&rows, query, args...); err != nil {
		return nil, err
	}

	transactions := make([]*BorrowTransaction, 0, len(rows))
	ids := make([]uuid.UUID, 0, len(rows))
	for i := range rows {
		row := rows[i]
		tx := &BorrowTransaction{
			BorrowRequest: row.BorrowRequest,
			BorrowerName:  row.BorrowerName,
			ReviewerName:  row.ReviewerName,
		}
		if row.Score != nil && row.IsAnomaly != nil {
			tx.Anomaly = &domain.AnomalyResult{
				BorrowRequestID: row.ID,
				Score:           *row.Score,
				IsAnomaly:       *row.IsAnomaly,
				IsFalsePositive: row.IsFalsePos,
			}
		}
		transactions = append(transactions, tx)
		ids = append(ids, row.ID)
	}

	lines, err := r.linesFor(ids)
	if err != nil {
		return nil, err
	}
	for _, tx := range transactions {
		tx.Items = lines[tx.ID]
	}
	return transactions, nil
}

// FindTransaction assembles the full view of a single request.
func (r *BorrowRepository) FindTransaction(id uuid.UUID) (*BorrowTransaction, error) {
	query := `
		SELECT br.id, br.created_at, br.requested_by, br.location, br.purpose,
			br.expected_return_at, br.status, br.reviewed_by, br.reviewed_at,
			br.claimed_at, br.returned_at, br.remarks,
			concat_ws(' ', borrower.first_name, borrower.middle_name, borrower.last_name) AS borrower_name,
			CASE WHEN reviewer.id IS NULL THEN NULL
				ELSE concat_ws(' ', reviewer.first_name, reviewer.middle_name, reviewer.last_name)
			END AS reviewer_name,
			ar.score, ar.is_anomaly, ar.is_false_positive
		FROM borrow_requests br
		INNER JOIN users borrower ON borrower.id = br.requested_by
		LEFT JOIN users reviewer ON reviewer.id = br.reviewed_by
		LEFT JOIN anomaly_results ar ON ar.borrow_request_id = br.id
		WHERE br.id = $1
	`

	row := transactionRow{}
	err := r.db.Get(&row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBorrowRequestNotFound
		}
		return nil, err
	}

	tx := &BorrowTransaction{
		BorrowRequest: row.BorrowRequest,
		BorrowerName:  row.BorrowerName,
		ReviewerName:  row.ReviewerName,
	}
	if row.Score != nil && row.IsAnomaly != nil {
		tx.Anomaly = &domain.AnomalyResult{
			BorrowRequestID: row.ID,
			Score:           *row.Score,
			IsAnomaly:       *row.IsAnomaly,
			IsFalsePositive: row.IsFalsePos,
		}
	}

	lines, err := r.linesFor([]uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	tx.Items = lines[id]
	return tx, nil
}

type transactionLineRow struct {
	BorrowRequestID uuid.UUID `db:"borrow_request_id"`
	TransactionLine
}

func (r *BorrowRepository) linesFor(requestIDs []uuid.UUID) (map[uuid.UUID][]TransactionLine, error) {
	out := make(map[uuid.UUID][]TransactionLine, len(requestIDs))
	if len(requestIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT bri.borrow_request_id, bri.id AS borrow_request_item_id,
			bri.equipment_type_id, et.name, et.brand, et.model, et.image_url,
			bri.quantity,
			(SELECT COUNT(*) FROM borrow_item_units biu
			 WHERE biu.borrow_request_item_id = bri.id AND biu.returned_at IS NOT NULL
			) AS returned_quantity
		FROM borrow_request_items bri
		INNER JOIN equipment_types et ON et.id = bri.equipment_type_id
		WHERE bri.borrow_request_id = ANY($1)
		ORDER BY bri.id
	`

	rows := []transactionLineRow{}
	if err := r.db.Select(&rows, query, pq.Array(requestIDs)); err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.BorrowRequestID] = append(out[row.BorrowRequestID], row.TransactionLine)
	}
	return out, nil
}
