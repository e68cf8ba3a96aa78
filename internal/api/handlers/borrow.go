package handlers

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"gearshed/internal/api/dto"
	"gearshed/internal/api/middleware"
	"gearshed/internal/api/services"
	"gearshed/internal/domain"
	"gearshed/internal/redis"
	"gearshed/internal/repository"
)

type BorrowHandler struct {
	createService *services.BorrowCreateService
	reviewService *services.BorrowReviewService
	claimService  *services.BorrowClaimService
}

func NewBorrowHandler(db *repository.Database, broker *redis.Broker, scorer *services.AnomalyService) *BorrowHandler {
	borrowRepo := repository.NewBorrowRepository(db)
	equipmentRepo := repository.NewEquipmentRepository(db)

	return &BorrowHandler{
		createService: services.NewBorrowCreateService(db, borrowRepo, equipmentRepo, broker, scorer),
		reviewService: services.NewBorrowReviewService(db, borrowRepo, equipmentRepo, broker),
		claimService:  services.NewBorrowClaimService(db, borrowRepo, equipmentRepo),
	}
}

type BorrowLineRequest struct {
	EquipmentTypeID string `json:"equipmentTypeId" validate:"required,uuid"`
	Quantity        int    `json:"quantity" validate:"required,gt=0"`
}

type CreateBorrowRequest struct {
	Location         string              `json:"location" validate:"required"`
	Purpose          string              `json:"purpose" validate:"required"`
	ExpectedReturnAt time.Time           `json:"expectedReturnAt" validate:"required"`
	Equipments       []BorrowLineRequest `json:"equipments" validate:"required,min=1,dive"`
}

// Create godoc
// @Summary Submit a borrow request
// @Tags borrow-requests
// @Security Bearer
// @Accept json
// @Produce json
// @Success 201 {object} Envelope
// @Router /borrow-requests [post]
func (h *BorrowHandler) Create(c echo.Context) error {
	var req CreateBorrowRequest
	if err := c.Bind(&req); err != nil {
		return ErrBadRequest(c, "invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return ErrBadRequest(c, "invalid request")
	}

	actor, err := middleware.UserFromContext(c.Request().Context())
	if err != nil {
		return ErrUnauthorized(c, "")
	}

	input := services.CreateBorrowInput{
		RequestedBy:      actor.ID,
		Location:         req.Location,
		Purpose:          req.Purpose,
		ExpectedReturnAt: req.ExpectedReturnAt,
	}
	for _, line := range req.Equipments {
		typeID, err := uuid.Parse(line.EquipmentTypeID)
		if err != nil {
			return ErrBadRequest(c, "invalid equipmentTypeId")
		}
		input.Equipments = append(input.Equipments, services.BorrowLineInput{
			EquipmentTypeID: typeID,
			Quantity:        line.Quantity,
		})
	}

	view, err := h.createService.Create(c.Request().Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyEquipmentList):
			return ErrBadRequest(c, "equipment list is empty")
		case errors.Is(err, services.ErrInvalidBorrowQuantity):
			return ErrBadRequest(c, "every quantity must be positive")
		case errors.Is(err, services.ErrInsufficientEquipment):
			return ErrBadRequest(c, "requested quantity exceeds available units")
		case errors.Is(err, services.ErrInvalidInput):
			return ErrBadRequest(c, "location, purpose and expectedReturnAt are required")
		default:
			return ErrInternalServerError(c)
		}
	}
	return Created(c, dto.BorrowTransactionFromView(view))
}

// List godoc
// @Summary List borrow requests by status
// @Tags borrow-requests
// @Security Bearer
// @Produce json
// @Param status query string false "borrow status, defaults to pending"
// @Success 200 {object} Envelope
// @Router /borrow-requests [get]
func (h *BorrowHandler) List(c echo.Context) error {
	status := c.QueryParam("status")
	if status == "" {
		status = string(domain.BorrowPending)
	}
	parsed, err := domain.ParseBorrowStatus(status)
	if err != nil {
		return ErrBadRequest(c, "invalid status")
	}

	views, err := h.createService.List(c.Request().Context(), repository.HistoryFilter{
		Statuses: []domain.BorrowStatus{parsed},
		Sort:     "asc",
	})
	if err != nil {
		return ErrInternalServerError(c)
	}
	return OK(c, dto.BorrowTransactionsFromViews(views))
}

type UpdateBorrowRequest struct {
	Status  string  `json:"status" validate:"required"`
	Remarks *string `json:"remarks"`
}

// Update godoc
// @Summary Move a borrow request through its lifecycle
// @Tags borrow-requests
// @Security Bearer
// @Accept json
// @Produce json
// @Param id path string true "borrow request id"
// @Success 200 {object} Envelope
// @Router /borrow-requests/{id} [patch]
func (h *BorrowHandler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return ErrBadRequest(c, "invalid borrow request id")
	}

	var req UpdateBorrowRequest
	if err := c.Bind(&req); err != nil {
		return ErrBadRequest(c, "invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return ErrBadRequest(c, "invalid request")
	}

	status, err := domain.ParseBorrowStatus(req.Status)
	if err != nil {
		return ErrBadRequest(c, "invalid status")
	}

	actor, err := middleware.UserFromContext(c.Request().Context())
	if err != nil {
		return ErrUnauthorized(c, "")
	}

	switch status {
	case domain.BorrowApproved, domain.BorrowRejected:
		if actor.Role != domain.RoleEquipmentManager {
			return ErrForbidden(c, "review requires an equipment manager")
		}
		view, token, err := h.reviewService.Review(c.Request().Context(), id, status, actor.ID, req.Remarks)
		if err != nil {
			return h.mapLifecycleError(c, err)
		}
		out := dto.BorrowTransactionFromView(view)
		if token != nil {
			return OK(c, map[string]interface{}{
				"request":    out,
				"claimToken": dto.ClaimTokenFromDomain(token),
			})
		}
		return OK(c, out)

	case domain.BorrowClaimed:
		if actor.Role != domain.RoleEquipmentManager {
			return ErrForbidden(c, "claim handover requires an equipment manager")
		}
		view, err := h.claimService.Claim(c.Request().Context(), id)
		if err != nil {
			return h.mapLifecycleError(c, err)
		}
		return OK(c, dto.BorrowTransactionFromView(view))

	default:
		return ErrBadRequest(c, "status must be approved, rejected or claimed")
	}
}

func (h *BorrowHandler) mapLifecycleError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, services.ErrBorrowRequestNotFound):
		return ErrNotFound(c, "borrow request not found")
	case errors.Is(err, services.ErrIllegalTransition):
		return ErrConflict(c, "borrow request cannot move to that status")
	case errors.Is(err, services.ErrInvalidReviewStatus):
		return ErrBadRequest(c, "review status must be approved or rejected")
	case errors.Is(err, services.ErrInsufficientEquipment):
		return ErrConflict(c, "not enough available units to approve")
	default:
		return ErrInternalServerError(c)
	}
}

// ResolveClaimToken godoc
// @Summary Resolve a scanned claim code
// @Tags borrow-requests
// @Security Bearer
// @Produce json
// @Param code path string true "claim code"
// @Success 200 {object} Envelope
// @Router /claim-tokens/{code} [get]
func (h *BorrowHandler) ResolveClaimToken(c echo.Context) error {
	view, err := h.claimService.Resolve(c.Request().Context(), c.Param("code"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrClaimTokenNotFound), errors.Is(err, services.ErrClaimTokenExpired):
			return ErrNotFound(c, "claim code is unknown or expired")
		default:
			return ErrInternalServerError(c)
		}
	}
	return OK(c, dto.BorrowTransactionFromView(view))
}

// History godoc
// @Summary Browse borrow transactions
// @Tags borrow-requests
// @Security Bearer
// @Produce json
// @Param userId query string false "filter by borrower"
// @Param status query string false "comma separated statuses"
// @Param category query string false "equipment type name"
// @Param search query string false "substring over people and equipment"
// @Param sortBy query string false "borrowedAt | expectedReturnAt | returnedAt | status"
// @Param sort query string false "asc | desc"
// @Success 200 {object} Envelope
// @Router /borrow-history [get]
func (h *BorrowHandler) History(c echo.Context) error {
	filter := repository.HistoryFilter{
		Category: c.QueryParam("category"),
		Search:   c.QueryParam("search"),
		SortBy:   c.QueryParam("sortBy"),
		Sort:     c.QueryParam("sort"),
	}

	if userID := c.QueryParam("userId"); userID != "" {
		parsed, err := uuid.Parse(userID)
		if err != nil {
			return ErrBadRequest(c, "invalid userId")
		}
		filter.UserID = &parsed
	}
	if statuses := c.QueryParam("status"); statuses != "" {
		for _, s := range splitCSV(statuses) {
			parsed, err := domain.ParseBorrowStatus(s)
			if err != nil {
				return ErrBadRequest(c, "invalid status")
			}
			filter.Statuses = append(filter.Statuses, parsed)
		}
	}

	views, err := h.createService.List(c.Request().Context(), filter)
	if err != nil {
		return ErrInternalServerError(c)
	}
	return OK(c, dto.BorrowTransactionsFromViews(views))
}

// BorrowedItems godoc
// @Summary List claimed requests with outstanding units
// @Tags borrow-requests
// @Security Bearer
// @Produce json
// @Param userId query string false "filter by borrower"
// @Success 200 {object} Envelope
// @Router /borrowed-items [get]
func (h *BorrowHandler) BorrowedItems(c echo.Context) error {
	filter := repository.HistoryFilter{
		Statuses: []domain.BorrowStatus{domain.BorrowClaimed},
	}
	if userID := c.QueryParam("userId"); userID != "" {
		parsed, err := uuid.Parse(userID)
		if err != nil {
			return ErrBadRequest(c, "invalid userId")
		}
		filter.UserID = &parsed
	}

	views, err := h.createService.List(c.Request().Context(), filter)
	if err != nil {
		return ErrInternalServerError(c)
	}
	return OK(c, dto.BorrowTransactionsFromViews(views))
}
