package handlers

import (
	"errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"gearshed/internal/api/dto"
	"gearshed/internal/api/middleware"
	"gearshed/internal/api/services"
	"gearshed/internal/redis"
	"gearshed/internal/repository"
)

type ReturnHandler struct {
	createService  *services.ReturnCreateService
	confirmService *services.ReturnConfirmService
}

func NewReturnHandler(db *repository.Database, broker *redis.Broker) *ReturnHandler {
	borrowRepo := repository.NewBorrowRepository(db)
	returnRepo := repository.NewReturnRepository(db)
	equipmentRepo := repository.NewEquipmentRepository(db)

	return &ReturnHandler{
		createService:  services.NewReturnCreateService(db, borrowRepo, returnRepo),
		confirmService: services.NewReturnConfirmService(db, borrowRepo, returnRepo, equipmentRepo, broker),
	}
}

type ReturnLineRequest struct {
	BorrowRequestItemID string `json:"borrowRequestItemId" validate:"required,uuid"`
	Quantity            int    `json:"quantity" validate:"required,gt=0"`
}

type CreateReturnRequest struct {
	BorrowRequestID string              `json:"borrowRequestId" validate:"required,uuid"`
	Items           []ReturnLineRequest `json:"items" validate:"required,min=1,dive"`
}

// Create godoc
// @Summary Open a return request
// @Tags return-requests
// @Security Bearer
// @Accept json
// @Produce json
// @Success 201 {object} Envelope
// @Router /return-requests [post]
func (h *ReturnHandler) Create(c echo.Context) error {
	var req CreateReturnRequest
	if err := c.Bind(&req); err != nil {
		return ErrBadRequest(c, "invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return ErrBadRequest(c, "invalid request")
	}

	borrowRequestID, err := uuid.Parse(req.BorrowRequestID)
	if err != nil {
		return ErrBadRequest(c, "invalid borrowRequestId")
	}

	input := services.CreateReturnInput{BorrowRequestID: borrowRequestID}
	for _, line := range req.Items {
		itemID, err := uuid.Parse(line.BorrowRequestItemID)
		if err != nil {
			return ErrBadRequest(c, "invalid borrowRequestItemId")
		}
		input.Items = append(input.Items, services.ReturnLineInput{
			BorrowRequestItemID: itemID,
			Quantity:            line.Quantity,
		})
	}

	view, err := h.createService.Create(c.Request().Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBorrowRequestNotFound):
			return ErrNotFound(c, "borrow request not found")
		case errors.Is(err, services.ErrBorrowRequestNotClaimed):
			return ErrConflict(c, "borrow request is not claimed")
		case errors.Is(err, services.ErrEmptyEquipmentList):
			return ErrBadRequest(c, "items list is empty")
		case errors.Is(err, services.ErrInvalidReturnQuantity):
			return ErrBadRequest(c, "every quantity must be positive")
		case errors.Is(err, services.ErrExceedsRemainingQuantity):
			return ErrBadRequest(c, "return quantity exceeds outstanding units")
		case errors.Is(err, services.ErrItemNotInRequest):
			return ErrBadRequest(c, "item does not belong to the borrow request")
		default:
			return ErrInternalServerError(c)
		}
	}
	return Created(c, dto.ReturnRequestFromView(view))
}

// List godoc
// @Summary List unconfirmed return requests
// @Tags return-requests
// @Security Bearer
// @Produce json
// @Param userId query string false "filter by borrower"
// @Param sort query string false "asc | desc by creation time"
// @Success 200 {object} Envelope
// @Router /return-requests [get]
func (h *ReturnHandler) List(c echo.Context) error {
	var userID *uuid.UUID
	if v := c.QueryParam("userId"); v != "" {
		parsed, err := uuid.Parse(v)
		if err != nil {
			return ErrBadRequest(c, "invalid userId")
		}
		userID = &parsed
	}

	views, err := h.createService.ListUnconfirmed(c.Request().Context(), userID, c.QueryParam("sort"))
	if err != nil {
		return ErrInternalServerError(c)
	}
	return OK(c, dto.ReturnRequestsFromViews(views))
}

// Get godoc
// @Summary Resolve a scanned return request id
// @Tags return-requests
// @Security Bearer
// @Produce json
// @Param id path string true "return request id"
// @Success 200 {object} Envelope
// @Router /return-requests/{id} [get]
func (h *ReturnHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return ErrNotFound(c, "return request not found")
	}

	view, err := h.createService.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrReturnRequestNotFound) {
			return ErrNotFound(c, "return request not found")
		}
		return ErrInternalServerError(c)
	}
	if view.Confirmed() {
		return ErrNotFound(c, "return request already confirmed")
	}
	return OK(c, dto.ReturnRequestFromView(view))
}

type ConfirmReturnRequest struct {
	Remarks *string `json:"remarks"`
}

// Confirm godoc
// @Summary Confirm a return request
// @Tags return-requests
// @Security Bearer
// @Accept json
// @Produce json
// @Param id path string true "return request id"
// @Success 200 {object} Envelope
// @Router /return-requests/{id} [patch]
func (h *ReturnHandler) Confirm(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return ErrBadRequest(c, "invalid return request id")
	}

	var req ConfirmReturnRequest
	if err := c.Bind(&req); err != nil {
		return ErrBadRequest(c, "invalid request")
	}

	actor, err := middleware.UserFromContext(c.Request().Context())
	if err != nil {
		return ErrUnauthorized(c, "")
	}

	view, err := h.confirmService.Confirm(c.Request().Context(), id, actor.ID, req.Remarks)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrReturnRequestNotFound):
			return ErrNotFound(c, "return request not found")
		case errors.Is(err, services.ErrReturnAlreadyConfirmed):
			return ErrConflict(c, "return request already confirmed")
		case errors.Is(err, services.ErrExceedsRemainingQuantity):
			return ErrConflict(c, "return request no longer matches outstanding units")
		default:
			return ErrInternalServerError(c)
		}
	}
	return OK(c, dto.ReturnRequestFromView(view))
}
