package handlers

import (
	"errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"gearshed/internal/api/services"
)

type AnomalyHandler struct {
	anomalyService *services.AnomalyService
}

func NewAnomalyHandler(anomalyService *services.AnomalyService) *AnomalyHandler {
	return &AnomalyHandler{anomalyService: anomalyService}
}

type MarkFalsePositiveRequest struct {
	IsFalsePositive *bool `json:"isFalsePositive" validate:"required"`
}

// MarkFalsePositive godoc
// @Summary Flag an anomaly verdict as a false positive
// @Tags anomalies
// @Security Bearer
// @Accept json
// @Produce json
// @Param id path string true "borrow request id"
// @Success 200 {object} Envelope
// @Router /borrow-requests/{id}/anomaly [patch]
func (h *AnomalyHandler) MarkFalsePositive(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return ErrBadRequest(c, "invalid borrow request id")
	}

	var req MarkFalsePositiveRequest
	if err := c.Bind(&req); err != nil {
		return ErrBadRequest(c, "invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return ErrBadRequest(c, "invalid request")
	}

	if err := h.anomalyService.MarkFalsePositive(c.Request().Context(), id, *req.IsFalsePositive); err != nil {
		if errors.Is(err, services.ErrAnomalyResultNotFound) {
			return ErrNotFound(c, "no anomaly result for that borrow request")
		}
		return ErrInternalServerError(c)
	}
	return OK(c, nil)
}
