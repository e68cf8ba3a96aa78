package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	goredis "github.com/redis/go-redis/v9"

	"gearshed/internal/api/dto"
	"gearshed/internal/api/middleware"
	"gearshed/internal/api/services"
	"gearshed/internal/domain"
	"gearshed/internal/redis"
	"gearshed/internal/repository"
	"gearshed/internal/upload"
)

const namesCacheTTL = 5 * time.Minute

type EquipmentHandler struct {
	equipmentService *services.EquipmentService
	uploads          *upload.Store
}

func NewEquipmentHandler(db *repository.Database, rdb *goredis.Client, broker *redis.Broker, uploads *upload.Store) *EquipmentHandler {
	service := services.NewEquipmentService(
		db,
		repository.NewEquipmentRepository(db),
		repository.NewReallocationRepository(db),
		broker,
		redis.NewJSONCache[[]string](rdb, "equipment-names", namesCacheTTL),
	)
	return &EquipmentHandler{equipmentService: service, uploads: uploads}
}

// List godoc
// @Summary Browse the equipment catalog
// @Tags equipments
// @Security Bearer
// @Produce json
// @Param name query string false "comma separated type names"
// @Param status query string false "keep types with units in this status"
// @Param search query string false "substring over name, brand and model"
// @Success 200 {object} Envelope
// @Router /equipments [get]
func (h *EquipmentHandler) List(c echo.Context) error {
	filter := repository.EquipmentFilter{Search: c.QueryParam("search")}

	if names := c.QueryParam("name"); names != "" {
		for _, name := range strings.Split(names, ",") {
			if name = strings.TrimSpace(name); name != "" {
				filter.Names = append(filter.Names, name)
			}
		}
	}
	if status := c.QueryParam("status"); status != "" {
		parsed, err := domain.ParseUnitStatus(status)
		if err != nil {
			return ErrBadRequest(c, "invalid status filter")
		}
		filter.Status = parsed
	}

	views, err := h.equipmentService.List(c.Request().Context(), filter)
	if err != nil {
		return ErrInternalServerError(c)
	}
	return OK(c, dto.EquipmentsFromViews(views))
}

// Get godoc
// @Summary Fetch one equipment type with its breakdown
// @Tags equipments
// @Security Bearer
// @Produce json
// @Param id path string true "equipment type id"
// @Success 200 {object} Envelope
// @Router /equipments/{id} [get]
func (h *EquipmentHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return ErrBadRequest(c, "invalid equipment id")
	}

	view, err := h.equipmentService.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrEquipmentNotFound) {
			return ErrNotFound(c, "equipment not found")
		}
		return ErrInternalServerError(c)
	}
	return OK(c, dto.EquipmentFromView(view))
}

// Create godoc
// @Summary Register equipment units
// @Tags equipments
// @Security Bearer
// @Accept mpfd
// @Produce json
// @Success 201 {object} Envelope
// @Router /equipments [post]
func (h *EquipmentHandler) Create(c echo.Context) error {
	quantity, err := intFormValue(c, "quantity")
	if err != nil {
		return ErrBadRequest(c, "invalid quantity")
	}

	input := services.CreateEquipmentInput{
		Name:      c.FormValue("name"),
		Brand:     c.FormValue("brand"),
		ItemModel: c.FormValue("model"),
		Quantity:  quantity,
	}
	if v := c.FormValue("acquisitionDate"); v != "" {
		acquiredAt, err := time.Parse("2006-01-02", v)
		if err != nil {
			return ErrBadRequest(c, "invalid acquisitionDate, want YYYY-MM-DD")
		}
		input.AcquiredAt = acquiredAt
	}

	if file, err := c.FormFile("image"); err == nil {
		url, err := h.uploads.Save(file)
		if err != nil {
			switch {
			case errors.Is(err, upload.ErrFileTooLarge), errors.Is(err, upload.ErrUnsupportedType):
				return ErrBadRequest(c, err.Error())
			default:
				return ErrInternalServerError(c)
			}
		}
		input.ImageURL = url
	}

	view, err := h.equipmentService.Create(c.Request().Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidQuantity), errors.Is(err, services.ErrInvalidInput):
			return ErrBadRequest(c, "name and a positive quantity are required")
		default:
			return ErrInternalServerError(c)
		}
	}
	return Created(c, dto.EquipmentFromView(view))
}

// Update godoc
// @Summary Update an equipment type
// @Tags equipments
// @Security Bearer
// @Accept mpfd
// @Produce json
// @Param id path string true "equipment type id"
// @Success 200 {object} Envelope
// @Router /equipments/{id} [patch]
func (h *EquipmentHandler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return ErrBadRequest(c, "invalid equipment id")
	}

	input := services.UpdateEquipmentInput{}
	if v := c.FormValue("name"); v != "" {
		input.Name = &v
	}
	if v := c.FormValue("brand"); v != "" {
		input.Brand = &v
	}
	if v := c.FormValue("model"); v != "" {
		input.ItemModel = &v
	}
	if file, err := c.FormFile("image"); err == nil {
		url, err := h.uploads.Save(file)
		if err != nil {
			switch {
			case errors.Is(err, upload.ErrFileTooLarge), errors.Is(err, upload.ErrUnsupportedType):
				return ErrBadRequest(c, err.Error())
			default:
				return ErrInternalServerError(c)
			}
		}
		input.ImageURL = &url
	}

	view, err := h.equipmentService.Update(c.Request().Context(), id, input)
	if err != nil {
		if errors.Is(err, services.ErrEquipmentNotFound) {
			return ErrNotFound(c, "equipment not found")
		}
		return ErrInternalServerError(c)
	}
	return OK(c, dto.EquipmentFromView(view))
}

// Names godoc
// @Summary List distinct equipment type names
// @Tags equipments
// @Security Bearer
// @Produce json
// @Success 200 {object} Envelope
// @Router /equipment-names [get]
func (h *EquipmentHandler) Names(c echo.Context) error {
	names, err := h.equipmentService.Names(c.Request().Context())
	if err != nil {
		return ErrInternalServerError(c)
	}
	return OK(c, names)
}

type ReallocateRequest struct {
	OldStatus string `json:"oldStatus" validate:"required"`
	NewStatus string `json:"newStatus" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// Reallocate godoc
// @Summary Move units between status buckets
// @Tags equipments
// @Security Bearer
// @Accept json
// @Produce json
// @Param id path string true "equipment type id"
// @Success 200 {object} Envelope
// @Router /equipments/{id}/reallocate [post]
func (h *EquipmentHandler) Reallocate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return ErrBadRequest(c, "invalid equipment id")
	}

	var req ReallocateRequest
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

	realloc, err := h.equipmentService.Reallocate(c.Request().Context(), id, actor.ID, services.ReallocateInput{
		OldStatus: req.OldStatus,
		NewStatus: req.NewStatus,
		Quantity:  req.Quantity,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEquipmentNotFound):
			return ErrNotFound(c, "equipment not found")
		case errors.Is(err, services.ErrSameStatus):
			return ErrBadRequest(c, "oldStatus and newStatus must differ")
		case errors.Is(err, services.ErrStatusNotMovable):
			return ErrBadRequest(c, "reserved and borrowed buckets cannot be reallocated")
		case errors.Is(err, services.ErrNotEnoughUnits):
			return ErrBadRequest(c, "quantity exceeds the source bucket")
		case errors.Is(err, services.ErrInvalidQuantity), errors.Is(err, services.ErrInvalidInput):
			return ErrBadRequest(c, "invalid reallocation")
		default:
			return ErrInternalServerError(c)
		}
	}
	return OK(c, dto.ReallocationFromDomain(realloc))
}
