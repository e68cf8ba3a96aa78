package handlers

import (
	"errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"gearshed/internal/api/dto"
	"gearshed/internal/api/middleware"
	"gearshed/internal/api/services"
	"gearshed/internal/domain"
	"gearshed/internal/repository"
	"gearshed/internal/upload"
)

type UserHandler struct {
	userService *services.UserService
	uploads     *upload.Store
}

func NewUserHandler(db *repository.Database, uploads *upload.Store) *UserHandler {
	return &UserHandler{
		userService: services.NewUserService(repository.NewUserRepository(db)),
		uploads:     uploads,
	}
}

// List godoc
// @Summary List all users
// @Tags users
// @Security Bearer
// @Produce json
// @Success 200 {object} Envelope
// @Router /users [get]
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.userService.List(c.Request().Context())
	if err != nil {
		return ErrInternalServerError(c)
	}
	return OK(c, dto.UsersFromDomain(users))
}

// Get godoc
// @Summary Fetch one user
// @Tags users
// @Security Bearer
// @Produce json
// @Param id path string true "user id"
// @Success 200 {object} Envelope
// @Router /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return ErrBadRequest(c, "invalid user id")
	}

	user, err := h.userService.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return ErrNotFound(c, "user not found")
		}
		return ErrInternalServerError(c)
	}
	return OK(c, dto.UserFromDomain(user))
}

// Update godoc
// @Summary Update profile fields and avatar
// @Tags users
// @Security Bearer
// @Accept mpfd
// @Produce json
// @Param id path string true "user id"
// @Success 200 {object} Envelope
// @Router /users/{id} [patch]
func (h *UserHandler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return ErrBadRequest(c, "invalid user id")
	}

	actor, err := middleware.UserFromContext(c.Request().Context())
	if err != nil {
		return ErrUnauthorized(c, "")
	}
	if actor.ID != id && actor.Role != domain.RoleEquipmentManager {
		return ErrForbidden(c, "cannot update another user")
	}

	input := services.UpdateUserInput{}
	if v := c.FormValue("email"); v != "" {
		input.Email = &v
	}
	if v := c.FormValue("firstName"); v != "" {
		input.FirstName = &v
	}
	if v := c.FormValue("middleName"); v != "" {
		input.MiddleName = &v
	}
	if v := c.FormValue("lastName"); v != "" {
		input.LastName = &v
	}
	if v := c.FormValue("role"); v != "" {
		role, err := domain.ParseRole(v)
		if err != nil {
			return ErrBadRequest(c, "invalid role")
		}
		input.Role = &role
	}

	if file, err := c.FormFile("avatar"); err == nil {
		url, err := h.uploads.Save(file)
		if err != nil {
			switch {
			case errors.Is(err, upload.ErrFileTooLarge), errors.Is(err, upload.ErrUnsupportedType):
				return ErrBadRequest(c, err.Error())
			default:
				return ErrInternalServerError(c)
			}
		}
		input.AvatarURL = &url
	}

	user, err := h.userService.Update(c.Request().Context(), actor, id, input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			return ErrNotFound(c, "user not found")
		case errors.Is(err, services.ErrRoleChangeDenied):
			return ErrForbidden(c, "role change requires an equipment manager")
		case errors.Is(err, services.ErrUserAlreadyExists):
			return ErrConflict(c, "email already in use")
		default:
			return ErrInternalServerError(c)
		}
	}
	return OK(c, dto.UserFromDomain(user))
}
