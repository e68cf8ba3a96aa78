package handlers

import (
	"errors"

	"github.com/labstack/echo/v4"
	goredis "github.com/redis/go-redis/v9"

	"gearshed/internal/api/dto"
	"gearshed/internal/api/middleware"
	"gearshed/internal/api/services"
	"gearshed/internal/mail"
	"gearshed/internal/repository"
	"gearshed/internal/upload"
)

type AuthHandler struct {
	authService *services.AuthService
	uploads     *upload.Store
}

func NewAuthHandler(db *repository.Database, rdb *goredis.Client, mailer mail.Sender, uploads *upload.Store, sessionKey, clientURL string) *AuthHandler {
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	authService := services.NewAuthService(userRepo, sessionRepo, rdb, mailer, sessionKey, clientURL)

	return &AuthHandler{
		authService: authService,
		uploads:     uploads,
	}
}

func (h *AuthHandler) Service() *services.AuthService {
	return h.authService
}

// Register godoc
// @Summary Register a new account
// @Tags auth
// @Accept mpfd
// @Produce json
// @Success 201 {object} Envelope
// @Router /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	input := services.RegisterInput{
		Email:      c.FormValue("email"),
		Password:   c.FormValue("password"),
		FirstName:  c.FormValue("firstName"),
		MiddleName: c.FormValue("middleName"),
		LastName:   c.FormValue("lastName"),
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
		input.AvatarURL = url
	}

	user, err := h.authService.Register(c.Request().Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserAlreadyExists):
			return ErrConflict(c, "an account with this email already exists")
		case errors.Is(err, services.ErrInvalidInput):
			return ErrBadRequest(c, "invalid input")
		default:
			return ErrInternalServerError(c)
		}
	}

	return Created(c, dto.UserFromDomain(user))
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login godoc
// @Summary Exchange credentials for a session token
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} Envelope
// @Router /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return ErrBadRequest(c, "invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return ErrBadRequest(c, "invalid request")
	}

	user, session, token, err := h.authService.Login(c.Request().Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			return ErrUnauthorized(c, "invalid credentials")
		case errors.Is(err, services.ErrInvalidInput):
			return ErrBadRequest(c, "invalid input")
		default:
			return ErrInternalServerError(c)
		}
	}

	return OK(c, dto.Login{
		Token:   token,
		User:    dto.UserFromDomain(user),
		Session: dto.SessionFromDomain(session),
	})
}

// GetSession godoc
// @Summary Validate a session token
// @Tags auth
// @Produce json
// @Param token query string true "session token"
// @Success 200 {object} Envelope
// @Router /sessions [get]
func (h *AuthHandler) GetSession(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return ErrBadRequest(c, "token is required")
	}

	user, session, err := h.authService.ValidateSession(c.Request().Context(), token)
	if err != nil {
		if errors.Is(err, services.ErrSessionExpired) {
			return ErrUnauthorized(c, "session expired")
		}
		return ErrInternalServerError(c)
	}

	return OK(c, map[string]interface{}{
		"user":    dto.UserFromDomain(user),
		"session": dto.SessionFromDomain(session),
	})
}

// Logout godoc
// @Summary Delete the presented session
// @Tags auth
// @Security Bearer
// @Produce json
// @Success 200 {object} Envelope
// @Router /logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	token, err := middleware.TokenFromContext(c.Request().Context())
	if err != nil {
		return ErrUnauthorized(c, "")
	}
	if err := h.authService.Logout(c.Request().Context(), token); err != nil {
		return ErrInternalServerError(c)
	}
	return JSON(c, 200, nil, "logged out")
}

type PasswordResetRequestRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RequestPasswordReset godoc
// @Summary Mail a password reset link
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} Envelope
// @Router /password-reset-request [post]
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req PasswordResetRequestRequest
	if err := c.Bind(&req); err != nil {
		return ErrBadRequest(c, "invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return ErrBadRequest(c, "invalid request")
	}

	if err := h.authService.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return ErrInternalServerError(c)
	}

	// Same answer whether or not the account exists.
	return JSON(c, 200, nil, "if the account exists, a reset link has been sent")
}

type PasswordResetRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// ResetPassword godoc
// @Summary Set a new password with a reset token
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} Envelope
// @Router /password-reset [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req PasswordResetRequest
	if err := c.Bind(&req); err != nil {
		return ErrBadRequest(c, "invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return ErrBadRequest(c, "invalid request")
	}

	err := h.authService.ResetPassword(c.Request().Context(), req.Token, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidResetToken):
			return ErrBadRequest(c, "invalid or expired reset token")
		case errors.Is(err, services.ErrInvalidInput):
			return ErrBadRequest(c, "invalid input")
		default:
			return ErrInternalServerError(c)
		}
	}
	return JSON(c, 200, nil, "password updated")
}
