package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"gearshed/internal/api/services"
	"gearshed/internal/domain"
)

// SessionAuth resolves the bearer token to a live session and stores
// the user and raw token on the request context. Requests without a
// valid session are refused.
func SessionAuth(authService *services.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c.Request().Header.Get("Authorization"))
			if token == "" {
				return unauthorized(c, "missing bearer token")
			}

			user, _, err := authService.ValidateSession(c.Request().Context(), token)
			if err != nil {
				return unauthorized(c, "invalid or expired session")
			}

			ctx := ContextWithUser(c.Request().Context(), user)
			ctx = ContextWithToken(ctx, token)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// RequireRole gates a route group to one role.
func RequireRole(role domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := UserFromContext(c.Request().Context())
			if err != nil {
				return unauthorized(c, "unauthorized")
			}
			if user.Role != role {
				return c.JSON(http.StatusForbidden, map[string]interface{}{
					"data":    nil,
					"code":    http.StatusForbidden,
					"message": "forbidden",
				})
			}
			return next(c)
		}
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func unauthorized(c echo.Context, message string) error {
	return c.JSON(http.StatusUnauthorized, map[string]interface{}{
		"data":    nil,
		"code":    http.StatusUnauthorized,
		"message": message,
	})
}
