package middleware

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"gearshed/internal/domain"
)

type contextKey string

const (
	userKey  contextKey = "user"
	tokenKey contextKey = "sessionToken"
)

var errUnauthorized = errors.New("unauthorized")

// ContextWithUser returns a new context carrying the authenticated
// user. Intended for middleware and tests.
func ContextWithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

func UserFromContext(ctx context.Context) (*domain.User, error) {
	user, ok := ctx.Value(userKey).(*domain.User)
	if !ok || user == nil {
		return nil, errUnauthorized
	}
	return user, nil
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, error) {
	user, err := UserFromContext(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	return user.ID, nil
}

func TokenFromContext(ctx context.Context) (string, error) {
	token, ok := ctx.Value(tokenKey).(string)
	if !ok || token == "" {
		return "", errUnauthorized
	}
	return token, nil
}
