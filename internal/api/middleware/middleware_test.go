package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gearshed/internal/domain"
	"gearshed/internal/redis"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{name: "valid", header: "Bearer abc123", expected: "abc123"},
		{name: "lowercase scheme", header: "bearer abc123", expected: "abc123"},
		{name: "missing", header: "", expected: ""},
		{name: "wrong scheme", header: "Basic abc123", expected: ""},
		{name: "scheme only", header: "Bearer ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, bearerToken(tt.header))
		})
	}
}

func TestUserFromContext(t *testing.T) {
	_, err := UserFromContext(context.Background())
	assert.Error(t, err)

	user := &domain.User{FirstName: "Alex", Role: domain.RoleBorrower}
	ctx := ContextWithUser(context.Background(), user)

	got, err := UserFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, user, got)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	run := func(user *domain.User) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if user != nil {
			req = req.WithContext(ContextWithUser(req.Context(), user))
		}
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		_ = RequireRole(domain.RoleEquipmentManager)(handler)(c)
		return rec
	}

	rec := run(&domain.User{Role: domain.RoleEquipmentManager})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = run(&domain.User{Role: domain.RoleBorrower})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = run(nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIdempotency(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := redis.NewIdempotencyStore(client, time.Hour)

	e := echo.New()
	calls := 0
	handler := func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusCreated, map[string]int{"call": calls})
	}

	run := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/borrow-requests", nil)
		if key != "" {
			req.Header.Set(IdempotencyKeyHeader, key)
		}
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetPath("/borrow-requests")
		require.NoError(t, Idempotency(store)(handler)(c))
		return rec
	}

	first := run("key-1")
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, 1, calls)

	replay := run("key-1")
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, 1, calls)
	assert.JSONEq(t, first.Body.String(), replay.Body.String())

	fresh := run("key-2")
	assert.Equal(t, 2, calls)
	assert.NotEqual(t, first.Body.String(), fresh.Body.String())

	run("")
	assert.Equal(t, 3, calls)
}
