package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gearshed/internal/domain"
	"gearshed/internal/repository"
	"gearshed/internal/testutil"
)

type captureSender struct {
	to      string
	subject string
	body    string
}

func (c *captureSender) Send(to, subject, body string) error {
	c.to = to
	c.subject = subject
	c.body = body
	return nil
}

func newAuthService(t *testing.T) (*AuthService, *captureSender) {
	t.Helper()
	s := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	sender := &captureSender{}

	service := NewAuthService(
		repository.NewUserRepository(testDB),
		repository.NewSessionRepository(testDB),
		rdb,
		sender,
		"test-session-key",
		"gearshed://",
	)
	return service, sender
}

func registerTestAccount(t *testing.T, service *AuthService) (*domain.User, string) {
	t.Helper()
	email := fmt.Sprintf("auth%d@test.com", time.Now().UnixNano())
	user, err := service.Register(context.Background(), RegisterInput{
		Email:     email,
		Password:  "correct horse",
		FirstName: "Alex",
		LastName:  "Reyes",
	})
	require.NoError(t, err)
	return user, email
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	testutil.RequireDB(t, testDB)
	ctx := context.Background()
	service, _ := newAuthService(t)

	t.Run("register and login", func(t *testing.T) {
		user, email := registerTestAccount(t, service)
		assert.Equal(t, domain.RoleBorrower, user.Role)
		assert.NotEqual(t, "correct horse", user.Password)

		loggedIn, session, token, err := service.Login(ctx, LoginInput{Email: email, Password: "correct horse"})
		require.NoError(t, err)
		assert.Equal(t, user.ID, loggedIn.ID)
		assert.NotEmpty(t, token)
		assert.NotEqual(t, token, session.ID)
		assert.WithinDuration(t, time.Now().Add(domain.SessionLifetime), session.ExpiresAt, time.Minute)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, email := registerTestAccount(t, service)
		_, err := service.Register(ctx, RegisterInput{
			Email:     email,
			Password:  "another pass",
			FirstName: "Sam",
			LastName:  "Cruz",
		})
		assert.ErrorIs(t, err, ErrUserAlreadyExists)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, email := registerTestAccount(t, service)
		_, _, _, err := service.Login(ctx, LoginInput{Email: email, Password: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, _, err := service.Login(ctx, LoginInput{Email: "nobody@test.com", Password: "whatever"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAuthService_Sessions(t *testing.T) {
	testutil.RequireDB(t, testDB)
	ctx := context.Background()
	service, _ := newAuthService(t)
	sessionRepo := repository.NewSessionRepository(testDB)

	t.Run("round trip", func(t *testing.T) {
		user, email := registerTestAccount(t, service)
		_, _, token, err := service.Login(ctx, LoginInput{Email: email, Password: "correct horse"})
		require.NoError(t, err)

		validated, session, err := service.ValidateSession(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, validated.ID)
		assert.Equal(t, user.ID, session.UserID)
	})

	t.Run("expired session is deleted", func(t *testing.T) {
		_, email := registerTestAccount(t, service)
		_, session, token, err := service.Login(ctx, LoginInput{Email: email, Password: "correct horse"})
		require.NoError(t, err)

		require.NoError(t, sessionRepo.UpdateExpiry(session.ID, time.Now().Add(-time.Minute)))

		_, _, err = service.ValidateSession(ctx, token)
		assert.ErrorIs(t, err, ErrSessionExpired)

		_, err = sessionRepo.FindByID(session.ID)
		assert.ErrorIs(t, err, repository.ErrSessionNotFound)
	})

	t.Run("sliding renewal", func(t *testing.T) {
		_, email := registerTestAccount(t, service)
		_, session, token, err := service.Login(ctx, LoginInput{Email: email, Password: "correct horse"})
		require.NoError(t, err)

		// Push the session into the renewal window.
		soon := time.Now().Add(24 * time.Hour)
		require.NoError(t, sessionRepo.UpdateExpiry(session.ID, soon))

		_, renewed, err := service.ValidateSession(ctx, token)
		require.NoError(t, err)
		assert.True(t, renewed.ExpiresAt.After(soon))
	})

	t.Run("logout deletes the session", func(t *testing.T) {
		_, email := registerTestAccount(t, service)
		_, _, token, err := service.Login(ctx, LoginInput{Email: email, Password: "correct horse"})
		require.NoError(t, err)

		require.NoError(t, service.Logout(ctx, token))

		_, _, err = service.ValidateSession(ctx, token)
		assert.ErrorIs(t, err, ErrSessionExpired)
	})
}

func TestAuthService_PasswordReset(t *testing.T) {
	testutil.RequireDB(t, testDB)
	ctx := context.Background()
	service, sender := newAuthService(t)

	t.Run("unknown email is silent", func(t *testing.T) {
		err := service.RequestPasswordReset(ctx, "ghost@test.com")
		assert.NoError(t, err)
		assert.Empty(t, sender.to)
	})

	t.Run("reset round trip", func(t *testing.T) {
		_, email := registerTestAccount(t, service)
		require.NoError(t, service.RequestPasswordReset(ctx, email))
		assert.Equal(t, email, sender.to)
		require.Contains(t, sender.body, "token=")

		token := sender.body[strings.Index(sender.body, "token=")+len("token="):]
		token = strings.Fields(token)[0]

		require.NoError(t, service.ResetPassword(ctx, token, "fresh password"))

		_, _, _, err := service.Login(ctx, LoginInput{Email: email, Password: "fresh password"})
		assert.NoError(t, err)

		// token is single-use
		err = service.ResetPassword(ctx, token, "another password")
		assert.ErrorIs(t, err, ErrInvalidResetToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		err := service.ResetPassword(ctx, "not-a-jwt", "some password")
		assert.ErrorIs(t, err, ErrInvalidResetToken)
	})
}
