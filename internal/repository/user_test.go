package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gearshed/internal/domain"
)

func newTestUser(ts int64) *domain.User {
	lastName := "Person"
	return &domain.User{
		Email:     fmt.Sprintf("repo%d@example.com", ts),
		Password:  "hashedpassword",
		FirstName: "Repo",
		LastName:  &lastName,
		Role:      domain.RoleBorrower,
	}
}

func TestUserRepository_Create(t *testing.T) {
	if testDB == nil {
		t.Skip("Test database not initialized")
	}

	repo := NewUserRepository(testDB)
	user := newTestUser(time.Now().UnixNano())

	err := repo.Create(user)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	t.Run("duplicate email is rejected", func(t *testing.T) {
		dup := newTestUser(time.Now().UnixNano())
		dup.Email = strings.ToUpper(user.Email)
		err := repo.Create(dup)
		assert.ErrorIs(t, err, ErrUserExists)
	})
}

func TestUserRepository_FindByEmail(t *testing.T) {
	if testDB == nil {
		t.Skip("Test database not initialized")
	}

	repo := NewUserRepository(testDB)
	user := newTestUser(time.Now().UnixNano())
	require.NoError(t, repo.Create(user))

	found, err := repo.FindByEmail(strings.ToUpper(user.Email))
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = repo.FindByEmail("nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_Update(t *testing.T) {
	if testDB == nil {
		t.Skip("Test database not initialized")
	}

	repo := NewUserRepository(testDB)
	user := newTestUser(time.Now().UnixNano())
	require.NoError(t, repo.Create(user))

	user.FirstName = "Renamed"
	user.Role = domain.RoleEquipmentManager
	require.NoError(t, repo.Update(user))

	found, err := repo.FindByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", found.FirstName)
	assert.Equal(t, domain.RoleEquipmentManager, found.Role)
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	if testDB == nil {
		t.Skip("Test database not initialized")
	}

	repo := NewUserRepository(testDB)
	user := newTestUser(time.Now().UnixNano())
	require.NoError(t, repo.Create(user))

	require.NoError(t, repo.UpdatePassword(user.ID, "newhash"))

	found, err := repo.FindByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "newhash", found.Password)
}
