package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyStore_Miss(t *testing.T) {
	client := setupTestRedis(t)
	store := NewIdempotencyStore(client, time.Hour)

	stored, err := store.Get(context.Background(), "unknown")
	assert.NoError(t, err)
	assert.Nil(t, stored)
}

func TestIdempotencyStore_SetAndReplay(t *testing.T) {
	client := setupTestRedis(t)
	store := NewIdempotencyStore(client, time.Hour)
	ctx := context.Background()

	body := []byte(`{"data":{"id":"abc"},"code":201,"message":"Created"}`)
	require.NoError(t, store.Set(ctx, "key-1", 201, body))

	stored, err := store.Get(ctx, "key-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 201, stored.Status)
	assert.JSONEq(t, string(body), string(stored.Body))
}

func TestIdempotencyStore_NilStore(t *testing.T) {
	var store *IdempotencyStore
	ctx := context.Background()

	stored, err := store.Get(ctx, "key")
	assert.NoError(t, err)
	assert.Nil(t, stored)

	assert.NoError(t, store.Set(ctx, "key", 200, nil))
}

func TestBurnToken(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	first, err := BurnToken(ctx, client, "jti-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := BurnToken(ctx, client, "jti-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, second)
}
