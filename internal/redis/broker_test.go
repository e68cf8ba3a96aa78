package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_PublishSubscribe(t *testing.T) {
	client := setupTestRedis(t)
	broker := NewBroker(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, closeSub, err := broker.Subscribe(ctx)
	require.NoError(t, err)
	defer closeSub()

	payload := map[string]string{"id": "abc"}
	require.NoError(t, broker.Publish(ctx, "equipment:create", payload))

	select {
	case event := <-events:
		assert.Equal(t, "equipment:create", event.Event)

		var data map[string]string
		require.NoError(t, json.Unmarshal(event.Data, &data))
		assert.Equal(t, "abc", data["id"])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBroker_PublishNilData(t *testing.T) {
	client := setupTestRedis(t)
	broker := NewBroker(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, closeSub, err := broker.Subscribe(ctx)
	require.NoError(t, err)
	defer closeSub()

	require.NoError(t, broker.Publish(ctx, "return-request:confirm", nil))

	select {
	case event := <-events:
		assert.Equal(t, "return-request:confirm", event.Event)
		assert.Empty(t, event.Data)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBroker_NilBroker(t *testing.T) {
	var broker *Broker
	assert.NoError(t, broker.Publish(context.Background(), "equipment:create", nil))
}
