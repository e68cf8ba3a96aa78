package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// EventChannel is the pub/sub channel every server instance shares, so
// an event published by one instance reaches streams held by another.
const EventChannel = "gearshed:events"

// Event is one named invalidation signal fanned out to SSE streams.
// Data is advisory; clients treat events as cache invalidation hints.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Broker bridges the redis pub/sub channel and in-process subscribers.
type Broker struct {
	client *redis.Client
}

func NewBroker(client *redis.Client) *Broker {
	return &Broker{client: client}
}

func (b *Broker) Publish(ctx context.Context, event string, data interface{}) error {
	if b == nil || b.client == nil {
		return nil
	}

	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return err
		}
		raw = encoded
	}

	payload, err := json.Marshal(Event{Event: event, Data: raw})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, EventChannel, payload).Err()
}

// Subscribe opens a channel of events; the returned cancel function
// closes the underlying subscription. Malformed payloads are skipped.
func (b *Broker) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	sub := b.client.Subscribe(ctx, EventChannel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, err
	}

	events := make(chan Event)
	go func() {
		defer close(events)
		for msg := range sub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, func() { sub.Close() }, nil
}
