package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// StoredResponse is a completed response kept for replay when a client
// retries a mutating request with the same Idempotency-Key.
type StoredResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: ttl}
}

func (s *IdempotencyStore) key(k string) string {
	return "idempotency:" + k
}

// Get returns the stored response for the key, or nil on a miss. A nil
// store never replays.
func (s *IdempotencyStore) Get(ctx context.Context, key string) (*StoredResponse, error) {
	if s == nil || s.client == nil {
		return nil, nil
	}

	value, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var stored StoredResponse
	if err := json.Unmarshal([]byte(value), &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *IdempotencyStore) Set(ctx context.Context, key string, status int, body []byte) error {
	if s == nil || s.client == nil {
		return nil
	}

	data, err := json.Marshal(StoredResponse{Status: status, Body: body})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(key), data, s.ttl).Err()
}

// BurnToken marks a single-use token id as spent. The first call
// reports true; replays report false. TTL should outlive the token.
func BurnToken(ctx context.Context, client *redis.Client, jti string, ttl time.Duration) (bool, error) {
	return client.SetNX(ctx, "burned-token:"+jti, "1", ttl).Result()
}
