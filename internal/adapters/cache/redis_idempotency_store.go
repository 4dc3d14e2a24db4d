package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/domain"
	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/ports"
)

// RedisIdempotencyStore holds publish idempotency records in Redis. The key
// TTL bounds the replay window; SetNX makes the reservation race-free across
// service instances.
type RedisIdempotencyStore struct {
	client *redis.Client
}

func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

type idempotencyPayload struct {
	RequestHash  string    `json:"request_hash"`
	Status       string    `json:"status"`
	ResponseCode int       `json:"response_code,omitempty"`
	ResponseBody string    `json:"response_body,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	raw, err := s.client.Get(ctx, idempotencyKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var payload idempotencyPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, err
	}
	if !payload.ExpiresAt.IsZero() && now.After(payload.ExpiresAt) {
		return nil, nil
	}
	return &ports.IdempotencyRecord{
		Key:          key,
		RequestHash:  payload.RequestHash,
		Status:       payload.Status,
		ResponseCode: payload.ResponseCode,
		ResponseBody: []byte(payload.ResponseBody),
		ExpiresAt:    payload.ExpiresAt,
	}, nil
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error {
	payload := idempotencyPayload{
		RequestHash: requestHash,
		Status:      "PENDING",
		ExpiresAt:   expiresAt,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = time.Minute
	}
	ok, err := s.client.SetNX(ctx, idempotencyKey(key), raw, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrConflict
	}
	return nil
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, responseCode int, responseBody []byte, now time.Time) error {
	redisKey := idempotencyKey(key)
	raw, err := s.client.Get(ctx, redisKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ErrNotFound
		}
		return err
	}
	var payload idempotencyPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return err
	}
	payload.Status = "COMPLETED"
	payload.ResponseCode = responseCode
	payload.ResponseBody = string(responseBody)

	updated, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ttl := payload.ExpiresAt.Sub(now)
	if ttl <= 0 {
		ttl = time.Minute
	}
	return s.client.Set(ctx, redisKey, updated, ttl).Err()
}

func idempotencyKey(key string) string {
	return "publishing:idempotency:" + key
}
