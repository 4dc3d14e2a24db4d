package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisInsightsAccessStore remembers accounts whose platform said insights
// are unavailable. The marker stops the reconciler from probing the same
// dead endpoint every cycle; the TTL re-opens the question later since
// account capabilities can change server-side.
type RedisInsightsAccessStore struct {
	client *redis.Client
}

func NewRedisInsightsAccessStore(client *redis.Client) *RedisInsightsAccessStore {
	return &RedisInsightsAccessStore{client: client}
}

func (s *RedisInsightsAccessStore) MarkLimited(ctx context.Context, accountID, reason string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return s.client.Set(ctx, insightsLimitedKey(accountID), reason, ttl).Err()
}

func (s *RedisInsightsAccessStore) Limited(ctx context.Context, accountID string) (string, bool, error) {
	reason, err := s.client.Get(ctx, insightsLimitedKey(accountID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return reason, true, nil
}

func insightsLimitedKey(accountID string) string {
	return "publishing:insights_limited:" + accountID
}
