package ports

import (
	"context"
	"time"
)

type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	Status       string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string, now time.Time) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, now time.Time) error
}

// InsightsAccessStore remembers accounts whose platform cannot serve
// insights so the reconciler stops probing them for a while.
type InsightsAccessStore interface {
	MarkLimited(ctx context.Context, accountID, reason string, ttl time.Duration) error
	Limited(ctx context.Context, accountID string) (string, bool, error)
}
