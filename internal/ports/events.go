package ports

import (
	"context"
	"time"
)

type OutboxRecord struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
	PublishedAt  *time.Time
	RetryCount   int
	LastError    string
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, rec OutboxRecord) error
	// ClaimUnpublished leases a batch to one worker instance; the claim
	// expires so a crashed worker never strands records.
	ClaimUnpublished(ctx context.Context, batchSize int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID, claimToken, lastError string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID, claimToken, lastError string, at time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}
