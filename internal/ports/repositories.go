package ports

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/domain"
)

type PostRepository interface {
	Create(ctx context.Context, post domain.Post) error
	GetByID(ctx context.Context, postID string) (domain.Post, error)
	ListByCreator(ctx context.Context, createdBy string, limit int) ([]domain.Post, error)
	Update(ctx context.Context, post domain.Post) error
	UpdateStatus(ctx context.Context, postID, status string, publishedAt *time.Time, updatedAt time.Time) error
	ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]domain.Post, error)
}

type TargetRepository interface {
	// GetOrCreate returns the existing target for (post, account) or inserts
	// row, reporting whether an insert happened. The unique pair constraint
	// makes concurrent callers converge on one row.
	GetOrCreate(ctx context.Context, row domain.Target) (domain.Target, bool, error)
	GetByID(ctx context.Context, targetID string) (domain.Target, error)
	ListByPost(ctx context.Context, postID string) ([]domain.Target, error)
	ListDueRetries(ctx context.Context, now time.Time, limit int) ([]domain.Target, error)
	ListPublishedByAccount(ctx context.Context, accountID string, since time.Time) ([]domain.Target, error)

	// TransitionStatus is the compare-and-swap guarding at-most-one in-flight
	// attempt: the update applies only while the row still holds `from`.
	TransitionStatus(ctx context.Context, targetID, from, to string, now time.Time) (bool, error)

	MarkPublished(ctx context.Context, targetID, platformPostID, platformURL string, at time.Time) error
	MarkFailed(ctx context.Context, targetID, message string, at time.Time) error
	ScheduleRetry(ctx context.Context, targetID string, retryCount int, nextRetryAt, now time.Time) error
	CancelPending(ctx context.Context, postID string, now time.Time) (int64, error)
}

type AccountRepository interface {
	GetByID(ctx context.Context, accountID string) (domain.Account, error)
	ListConnected(ctx context.Context) ([]domain.Account, error)
	// MarkStatus is idempotent; concurrent auth failures on the same account
	// may all call it.
	MarkStatus(ctx context.Context, accountID, status, message string, now time.Time) error
}

type AnalyticsRepository interface {
	// Upsert creates the row on first reconciliation and overwrites canonical
	// fields afterwards; one row per target, ever.
	Upsert(ctx context.Context, row domain.Analytics) error
	GetByTarget(ctx context.Context, targetID string) (domain.Analytics, error)
}
