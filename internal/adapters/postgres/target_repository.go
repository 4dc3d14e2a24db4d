package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/domain"
)

type targetRepository struct {
	db *gorm.DB
}

func (r *targetRepository) GetOrCreate(ctx context.Context, row domain.Target) (domain.Target, bool, error) {
	rec := toTargetModel(row)
	err := r.db.WithContext(ctx).Create(&rec).Error
	if err == nil {
		return toDomainTarget(rec), true, nil
	}
	if !isUniqueViolation(err) {
		return domain.Target{}, false, err
	}

	// The (post, account) pair already has a row; concurrent callers all
	// converge on it.
	var existing targetModel
	if err := r.db.WithContext(ctx).
		Where("post_id = ? AND account_id = ?", row.PostID, row.AccountID).
		Take(&existing).Error; err != nil {
		return domain.Target{}, false, err
	}
	return toDomainTarget(existing), false, nil
}

func (r *targetRepository) GetByID(ctx context.Context, targetID string) (domain.Target, error) {
	var rec targetModel
	if err := r.db.WithContext(ctx).Where("target_id = ?", targetID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Target{}, domain.ErrNotFound
		}
		return domain.Target{}, err
	}
	return toDomainTarget(rec), nil
}

func (r *targetRepository) ListByPost(ctx context.Context, postID string) ([]domain.Target, error) {
	var rows []targetModel
	if err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainTargets(rows), nil
}

func (r *targetRepository) ListDueRetries(ctx context.Context, now time.Time, limit int) ([]domain.Target, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []targetModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", domain.TargetStatusPending).
		Where("next_retry_at IS NOT NULL AND next_retry_at <= ?", now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainTargets(rows), nil
}

func (r *targetRepository) ListPublishedByAccount(ctx context.Context, accountID string, since time.Time) ([]domain.Target, error) {
	var rows []targetModel
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Where("status = ?", domain.TargetStatusPublished).
		Where("published_at >= ?", since).
		Order("published_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainTargets(rows), nil
}

func (r *targetRepository) TransitionStatus(ctx context.Context, targetID, from, to string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&targetModel{}).
		Where("target_id = ? AND status = ?", targetID, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *targetRepository) MarkPublished(ctx context.Context, targetID, platformPostID, platformURL string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&targetModel{}).
		Where("target_id = ?", targetID).
		Updates(map[string]any{
			"status":           domain.TargetStatusPublished,
			"platform_post_id": platformPostID,
			"platform_url":     platformURL,
			"error_message":    "",
			"next_retry_at":    nil,
			"published_at":     at,
			"updated_at":       at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *targetRepository) MarkFailed(ctx context.Context, targetID, message string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&targetModel{}).
		Where("target_id = ?", targetID).
		Updates(map[string]any{
			"status":        domain.TargetStatusFailed,
			"error_message": message,
			"next_retry_at": nil,
			"updated_at":    at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *targetRepository) ScheduleRetry(ctx context.Context, targetID string, retryCount int, nextRetryAt, now time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&targetModel{}).
		Where("target_id = ?", targetID).
		Updates(map[string]any{
			"status":        domain.TargetStatusPending,
			"retry_count":   retryCount,
			"next_retry_at": nextRetryAt,
			"updated_at":    now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *targetRepository) CancelPending(ctx context.Context, postID string, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&targetModel{}).
		Where("post_id = ?", postID).
		Where("status = ?", domain.TargetStatusPending).
		Updates(map[string]any{
			"status":        domain.TargetStatusCancelled,
			"next_retry_at": nil,
			"updated_at":    now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func toDomainTargets(rows []targetModel) []domain.Target {
	out := make([]domain.Target, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainTarget(row))
	}
	return out
}
