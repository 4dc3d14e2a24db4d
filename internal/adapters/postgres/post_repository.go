package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/domain"
)

type postRepository struct {
	db *gorm.DB
}

func (r *postRepository) Create(ctx context.Context, post domain.Post) error {
	rec := toPostModel(post)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, postID string) (domain.Post, error) {
	var rec postModel
	if err := r.db.WithContext(ctx).Where("post_id = ?", postID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Post{}, domain.ErrNotFound
		}
		return domain.Post{}, err
	}
	return toDomainPost(rec), nil
}

func (r *postRepository) ListByCreator(ctx context.Context, createdBy string, limit int) ([]domain.Post, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []postModel
	if err := r.db.WithContext(ctx).
		Where("created_by = ?", createdBy).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Post, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainPost(row))
	}
	return out, nil
}

func (r *postRepository) Update(ctx context.Context, post domain.Post) error {
	rec := toPostModel(post)
	res := r.db.WithContext(ctx).
		Model(&postModel{}).
		Where("post_id = ?", post.PostID).
		Updates(map[string]any{
			"content":       rec.Content,
			"post_type":     rec.PostType,
			"hashtags":      rec.Hashtags,
			"first_comment": rec.FirstComment,
			"media_urls":    rec.MediaURLs,
			"status":        rec.Status,
			"scheduled_at":  rec.ScheduledAt,
			"updated_at":    rec.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postRepository) UpdateStatus(ctx context.Context, postID, status string, publishedAt *time.Time, updatedAt time.Time) error {
	updates := map[string]any{
		"status":     status,
		"updated_at": updatedAt,
	}
	if publishedAt != nil {
		updates["published_at"] = publishedAt
	}
	res := r.db.WithContext(ctx).
		Model(&postModel{}).
		Where("post_id = ?", postID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postRepository) ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]domain.Post, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []postModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", domain.PostStatusScheduled).
		Where("scheduled_at IS NOT NULL AND scheduled_at <= ?", now).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Post, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainPost(row))
	}
	return out, nil
}
