package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/domain"
)

type analyticsRepository struct {
	db *gorm.DB
}

func (r *analyticsRepository) Upsert(ctx context.Context, row domain.Analytics) error {
	rec := toAnalyticsModel(row)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "target_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"impressions", "reach", "likes", "comments", "shares",
				"saves", "clicks", "video_views", "video_completion_rate",
				"platform_metrics", "synced_at",
			}),
		}).
		Create(&rec).Error
}

func (r *analyticsRepository) GetByTarget(ctx context.Context, targetID string) (domain.Analytics, error) {
	var rec analyticsModel
	if err := r.db.WithContext(ctx).Where("target_id = ?", targetID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Analytics{}, domain.ErrNotFound
		}
		return domain.Analytics{}, err
	}
	return toDomainAnalytics(rec), nil
}
