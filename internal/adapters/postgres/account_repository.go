package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/domain"
)

type accountRepository struct {
	db *gorm.DB
}

func (r *accountRepository) GetByID(ctx context.Context, accountID string) (domain.Account, error) {
	var rec accountModel
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Account{}, domain.ErrNotFound
		}
		return domain.Account{}, err
	}
	return toDomainAccount(rec), nil
}

func (r *accountRepository) ListConnected(ctx context.Context) ([]domain.Account, error) {
	var rows []accountModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", domain.AccountStatusConnected).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Account, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainAccount(row))
	}
	return out, nil
}

func (r *accountRepository) MarkStatus(ctx context.Context, accountID, status, message string, now time.Time) error {
	// Idempotent on purpose: concurrent publish failures on the same
	// account all land on the same row state.
	return r.db.WithContext(ctx).
		Model(&accountModel{}).
		Where("account_id = ?", accountID).
		Updates(map[string]any{
			"status":        status,
			"error_message": message,
			"updated_at":    now,
		}).Error
}
