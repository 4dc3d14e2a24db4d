package postgres

import (
	"gorm.io/gorm"

	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/ports"
)

type Repositories struct {
	Posts     ports.PostRepository
	Targets   ports.TargetRepository
	Accounts  ports.AccountRepository
	Analytics ports.AnalyticsRepository
	Outbox    ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Posts:     &postRepository{db: db},
		Targets:   &targetRepository{db: db},
		Accounts:  &accountRepository{db: db},
		Analytics: &analyticsRepository{db: db},
		Outbox:    &outboxRepository{db: db},
	}
}
