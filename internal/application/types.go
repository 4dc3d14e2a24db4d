package application

import (
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/ports"
)

type Config struct {
	ServiceName string
	Version     string

	MaxConcurrentPublishes int
	PublishTimeout         time.Duration
	RetryBaseDelay         time.Duration
	DefaultMaxRetries      int

	AnalyticsGrace     time.Duration
	AnalyticsDaysBack  int
	InsightsLimitedTTL time.Duration

	IdempotencyTTL time.Duration
}

type Actor struct {
	SubjectID      string
	Role           string
	RequestID      string
	IdempotencyKey string
}

type CreatePostInput struct {
	Content      string
	PostType     string
	Hashtags     []string
	FirstComment string
	MediaURLs    []string
	ScheduledAt  *time.Time
}

type TargetOutcome struct {
	TargetID     string `json:"target_id"`
	AccountID    string `json:"account_id"`
	Platform     string `json:"platform"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	WillRetry    bool   `json:"will_retry"`
}

type DispatchResult struct {
	PostID     string          `json:"post_id"`
	PostStatus string          `json:"post_status"`
	Outcomes   []TargetOutcome `json:"outcomes"`
}

type ReconcileSummary struct {
	AccountID     string `json:"account_id"`
	TargetsSeen   int    `json:"targets_seen"`
	Synced        int    `json:"synced"`
	Skipped       int    `json:"skipped"`
	Failed        int    `json:"failed"`
	AccessLimited bool   `json:"access_limited"`
	LimitedReason string `json:"limited_reason,omitempty"`
}

type Service struct {
	cfg    Config
	logger *slog.Logger

	posts     ports.PostRepository
	targets   ports.TargetRepository
	accounts  ports.AccountRepository
	analytics ports.AnalyticsRepository
	outbox    ports.OutboxRepository

	gateways  ports.GatewayResolver
	validator ports.MediaValidator
	retry     RetryPolicy

	idempotency    ports.IdempotencyStore
	insightsAccess ports.InsightsAccessStore

	startedAt time.Time
	nowFn     func() time.Time
}

type Dependencies struct {
	Config Config
	Logger *slog.Logger

	Posts     ports.PostRepository
	Targets   ports.TargetRepository
	Accounts  ports.AccountRepository
	Analytics ports.AnalyticsRepository
	Outbox    ports.OutboxRepository

	Gateways  ports.GatewayResolver
	Validator ports.MediaValidator

	Idempotency    ports.IdempotencyStore
	InsightsAccess ports.InsightsAccessStore
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "M31-Social-Publishing-Service"
	}
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}
	if cfg.MaxConcurrentPublishes <= 0 {
		cfg.MaxConcurrentPublishes = 8
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 90 * time.Second
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Minute
	}
	if cfg.DefaultMaxRetries <= 0 {
		cfg.DefaultMaxRetries = 3
	}
	if cfg.AnalyticsGrace <= 0 {
		cfg.AnalyticsGrace = 5 * time.Minute
	}
	if cfg.AnalyticsDaysBack <= 0 {
		cfg.AnalyticsDaysBack = 7
	}
	if cfg.InsightsLimitedTTL <= 0 {
		cfg.InsightsLimitedTTL = 24 * time.Hour
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:            cfg,
		logger:         logger,
		posts:          deps.Posts,
		targets:        deps.Targets,
		accounts:       deps.Accounts,
		analytics:      deps.Analytics,
		outbox:         deps.Outbox,
		gateways:       deps.Gateways,
		validator:      deps.Validator,
		retry:          RetryPolicy{BaseDelay: cfg.RetryBaseDelay, MaxRetries: cfg.DefaultMaxRetries},
		idempotency:    deps.Idempotency,
		insightsAccess: deps.InsightsAccess,
		startedAt:      time.Now().UTC(),
		nowFn:          func() time.Time { return time.Now().UTC() },
	}
}
