package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for M31.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string

	JWTSecret string

	KafkaBrokers []string
	KafkaTopic   string

	MaxDBConns int32

	MaxConcurrentPublishes int
	PublishTimeout         time.Duration
	RetryBaseDelay         time.Duration
	DefaultMaxRetries      int

	PlatformHTTPTimeout       time.Duration
	PlatformPollInterval      time.Duration
	PlatformPollTimeout       time.Duration
	PlatformRequestsPerSecond float64
	FacebookGraphURL          string
	InstagramGraphURL         string
	InstagramDirectURL        string
	LinkedInAPIURL            string

	SweepInterval     time.Duration
	ReconcileSchedule string
	AnalyticsGrace    time.Duration
	AnalyticsDaysBack int

	InsightsLimitedTTL time.Duration
	IdempotencyTTL     time.Duration

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL  string   `yaml:"postgres_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
		KafkaTopic   string   `yaml:"kafka_topic"`
	} `yaml:"dependencies"`
	Platforms struct {
		FacebookGraphURL   string `yaml:"facebook_graph_url"`
		InstagramGraphURL  string `yaml:"instagram_graph_url"`
		InstagramDirectURL string `yaml:"instagram_direct_url"`
		LinkedInAPIURL     string `yaml:"linkedin_api_url"`
	} `yaml:"platforms"`
	Publishing struct {
		MaxConcurrent     int    `yaml:"max_concurrent"`
		SweepInterval     string `yaml:"sweep_interval"`
		ReconcileSchedule string `yaml:"reconcile_schedule"`
	} `yaml:"publishing"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:                 "M31-Social-Publishing-Service",
		HTTPPort:                  8080,
		GRPCPort:                  9090,
		MaxDBConns:                20,
		MaxConcurrentPublishes:    8,
		PublishTimeout:            90 * time.Second,
		RetryBaseDelay:            time.Minute,
		DefaultMaxRetries:         3,
		PlatformHTTPTimeout:       30 * time.Second,
		PlatformPollInterval:      2 * time.Second,
		PlatformPollTimeout:       60 * time.Second,
		PlatformRequestsPerSecond: 5,
		SweepInterval:             time.Minute,
		ReconcileSchedule:         "0 * * * *",
		AnalyticsGrace:            5 * time.Minute,
		AnalyticsDaysBack:         7,
		InsightsLimitedTTL:        24 * time.Hour,
		IdempotencyTTL:            24 * time.Hour,
		OutboxPollInterval:        2 * time.Second,
		OutboxBatchSize:           100,
		OutboxClaimTTL:            30 * time.Second,
		OutboxMaxRetries:          5,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
		}
		if f.Dependencies.KafkaTopic != "" {
			cfg.KafkaTopic = f.Dependencies.KafkaTopic
		}
		if f.Platforms.FacebookGraphURL != "" {
			cfg.FacebookGraphURL = f.Platforms.FacebookGraphURL
		}
		if f.Platforms.InstagramGraphURL != "" {
			cfg.InstagramGraphURL = f.Platforms.InstagramGraphURL
		}
		if f.Platforms.InstagramDirectURL != "" {
			cfg.InstagramDirectURL = f.Platforms.InstagramDirectURL
		}
		if f.Platforms.LinkedInAPIURL != "" {
			cfg.LinkedInAPIURL = f.Platforms.LinkedInAPIURL
		}
		if f.Publishing.MaxConcurrent > 0 {
			cfg.MaxConcurrentPublishes = f.Publishing.MaxConcurrent
		}
		if f.Publishing.SweepInterval != "" {
			if d, parseErr := time.ParseDuration(f.Publishing.SweepInterval); parseErr == nil && d > 0 {
				cfg.SweepInterval = d
			}
		}
		if f.Publishing.ReconcileSchedule != "" {
			cfg.ReconcileSchedule = f.Publishing.ReconcileSchedule
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopic = envOrDefault("KAFKA_TOPIC", cfg.KafkaTopic)
	cfg.FacebookGraphURL = envOrDefault("FACEBOOK_GRAPH_URL", cfg.FacebookGraphURL)
	cfg.InstagramGraphURL = envOrDefault("INSTAGRAM_GRAPH_URL", cfg.InstagramGraphURL)
	cfg.InstagramDirectURL = envOrDefault("INSTAGRAM_DIRECT_URL", cfg.InstagramDirectURL)
	cfg.LinkedInAPIURL = envOrDefault("LINKEDIN_API_URL", cfg.LinkedInAPIURL)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.MaxConcurrentPublishes = envInt("PUBLISH_MAX_CONCURRENT", cfg.MaxConcurrentPublishes)
	cfg.DefaultMaxRetries = envInt("PUBLISH_MAX_RETRIES", cfg.DefaultMaxRetries)

	cfg.PublishTimeout = time.Duration(envInt("PUBLISH_TIMEOUT_SECONDS", int(cfg.PublishTimeout.Seconds()))) * time.Second
	cfg.RetryBaseDelay = time.Duration(envInt("RETRY_BASE_DELAY_SECONDS", int(cfg.RetryBaseDelay.Seconds()))) * time.Second
	cfg.PlatformHTTPTimeout = time.Duration(envInt("PLATFORM_HTTP_TIMEOUT_SECONDS", int(cfg.PlatformHTTPTimeout.Seconds()))) * time.Second
	cfg.PlatformPollInterval = time.Duration(envInt("PLATFORM_POLL_INTERVAL_SECONDS", int(cfg.PlatformPollInterval.Seconds()))) * time.Second
	cfg.PlatformPollTimeout = time.Duration(envInt("PLATFORM_POLL_TIMEOUT_SECONDS", int(cfg.PlatformPollTimeout.Seconds()))) * time.Second
	cfg.SweepInterval = time.Duration(envInt("SWEEP_INTERVAL_SECONDS", int(cfg.SweepInterval.Seconds()))) * time.Second
	cfg.AnalyticsGrace = time.Duration(envInt("ANALYTICS_GRACE_SECONDS", int(cfg.AnalyticsGrace.Seconds()))) * time.Second
	cfg.AnalyticsDaysBack = envInt("ANALYTICS_DAYS_BACK", cfg.AnalyticsDaysBack)
	cfg.InsightsLimitedTTL = time.Duration(envInt("INSIGHTS_LIMITED_TTL_HOURS", int(cfg.InsightsLimitedTTL.Hours()))) * time.Hour
	cfg.IdempotencyTTL = time.Duration(envInt("IDEMPOTENCY_TTL_HOURS", int(cfg.IdempotencyTTL.Hours()))) * time.Hour
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
