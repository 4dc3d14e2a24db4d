package postgres

import "time"

type postModel struct {
	PostID       string     `gorm:"column:post_id;primaryKey"`
	Content      string     `gorm:"column:content"`
	PostType     string     `gorm:"column:post_type"`
	Hashtags     string     `gorm:"column:hashtags;type:jsonb"`
	FirstComment string     `gorm:"column:first_comment"`
	MediaURLs    string     `gorm:"column:media_urls;type:jsonb"`
	Status       string     `gorm:"column:status"`
	ScheduledAt  *time.Time `gorm:"column:scheduled_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
	CreatedBy    string     `gorm:"column:created_by"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

func (postModel) TableName() string { return "social_posts" }

type targetModel struct {
	TargetID         string     `gorm:"column:target_id;primaryKey"`
	PostID           string     `gorm:"column:post_id"`
	AccountID        string     `gorm:"column:account_id"`
	ContentOverride  string     `gorm:"column:content_override"`
	HashtagsOverride string     `gorm:"column:hashtags_override;type:jsonb"`
	Status           string     `gorm:"column:status"`
	PlatformPostID   string     `gorm:"column:platform_post_id"`
	PlatformURL      string     `gorm:"column:platform_url"`
	ErrorMessage     string     `gorm:"column:error_message"`
	RetryCount       int        `gorm:"column:retry_count"`
	MaxRetries       int        `gorm:"column:max_retries"`
	NextRetryAt      *time.Time `gorm:"column:next_retry_at"`
	PublishedAt      *time.Time `gorm:"column:published_at"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
}

func (targetModel) TableName() string { return "post_targets" }

type accountModel struct {
	AccountID      string     `gorm:"column:account_id;primaryKey"`
	Platform       string     `gorm:"column:platform"`
	ConnectionType string     `gorm:"column:connection_type"`
	ExternalID     string     `gorm:"column:external_id"`
	Name           string     `gorm:"column:name"`
	Username       string     `gorm:"column:username"`
	AccessToken    string     `gorm:"column:access_token"`
	TokenExpiresAt *time.Time `gorm:"column:token_expires_at"`
	Status         string     `gorm:"column:status"`
	PostingEnabled bool       `gorm:"column:posting_enabled"`
	ErrorMessage   string     `gorm:"column:error_message"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at"`
}

func (accountModel) TableName() string { return "social_accounts" }

type analyticsModel struct {
	TargetID            string    `gorm:"column:target_id;primaryKey"`
	Impressions         int64     `gorm:"column:impressions"`
	Reach               int64     `gorm:"column:reach"`
	Likes               int64     `gorm:"column:likes"`
	Comments            int64     `gorm:"column:comments"`
	Shares              int64     `gorm:"column:shares"`
	Saves               int64     `gorm:"column:saves"`
	Clicks              int64     `gorm:"column:clicks"`
	VideoViews          int64     `gorm:"column:video_views"`
	VideoCompletionRate float64   `gorm:"column:video_completion_rate"`
	PlatformMetrics     string    `gorm:"column:platform_metrics;type:jsonb"`
	SyncedAt            time.Time `gorm:"column:synced_at"`
	CreatedAt           time.Time `gorm:"column:created_at"`
}

func (analyticsModel) TableName() string { return "post_analytics" }

type outboxModel struct {
	OutboxID       string     `gorm:"column:outbox_id;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (outboxModel) TableName() string { return "publishing_outbox" }
