package domain

import "time"

const (
	TargetStatusPending    = "pending"
	TargetStatusPublishing = "publishing"
	TargetStatusPublished  = "published"
	TargetStatusFailed     = "failed"
	TargetStatusCancelled  = "cancelled"
)

const DefaultMaxRetries = 3

// Target binds one post to one account and is the unit of delivery, retry
// and failure. Exactly one target exists per (post, account) pair.
type Target struct {
	TargetID         string     `json:"target_id"`
	PostID           string     `json:"post_id"`
	AccountID        string     `json:"account_id"`
	ContentOverride  string     `json:"content_override,omitempty"`
	HashtagsOverride []string   `json:"hashtags_override,omitempty"`
	Status           string     `json:"status"`
	PlatformPostID   string     `json:"platform_post_id,omitempty"`
	PlatformURL      string     `json:"platform_url,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	RetryCount       int        `json:"retry_count"`
	MaxRetries       int        `json:"max_retries"`
	NextRetryAt      *time.Time `json:"next_retry_at,omitempty"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Terminal reports whether the target reached a state that can never change
// again. Statuses only move forward; regressions are a bug.
func TargetStatusTerminal(status string) bool {
	switch status {
	case TargetStatusPublished, TargetStatusFailed, TargetStatusCancelled:
		return true
	default:
		return false
	}
}

// AggregatePostStatus derives a post's status from its targets. While any
// target is still pending or publishing the post stays publishing; once all
// targets are terminal the outcome is a pure function of the terminal set.
func AggregatePostStatus(targets []Target) string {
	if len(targets) == 0 {
		return PostStatusFailed
	}
	published := 0
	for _, t := range targets {
		if !TargetStatusTerminal(t.Status) {
			return PostStatusPublishing
		}
		if t.Status == TargetStatusPublished {
			published++
		}
	}
	switch {
	case published == len(targets):
		return PostStatusPublished
	case published > 0:
		return PostStatusPartiallyPublished
	default:
		return PostStatusFailed
	}
}
