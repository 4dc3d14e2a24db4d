package domain

import "time"

// Analytics is the canonical per-target metrics record. Platform-specific
// metric names are normalized by the gateways; anything without a canonical
// slot is kept verbatim in PlatformMetrics.
type Analytics struct {
	TargetID            string         `json:"target_id"`
	Impressions         int64          `json:"impressions"`
	Reach               int64          `json:"reach"`
	Likes               int64          `json:"likes"`
	Comments            int64          `json:"comments"`
	Shares              int64          `json:"shares"`
	Saves               int64          `json:"saves"`
	Clicks              int64          `json:"clicks"`
	VideoViews          int64          `json:"video_views"`
	VideoCompletionRate float64        `json:"video_completion_rate"`
	PlatformMetrics     map[string]any `json:"platform_metrics,omitempty"`
	SyncedAt            time.Time      `json:"synced_at"`
	CreatedAt           time.Time      `json:"created_at"`
}

// Insights is what a gateway hands back from a platform insights call before
// persistence: canonical fields already mapped plus the unmapped remainder.
type Insights struct {
	Impressions         int64
	Reach               int64
	Likes               int64
	Comments            int64
	Shares              int64
	Saves               int64
	Clicks              int64
	VideoViews          int64
	VideoCompletionRate float64
	PlatformMetrics     map[string]any
}
