package domain

import "time"

const (
	PostTypeText     = "text"
	PostTypeImage    = "image"
	PostTypeVideo    = "video"
	PostTypeCarousel = "carousel"
	PostTypeStory    = "story"
	PostTypeReel     = "reel"
)

const (
	PostStatusDraft              = "draft"
	PostStatusScheduled          = "scheduled"
	PostStatusPublishing         = "publishing"
	PostStatusPublished          = "published"
	PostStatusPartiallyPublished = "partially_published"
	PostStatusFailed             = "failed"
	PostStatusCancelled          = "cancelled"
)

type Post struct {
	PostID       string     `json:"post_id"`
	Content      string     `json:"content"`
	PostType     string     `json:"post_type"`
	Hashtags     []string   `json:"hashtags"`
	FirstComment string     `json:"first_comment,omitempty"`
	MediaURLs    []string   `json:"media_urls"`
	Status       string     `json:"status"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	CreatedBy    string     `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func IsValidPostType(v string) bool {
	switch v {
	case PostTypeText, PostTypeImage, PostTypeVideo, PostTypeCarousel, PostTypeStory, PostTypeReel:
		return true
	default:
		return false
	}
}

// Mutable reports whether post content may still be edited. Once a post has
// reached the platforms it is an audit record and stays frozen.
func (p Post) Mutable() bool {
	switch p.Status {
	case PostStatusDraft, PostStatusScheduled:
		return true
	default:
		return false
	}
}
