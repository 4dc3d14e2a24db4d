package postgres

import (
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/domain"
)

func toPostModel(p domain.Post) postModel {
	return postModel{
		PostID:       p.PostID,
		Content:      p.Content,
		PostType:     p.PostType,
		Hashtags:     marshalStrings(p.Hashtags),
		FirstComment: p.FirstComment,
		MediaURLs:    marshalStrings(p.MediaURLs),
		Status:       p.Status,
		ScheduledAt:  p.ScheduledAt,
		PublishedAt:  p.PublishedAt,
		CreatedBy:    p.CreatedBy,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toDomainPost(m postModel) domain.Post {
	return domain.Post{
		PostID:       m.PostID,
		Content:      m.Content,
		PostType:     m.PostType,
		Hashtags:     unmarshalStrings(m.Hashtags),
		FirstComment: m.FirstComment,
		MediaURLs:    unmarshalStrings(m.MediaURLs),
		Status:       m.Status,
		ScheduledAt:  m.ScheduledAt,
		PublishedAt:  m.PublishedAt,
		CreatedBy:    m.CreatedBy,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toTargetModel(t domain.Target) targetModel {
	return targetModel{
		TargetID:         t.TargetID,
		PostID:           t.PostID,
		AccountID:        t.AccountID,
		ContentOverride:  t.ContentOverride,
		HashtagsOverride: marshalStrings(t.HashtagsOverride),
		Status:           t.Status,
		PlatformPostID:   t.PlatformPostID,
		PlatformURL:      t.PlatformURL,
		ErrorMessage:     t.ErrorMessage,
		RetryCount:       t.RetryCount,
		MaxRetries:       t.MaxRetries,
		NextRetryAt:      t.NextRetryAt,
		PublishedAt:      t.PublishedAt,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

func toDomainTarget(m targetModel) domain.Target {
	return domain.Target{
		TargetID:         m.TargetID,
		PostID:           m.PostID,
		AccountID:        m.AccountID,
		ContentOverride:  m.ContentOverride,
		HashtagsOverride: unmarshalStrings(m.HashtagsOverride),
		Status:           m.Status,
		PlatformPostID:   m.PlatformPostID,
		PlatformURL:      m.PlatformURL,
		ErrorMessage:     m.ErrorMessage,
		RetryCount:       m.RetryCount,
		MaxRetries:       m.MaxRetries,
		NextRetryAt:      m.NextRetryAt,
		PublishedAt:      m.PublishedAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func toDomainAccount(m accountModel) domain.Account {
	return domain.Account{
		AccountID:      m.AccountID,
		Platform:       m.Platform,
		ConnectionType: m.ConnectionType,
		ExternalID:     m.ExternalID,
		Name:           m.Name,
		Username:       m.Username,
		AccessToken:    m.AccessToken,
		TokenExpiresAt: m.TokenExpiresAt,
		Status:         m.Status,
		PostingEnabled: m.PostingEnabled,
		ErrorMessage:   m.ErrorMessage,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func toAnalyticsModel(a domain.Analytics) analyticsModel {
	metrics := "{}"
	if len(a.PlatformMetrics) > 0 {
		if raw, err := json.Marshal(a.PlatformMetrics); err == nil {
			metrics = string(raw)
		}
	}
	return analyticsModel{
		TargetID:            a.TargetID,
		Impressions:         a.Impressions,
		Reach:               a.Reach,
		Likes:               a.Likes,
		Comments:            a.Comments,
		Shares:              a.Shares,
		Saves:               a.Saves,
		Clicks:              a.Clicks,
		VideoViews:          a.VideoViews,
		VideoCompletionRate: a.VideoCompletionRate,
		PlatformMetrics:     metrics,
		SyncedAt:            a.SyncedAt,
		CreatedAt:           a.CreatedAt,
	}
}

func toDomainAnalytics(m analyticsModel) domain.Analytics {
	out := domain.Analytics{
		TargetID:            m.TargetID,
		Impressions:         m.Impressions,
		Reach:               m.Reach,
		Likes:               m.Likes,
		Comments:            m.Comments,
		Shares:              m.Shares,
		Saves:               m.Saves,
		Clicks:              m.Clicks,
		VideoViews:          m.VideoViews,
		VideoCompletionRate: m.VideoCompletionRate,
		SyncedAt:            m.SyncedAt,
		CreatedAt:           m.CreatedAt,
	}
	if m.PlatformMetrics != "" && m.PlatformMetrics != "{}" {
		_ = json.Unmarshal([]byte(m.PlatformMetrics), &out.PlatformMetrics)
	}
	return out
}

func marshalStrings(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func unmarshalStrings(raw string) []string {
	if raw == "" || raw == "[]" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
