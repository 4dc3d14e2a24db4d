package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/domain"
)

func (s *Service) CreatePost(ctx context.Context, actor Actor, in CreatePostInput) (domain.Post, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Post{}, domain.ErrUnauthorized
	}
	in.Content = strings.TrimSpace(in.Content)
	in.PostType = strings.ToLower(strings.TrimSpace(in.PostType))
	if in.PostType == "" {
		in.PostType = domain.PostTypeText
	}
	if !domain.IsValidPostType(in.PostType) {
		return domain.Post{}, domain.ErrInvalidInput
	}
	if in.Content == "" && len(in.MediaURLs) == 0 {
		return domain.Post{}, domain.ErrInvalidInput
	}

	now := s.nowFn()
	status := domain.PostStatusDraft
	if in.ScheduledAt != nil {
		if in.ScheduledAt.Before(now) {
			return domain.Post{}, domain.ErrInvalidInput
		}
		status = domain.PostStatusScheduled
	}
	post := domain.Post{
		PostID:       "post-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		Content:      in.Content,
		PostType:     in.PostType,
		Hashtags:     in.Hashtags,
		FirstComment: strings.TrimSpace(in.FirstComment),
		MediaURLs:    in.MediaURLs,
		Status:       status,
		ScheduledAt:  in.ScheduledAt,
		CreatedBy:    actor.SubjectID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return domain.Post{}, err
	}
	return post, nil
}

// UpdatePost edits a draft or scheduled post. Anything past scheduling is
// frozen as an audit record.
func (s *Service) UpdatePost(ctx context.Context, actor Actor, postID string, in CreatePostInput) (domain.Post, error) {
	post, err := s.GetPost(ctx, actor, postID)
	if err != nil {
		return domain.Post{}, err
	}
	if !post.Mutable() {
		return domain.Post{}, domain.ErrPostImmutable
	}

	now := s.nowFn()
	if in.Content != "" {
		post.Content = strings.TrimSpace(in.Content)
	}
	if in.PostType != "" {
		postType := strings.ToLower(strings.TrimSpace(in.PostType))
		if !domain.IsValidPostType(postType) {
			return domain.Post{}, domain.ErrInvalidInput
		}
		post.PostType = postType
	}
	if in.Hashtags != nil {
		post.Hashtags = in.Hashtags
	}
	if in.MediaURLs != nil {
		post.MediaURLs = in.MediaURLs
	}
	if in.FirstComment != "" {
		post.FirstComment = strings.TrimSpace(in.FirstComment)
	}
	if in.ScheduledAt != nil {
		if in.ScheduledAt.Before(now) {
			return domain.Post{}, domain.ErrInvalidInput
		}
		post.ScheduledAt = in.ScheduledAt
		post.Status = domain.PostStatusScheduled
	}
	post.UpdatedAt = now
	if err := s.posts.Update(ctx, post); err != nil {
		return domain.Post{}, err
	}
	return post, nil
}

func (s *Service) GetPost(ctx context.Context, actor Actor, postID string) (domain.Post, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Post{}, domain.ErrUnauthorized
	}
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return domain.Post{}, err
	}
	if !canActForOwner(actor, post.CreatedBy) {
		return domain.Post{}, domain.ErrForbidden
	}
	return post, nil
}

func (s *Service) ListPosts(ctx context.Context, actor Actor, limit int) ([]domain.Post, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return nil, domain.ErrUnauthorized
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.posts.ListByCreator(ctx, actor.SubjectID, limit)
}

func (s *Service) ListTargets(ctx context.Context, actor Actor, postID string) ([]domain.Target, error) {
	if _, err := s.GetPost(ctx, actor, postID); err != nil {
		return nil, err
	}
	return s.targets.ListByPost(ctx, postID)
}

func (s *Service) GetTargetAnalytics(ctx context.Context, actor Actor, targetID string) (domain.Analytics, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Analytics{}, domain.ErrUnauthorized
	}
	target, err := s.targets.GetByID(ctx, targetID)
	if err != nil {
		return domain.Analytics{}, err
	}
	post, err := s.posts.GetByID(ctx, target.PostID)
	if err != nil {
		return domain.Analytics{}, err
	}
	if !canActForOwner(actor, post.CreatedBy) {
		return domain.Analytics{}, domain.ErrForbidden
	}
	return s.analytics.GetByTarget(ctx, targetID)
}

// Cancel stops delivery for targets that have not been attempted yet.
// Targets already publishing run to completion; their results stand.
func (s *Service) Cancel(ctx context.Context, actor Actor, postID string) (domain.Post, error) {
	post, err := s.GetPost(ctx, actor, postID)
	if err != nil {
		return domain.Post{}, err
	}
	switch post.Status {
	case domain.PostStatusPublished, domain.PostStatusPartiallyPublished, domain.PostStatusFailed, domain.PostStatusCancelled:
		return domain.Post{}, domain.ErrConflict
	}

	now := s.nowFn()
	if _, err := s.targets.CancelPending(ctx, postID, now); err != nil {
		return domain.Post{}, err
	}

	targets, err := s.targets.ListByPost(ctx, postID)
	if err != nil {
		return domain.Post{}, err
	}
	status := domain.PostStatusCancelled
	if len(targets) > 0 {
		// Attempts already in flight keep the post in the aggregate machine;
		// a post with only cancelled targets collapses to cancelled.
		agg := domain.AggregatePostStatus(targets)
		if agg != domain.PostStatusFailed {
			status = agg
		}
		allCancelled := true
		for _, t := range targets {
			if t.Status != domain.TargetStatusCancelled {
				allCancelled = false
				break
			}
		}
		if allCancelled {
			status = domain.PostStatusCancelled
		}
	}
	if err := s.posts.UpdateStatus(ctx, postID, status, nil, now); err != nil {
		return domain.Post{}, err
	}
	post.Status = status
	post.UpdatedAt = now
	s.logger.InfoContext(ctx, "post cancelled",
		"module", "application",
		"operation", "cancel",
		"outcome", "success",
		"post_id", postID,
		"post_status", status,
	)
	return post, nil
}

func (s *Service) GetHealth(context.Context) map[string]any {
	now := s.nowFn()
	return map[string]any{
		"status":         "healthy",
		"timestamp":      now,
		"uptime_seconds": int64(now.Sub(s.startedAt).Seconds()),
		"version":        s.cfg.Version,
	}
}

// composeContent merges per-target overrides with the post body and appends
// hashtags the way the composer renders them.
func composeContent(post domain.Post, target domain.Target) string {
	content := post.Content
	if strings.TrimSpace(target.ContentOverride) != "" {
		content = target.ContentOverride
	}
	hashtags := post.Hashtags
	if len(target.HashtagsOverride) > 0 {
		hashtags = target.HashtagsOverride
	}
	if len(hashtags) > 0 {
		rendered := make([]string, 0, len(hashtags))
		for _, tag := range hashtags {
			tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
			if tag != "" {
				rendered = append(rendered, "#"+tag)
			}
		}
		if len(rendered) > 0 {
			content += "\n\n" + strings.Join(rendered, " ")
		}
	}
	return content
}

func canActForOwner(actor Actor, ownerID string) bool {
	if strings.TrimSpace(actor.SubjectID) == strings.TrimSpace(ownerID) {
		return true
	}
	role := strings.ToLower(strings.TrimSpace(actor.Role))
	return role == "admin" || role == "system"
}

func (s *Service) getIdempotentBody(ctx context.Context, key, expectedHash string) ([]byte, bool, error) {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return nil, false, nil
	}
	rec, err := s.idempotency.Get(ctx, key, s.nowFn())
	if err != nil || rec == nil {
		return nil, false, err
	}
	if rec.RequestHash != expectedHash {
		return nil, false, domain.ErrIdempotencyConflict
	}
	if len(rec.ResponseBody) == 0 {
		return nil, false, nil
	}
	return append([]byte(nil), rec.ResponseBody...), true, nil
}

func (s *Service) reserveIdempotency(ctx context.Context, key, requestHash string) error {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return nil
	}
	if err := s.idempotency.Reserve(ctx, key, requestHash, s.nowFn().Add(s.cfg.IdempotencyTTL)); err != nil {
		if err == domain.ErrConflict {
			return domain.ErrIdempotencyConflict
		}
		return err
	}
	return nil
}

func (s *Service) completeIdempotencyJSON(ctx context.Context, key string, code int, payload any) error {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return nil
	}
	raw, _ := json.Marshal(payload)
	return s.idempotency.Complete(ctx, key, code, raw, s.nowFn())
}

func hashJSON(v any) string {
	raw, _ := json.Marshal(v)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func ptrTime(t time.Time) *time.Time { return &t }
