package application

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/domain"
	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/ports"
)

const (
	EventTargetPublished = "social.post.target_published"
	EventTargetFailed    = "social.post.target_failed"
	EventPostResolved    = "social.post.resolved"
	EventAnalyticsSynced = "social.analytics.synced"
)

type publishJob struct {
	target  domain.Target
	account domain.Account
}

// Dispatch fans a post out to the given accounts. Each (post, account) pair
// gets exactly one target; targets publish independently and in parallel and
// the post's aggregate status is recomputed from the terminal set afterwards.
func (s *Service) Dispatch(ctx context.Context, actor Actor, postID string, accountIDs []string) (DispatchResult, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return DispatchResult{}, domain.ErrUnauthorized
	}
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return DispatchResult{}, err
	}
	if !canActForOwner(actor, post.CreatedBy) {
		return DispatchResult{}, domain.ErrForbidden
	}
	if len(accountIDs) == 0 {
		return DispatchResult{}, domain.ErrInvalidInput
	}

	// Replay lookup runs before the status gate so re-sending a completed
	// request returns its stored result instead of a conflict.
	hash := hashJSON(map[string]any{"op": "dispatch", "post_id": postID, "accounts": accountIDs})
	if cached, ok, err := s.getIdempotentBody(ctx, actor.IdempotencyKey, hash); err != nil {
		return DispatchResult{}, err
	} else if ok {
		var out DispatchResult
		if json.Unmarshal(cached, &out) == nil {
			return out, nil
		}
	}
	switch post.Status {
	case domain.PostStatusPublished, domain.PostStatusPartiallyPublished, domain.PostStatusCancelled:
		return DispatchResult{}, domain.ErrConflict
	}
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, hash); err != nil {
		return DispatchResult{}, err
	}

	now := s.nowFn()
	if err := s.posts.UpdateStatus(ctx, postID, domain.PostStatusPublishing, nil, now); err != nil {
		return DispatchResult{}, err
	}

	jobs := make([]publishJob, 0, len(accountIDs))
	for _, accountID := range accountIDs {
		account, err := s.accounts.GetByID(ctx, accountID)
		if err != nil {
			s.logger.WarnContext(ctx, "dispatch account lookup failed",
				"module", "application",
				"operation", "dispatch",
				"outcome", "failure",
				"post_id", postID,
				"social_account_id", accountID,
				"error", err,
			)
			continue
		}
		target, _, err := s.targets.GetOrCreate(ctx, domain.Target{
			TargetID:   "tgt-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
			PostID:     postID,
			AccountID:  accountID,
			Status:     domain.TargetStatusPending,
			MaxRetries: s.cfg.DefaultMaxRetries,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if err != nil {
			return DispatchResult{}, err
		}
		jobs = append(jobs, publishJob{target: target, account: account})
	}

	outcomes := s.runJobs(ctx, post, jobs)
	status, err := s.resolvePostStatus(ctx, post)
	if err != nil {
		return DispatchResult{}, err
	}

	result := DispatchResult{PostID: postID, PostStatus: status, Outcomes: outcomes}
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 202, result)
	return result, nil
}

// runJobs executes publish jobs on a bounded worker pool. No ordering is
// guaranteed between targets of the same post.
func (s *Service) runJobs(ctx context.Context, post domain.Post, jobs []publishJob) []TargetOutcome {
	outcomes := make([]TargetOutcome, len(jobs))
	sem := make(chan struct{}, s.cfg.MaxConcurrentPublishes)
	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, job publishJob) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = s.publishTarget(ctx, post, job.target, job.account)
		}(i, job)
	}
	wg.Wait()
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].TargetID < outcomes[j].TargetID })
	return outcomes
}

// publishTarget runs one delivery attempt. The pending->publishing CAS is
// the only thing standing between concurrent scheduler ticks and a double
// publish, so a lost swap means another attempt owns the target.
func (s *Service) publishTarget(ctx context.Context, post domain.Post, target domain.Target, account domain.Account) TargetOutcome {
	outcome := TargetOutcome{TargetID: target.TargetID, AccountID: account.AccountID, Platform: account.Platform}
	now := s.nowFn()

	ok, err := s.targets.TransitionStatus(ctx, target.TargetID, domain.TargetStatusPending, domain.TargetStatusPublishing, now)
	if err != nil {
		outcome.Status = target.Status
		outcome.ErrorMessage = err.Error()
		return outcome
	}
	if !ok {
		current, err := s.targets.GetByID(ctx, target.TargetID)
		if err == nil {
			outcome.Status = current.Status
		}
		s.logger.InfoContext(ctx, "target already claimed or terminal",
			"module", "application",
			"operation", "publish_target",
			"outcome", "skipped",
			"target_id", target.TargetID,
		)
		return outcome
	}

	result, pubErr := s.attemptPublish(ctx, post, target, account)
	now = s.nowFn()
	if pubErr == nil {
		if err := s.targets.MarkPublished(ctx, target.TargetID, result.PlatformPostID, result.PlatformURL, now); err != nil {
			outcome.Status = domain.TargetStatusFailed
			outcome.ErrorMessage = err.Error()
			return outcome
		}
		outcome.Status = domain.TargetStatusPublished
		s.emitTargetEvent(ctx, EventTargetPublished, post, target, account, result.PlatformURL, "")
		s.logger.InfoContext(ctx, "target published",
			"module", "application",
			"operation", "publish_target",
			"outcome", "success",
			"target_id", target.TargetID,
			"platform", account.Platform,
			"platform_post_id", result.PlatformPostID,
		)
		return outcome
	}

	pe := domain.ClassifyError(pubErr)
	decision := s.retry.Decide(pe, target.RetryCount, target.MaxRetries, now)

	if decision.MarkAccount != "" {
		// Idempotent flip; parallel jobs on the same account may race here.
		if err := s.accounts.MarkStatus(ctx, account.AccountID, decision.MarkAccount, pe.Message, now); err != nil {
			s.logger.ErrorContext(ctx, "account status update failed",
				"module", "application",
				"operation", "publish_target",
				"outcome", "failure",
				"social_account_id", account.AccountID,
				"error", err,
			)
		}
	}

	if decision.Retry {
		if err := s.targets.ScheduleRetry(ctx, target.TargetID, target.RetryCount+1, decision.NextRetryAt, now); err != nil {
			outcome.Status = domain.TargetStatusFailed
			outcome.ErrorMessage = err.Error()
			return outcome
		}
		outcome.Status = domain.TargetStatusPending
		outcome.ErrorMessage = pe.Message
		outcome.WillRetry = true
		s.logger.WarnContext(ctx, "target publish failed; retry scheduled",
			"module", "application",
			"operation", "publish_target",
			"outcome", "retry",
			"target_id", target.TargetID,
			"platform", account.Platform,
			"retry_count", target.RetryCount+1,
			"next_retry_at", decision.NextRetryAt,
			"error", pe.Message,
		)
		return outcome
	}

	if err := s.targets.MarkFailed(ctx, target.TargetID, pe.Message, now); err != nil {
		outcome.Status = domain.TargetStatusFailed
		outcome.ErrorMessage = err.Error()
		return outcome
	}
	outcome.Status = domain.TargetStatusFailed
	outcome.ErrorMessage = pe.Message
	s.emitTargetEvent(ctx, EventTargetFailed, post, target, account, "", pe.Message)
	s.logger.ErrorContext(ctx, "target publish failed",
		"module", "application",
		"operation", "publish_target",
		"outcome", "failure",
		"target_id", target.TargetID,
		"platform", account.Platform,
		"error_kind", string(pe.Kind),
		"error", pe.Message,
	)
	return outcome
}

// attemptPublish performs the precondition checks and the gateway call for
// one target. Every returned error is a classified *domain.PublishError.
func (s *Service) attemptPublish(ctx context.Context, post domain.Post, target domain.Target, account domain.Account) (ports.PublishResult, error) {
	now := s.nowFn()
	if account.Status != domain.AccountStatusConnected {
		return ports.PublishResult{}, domain.AuthErrorf(account.Platform, "account %s is %s; reconnect before publishing", account.Name, account.Status)
	}
	if !account.PostingEnabled {
		return ports.PublishResult{}, domain.ValidationErrorf(account.Platform, "account %s does not support API posting", account.Name)
	}
	if account.TokenExpired(now) {
		return ports.PublishResult{}, domain.AuthErrorf(account.Platform, "access token for %s expired", account.Name)
	}

	gateway, err := s.gateways.Resolve(account.Platform, account.ConnectionType)
	if err != nil {
		return ports.PublishResult{}, domain.ValidationErrorf(account.Platform, "no publishing adapter for platform %s", account.Platform)
	}

	content := ports.PublishContent{
		Text:         composeContent(post, target),
		PostType:     post.PostType,
		MediaURLs:    post.MediaURLs,
		FirstComment: post.FirstComment,
	}
	if s.validator != nil {
		if err := s.validator.ValidateContent(account.Platform, gateway.Capabilities(), content); err != nil {
			return ports.PublishResult{}, err
		}
	}

	publishCtx, cancel := context.WithTimeout(ctx, s.cfg.PublishTimeout)
	defer cancel()
	return gateway.Publish(publishCtx, account, content)
}

// resolvePostStatus recomputes the aggregate from the full target set and
// persists it. Targets awaiting retry keep the post in publishing.
func (s *Service) resolvePostStatus(ctx context.Context, post domain.Post) (string, error) {
	targets, err := s.targets.ListByPost(ctx, post.PostID)
	if err != nil {
		return "", err
	}
	status := domain.AggregatePostStatus(targets)
	now := s.nowFn()
	var publishedAt *time.Time
	if status == domain.PostStatusPublished || status == domain.PostStatusPartiallyPublished {
		publishedAt = ptrTime(now)
	}
	if err := s.posts.UpdateStatus(ctx, post.PostID, status, publishedAt, now); err != nil {
		return "", err
	}
	if domainPostTerminal(status) {
		payload, _ := json.Marshal(map[string]any{
			"post_id":     post.PostID,
			"post_status": status,
			"resolved_at": now,
		})
		s.enqueueEvent(ctx, EventPostResolved, post.PostID, payload)
	}
	return status, nil
}

func domainPostTerminal(status string) bool {
	switch status {
	case domain.PostStatusPublished, domain.PostStatusPartiallyPublished, domain.PostStatusFailed, domain.PostStatusCancelled:
		return true
	default:
		return false
	}
}

func (s *Service) emitTargetEvent(ctx context.Context, eventType string, post domain.Post, target domain.Target, account domain.Account, platformURL, errorMessage string) {
	payload, _ := json.Marshal(map[string]any{
		"post_id":       post.PostID,
		"target_id":     target.TargetID,
		"account_id":    account.AccountID,
		"platform":      account.Platform,
		"platform_url":  platformURL,
		"error_message": errorMessage,
		"occurred_at":   s.nowFn(),
	})
	s.enqueueEvent(ctx, eventType, target.TargetID, payload)
}

func (s *Service) enqueueEvent(ctx context.Context, eventType, partitionKey string, payload []byte) {
	if s.outbox == nil {
		return
	}
	rec := ports.OutboxRecord{
		OutboxID:     uuid.NewString(),
		EventType:    eventType,
		PartitionKey: partitionKey,
		Payload:      payload,
		CreatedAt:    s.nowFn(),
	}
	if err := s.outbox.Enqueue(ctx, rec); err != nil {
		s.logger.ErrorContext(ctx, "outbox enqueue failed",
			"module", "application",
			"operation", "enqueue_event",
			"outcome", "failure",
			"event_type", eventType,
			"error", err,
		)
	}
}
