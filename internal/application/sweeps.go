package application

import (
	"context"

	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/domain"
)

const sweepBatchSize = 100

var systemActor = Actor{SubjectID: "system", Role: "system"}

// SweepDueScheduled dispatches posts whose scheduled time has passed. Safe
// to run from several instances at once: the per-target CAS, not the sweep,
// prevents double delivery.
func (s *Service) SweepDueScheduled(ctx context.Context) (int, error) {
	now := s.nowFn()
	due, err := s.posts.ListDueScheduled(ctx, now, sweepBatchSize)
	if err != nil {
		return 0, err
	}
	dispatched := 0
	for _, post := range due {
		targets, err := s.targets.ListByPost(ctx, post.PostID)
		if err != nil {
			return dispatched, err
		}
		if len(targets) == 0 {
			s.logger.WarnContext(ctx, "scheduled post has no targets",
				"module", "application",
				"operation", "sweep_scheduled",
				"outcome", "failure",
				"post_id", post.PostID,
			)
			_ = s.posts.UpdateStatus(ctx, post.PostID, domain.PostStatusFailed, nil, now)
			continue
		}
		accountIDs := make([]string, 0, len(targets))
		for _, t := range targets {
			accountIDs = append(accountIDs, t.AccountID)
		}
		if _, err := s.Dispatch(ctx, systemActor, post.PostID, accountIDs); err != nil {
			s.logger.ErrorContext(ctx, "scheduled dispatch failed",
				"module", "application",
				"operation", "sweep_scheduled",
				"outcome", "failure",
				"post_id", post.PostID,
				"error", err,
			)
			continue
		}
		dispatched++
	}
	return dispatched, nil
}

// SweepDueRetries re-attempts targets whose backoff has elapsed.
func (s *Service) SweepDueRetries(ctx context.Context) (int, error) {
	now := s.nowFn()
	due, err := s.targets.ListDueRetries(ctx, now, sweepBatchSize)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	byPost := make(map[string][]domain.Target)
	for _, t := range due {
		byPost[t.PostID] = append(byPost[t.PostID], t)
	}

	attempted := 0
	for postID, targets := range byPost {
		post, err := s.posts.GetByID(ctx, postID)
		if err != nil {
			s.logger.ErrorContext(ctx, "retry sweep post lookup failed",
				"module", "application",
				"operation", "sweep_retries",
				"outcome", "failure",
				"post_id", postID,
				"error", err,
			)
			continue
		}
		if post.Status == domain.PostStatusCancelled {
			continue
		}
		jobs := make([]publishJob, 0, len(targets))
		for _, t := range targets {
			account, err := s.accounts.GetByID(ctx, t.AccountID)
			if err != nil {
				continue
			}
			jobs = append(jobs, publishJob{target: t, account: account})
		}
		s.runJobs(ctx, post, jobs)
		attempted += len(jobs)
		if _, err := s.resolvePostStatus(ctx, post); err != nil {
			s.logger.ErrorContext(ctx, "retry sweep aggregate update failed",
				"module", "application",
				"operation", "sweep_retries",
				"outcome", "failure",
				"post_id", postID,
				"error", err,
			)
		}
	}
	return attempted, nil
}
