package application

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/domain"
)

// Reconcile pulls platform insights for every published target of one
// account and upserts the canonical analytics row. Running it twice in a
// row changes nothing but the synced-at timestamp.
func (s *Service) Reconcile(ctx context.Context, actor Actor, accountID string, daysBack int) (ReconcileSummary, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return ReconcileSummary{}, domain.ErrUnauthorized
	}
	if daysBack <= 0 {
		daysBack = s.cfg.AnalyticsDaysBack
	}
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return ReconcileSummary{}, err
	}
	summary := ReconcileSummary{AccountID: accountID}
	if account.Status != domain.AccountStatusConnected {
		summary.AccessLimited = true
		summary.LimitedReason = "account is " + account.Status
		return summary, nil
	}

	if s.insightsAccess != nil {
		if reason, limited, err := s.insightsAccess.Limited(ctx, accountID); err == nil && limited {
			summary.AccessLimited = true
			summary.LimitedReason = reason
			return summary, nil
		}
	}

	gateway, err := s.gateways.Resolve(account.Platform, account.ConnectionType)
	if err != nil {
		summary.AccessLimited = true
		summary.LimitedReason = "no insights adapter for platform " + account.Platform
		return summary, nil
	}

	now := s.nowFn()
	since := now.AddDate(0, 0, -daysBack)
	targets, err := s.targets.ListPublishedByAccount(ctx, accountID, since)
	if err != nil {
		return ReconcileSummary{}, err
	}
	summary.TargetsSeen = len(targets)

	for _, target := range targets {
		if target.PlatformPostID == "" {
			summary.Skipped++
			continue
		}
		if target.PublishedAt != nil && now.Sub(*target.PublishedAt) < s.cfg.AnalyticsGrace {
			// Platforms need a little time before first insights exist.
			summary.Skipped++
			continue
		}

		insights, err := gateway.FetchInsights(ctx, account, target.PlatformPostID)
		if err != nil {
			if errors.Is(err, domain.ErrInsightsLimited) {
				summary.AccessLimited = true
				summary.LimitedReason = err.Error()
				if s.insightsAccess != nil {
					_ = s.insightsAccess.MarkLimited(ctx, accountID, err.Error(), s.cfg.InsightsLimitedTTL)
				}
				s.logger.InfoContext(ctx, "insights access limited",
					"module", "application",
					"operation", "reconcile",
					"outcome", "limited",
					"social_account_id", accountID,
					"platform", account.Platform,
				)
				break
			}
			pe := domain.ClassifyError(err)
			if pe.Kind == domain.ErrorKindAuth {
				_ = s.accounts.MarkStatus(ctx, accountID, domain.AccountStatusExpired, pe.Message, s.nowFn())
				summary.Failed++
				break
			}
			summary.Failed++
			s.logger.WarnContext(ctx, "insights fetch failed",
				"module", "application",
				"operation", "reconcile",
				"outcome", "failure",
				"target_id", target.TargetID,
				"platform", account.Platform,
				"error", err,
			)
			continue
		}

		row := canonicalAnalytics(target.TargetID, insights, s.nowFn())
		if err := s.analytics.Upsert(ctx, row); err != nil {
			summary.Failed++
			continue
		}
		summary.Synced++
		payload, _ := json.Marshal(map[string]any{
			"target_id":   target.TargetID,
			"account_id":  accountID,
			"platform":    account.Platform,
			"impressions": row.Impressions,
			"reach":       row.Reach,
			"synced_at":   row.SyncedAt,
		})
		s.enqueueEvent(ctx, EventAnalyticsSynced, target.TargetID, payload)
	}

	s.logger.InfoContext(ctx, "analytics reconciliation completed",
		"module", "application",
		"operation", "reconcile",
		"outcome", "success",
		"social_account_id", accountID,
		"targets_seen", summary.TargetsSeen,
		"synced", summary.Synced,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	return summary, nil
}

// ReconcileAll runs reconciliation across every connected account; used by
// the periodic analytics worker.
func (s *Service) ReconcileAll(ctx context.Context, daysBack int) (int, error) {
	accounts, err := s.accounts.ListConnected(ctx)
	if err != nil {
		return 0, err
	}
	synced := 0
	for _, account := range accounts {
		summary, err := s.Reconcile(ctx, systemActor, account.AccountID, daysBack)
		if err != nil {
			s.logger.ErrorContext(ctx, "account reconciliation failed",
				"module", "application",
				"operation", "reconcile_all",
				"outcome", "failure",
				"social_account_id", account.AccountID,
				"error", err,
			)
			continue
		}
		synced += summary.Synced
	}
	return synced, nil
}

func canonicalAnalytics(targetID string, in domain.Insights, now time.Time) domain.Analytics {
	return domain.Analytics{
		TargetID:            targetID,
		Impressions:         in.Impressions,
		Reach:               in.Reach,
		Likes:               in.Likes,
		Comments:            in.Comments,
		Shares:              in.Shares,
		Saves:               in.Saves,
		Clicks:              in.Clicks,
		VideoViews:          in.VideoViews,
		VideoCompletionRate: in.VideoCompletionRate,
		PlatformMetrics:     in.PlatformMetrics,
		SyncedAt:            now,
	}
}
