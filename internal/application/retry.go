package application

import (
	"time"

	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/domain"
)

// RetryPolicy turns a classified publish failure into a structured decision.
// It is a pure value object so any queue or worker mechanism can consume it.
type RetryPolicy struct {
	BaseDelay  time.Duration
	MaxRetries int
}

type RetryDecision struct {
	Retry       bool
	NextRetryAt time.Time
	// MarkAccount holds the account status to set when the failure was an
	// auth failure; empty otherwise.
	MarkAccount string
}

// Decide applies the taxonomy: validation and platform rejections are
// terminal, auth failures are terminal and poison the account, transient
// failures back off exponentially until maxRetries is spent.
func (p RetryPolicy) Decide(pe *domain.PublishError, retryCount, maxRetries int, now time.Time) RetryDecision {
	if maxRetries <= 0 {
		maxRetries = p.MaxRetries
	}
	switch pe.Kind {
	case domain.ErrorKindAuth:
		return RetryDecision{MarkAccount: domain.AccountStatusExpired}
	case domain.ErrorKindValidation, domain.ErrorKindPlatformRejection:
		return RetryDecision{}
	case domain.ErrorKindTransient:
		if retryCount >= maxRetries {
			return RetryDecision{}
		}
		delay := p.BaseDelay * (1 << retryCount)
		return RetryDecision{Retry: true, NextRetryAt: now.Add(delay)}
	default:
		return RetryDecision{}
	}
}
