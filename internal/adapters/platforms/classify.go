package platforms

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/domain"
)

// graphError is the Graph API error envelope shared by Facebook and
// Instagram endpoints.
type graphError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode"`
}

func decodeGraphError(raw []byte) *graphError {
	var envelope struct {
		Error *graphError `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil
	}
	return envelope.Error
}

// classifyGraph maps a Graph API error to the publish taxonomy. The error
// code, not the HTTP status, is authoritative: Graph reports expired tokens
// as code 190 and throttling as codes 4/17/32/613.
func classifyGraph(platform string, status int, ge *graphError) *domain.PublishError {
	switch ge.Code {
	case 190, 102:
		return domain.AuthErrorf(platform, "%s", ge.Message)
	case 4, 17, 32, 613:
		return domain.TransientErrorf(platform, "rate limited: %s", ge.Message)
	}
	if ge.Type == "OAuthException" {
		return domain.AuthErrorf(platform, "%s", ge.Message)
	}
	switch {
	case status == http.StatusUnauthorized:
		return domain.AuthErrorf(platform, "%s", ge.Message)
	case status == http.StatusTooManyRequests || status >= 500:
		return domain.TransientErrorf(platform, "%s", ge.Message)
	default:
		return domain.RejectionErrorf(platform, "%s", ge.Message)
	}
}

// classifyHTTP handles non-Graph responses (LinkedIn, raw upload hosts).
func classifyHTTP(platform string, status int, body string) *domain.PublishError {
	message := strings.TrimSpace(body)
	if message == "" {
		message = http.StatusText(status)
	}
	switch {
	case status == http.StatusUnauthorized:
		return domain.AuthErrorf(platform, "%s", message)
	case status == http.StatusTooManyRequests || status >= 500:
		return domain.TransientErrorf(platform, "status %d: %s", status, message)
	default:
		return domain.RejectionErrorf(platform, "status %d: %s", status, message)
	}
}

// insightsUnavailable reports whether a classified error means the account
// simply has no insights surface (personal profile, missing business
// status) rather than a transient or auth problem.
func insightsUnavailable(pe *domain.PublishError) bool {
	if pe.Kind != domain.ErrorKindPlatformRejection {
		return false
	}
	msg := strings.ToLower(pe.Message)
	return strings.Contains(msg, "(#10)") ||
		strings.Contains(msg, "permission") ||
		strings.Contains(msg, "does not support") ||
		strings.Contains(msg, "not supported for this")
}
