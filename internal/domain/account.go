package domain

import "time"

const (
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
	PlatformLinkedIn  = "linkedin"
)

const (
	AccountStatusConnected    = "connected"
	AccountStatusExpired      = "expired"
	AccountStatusDisconnected = "disconnected"
	AccountStatusError        = "error"
)

const (
	ConnectionTypeStandard         = "standard"
	ConnectionTypeFacebookBusiness = "facebook_business"
	ConnectionTypeInstagramDirect  = "instagram_direct"
)

// Account is a connected platform identity. The dispatcher treats it as
// read-only except for the auth-failure path, which flips Status atomically.
type Account struct {
	AccountID      string     `json:"account_id"`
	Platform       string     `json:"platform"`
	ConnectionType string     `json:"connection_type"`
	ExternalID     string     `json:"external_id"`
	Name           string     `json:"name"`
	Username       string     `json:"username,omitempty"`
	AccessToken    string     `json:"-"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
	Status         string     `json:"status"`
	PostingEnabled bool       `json:"posting_enabled"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func IsValidPlatform(v string) bool {
	switch v {
	case PlatformFacebook, PlatformInstagram, PlatformLinkedIn:
		return true
	default:
		return false
	}
}

func (a Account) TokenExpired(now time.Time) bool {
	return a.TokenExpiresAt != nil && now.After(*a.TokenExpiresAt)
}
