package ports

import (
	"context"

	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/domain"
)

// Capabilities describes what a platform accepts. The dispatcher rejects
// violating content locally before any network call.
type Capabilities struct {
	RequiresMedia        bool
	MaxTextLength        int
	MaxMediaItems        int
	SupportsVideo        bool
	SupportsFirstComment bool
}

// PublishContent is the composed payload for one target: base content plus
// per-target overrides already applied.
type PublishContent struct {
	Text         string
	PostType     string
	MediaURLs    []string
	FirstComment string
}

type PublishResult struct {
	PlatformPostID string
	PlatformURL    string
}

// PlatformGateway is the per-platform adapter contract. Implementations
// classify every failure into a domain.PublishError; nothing else escapes.
type PlatformGateway interface {
	Platform() string
	Capabilities() Capabilities
	Publish(ctx context.Context, account domain.Account, content PublishContent) (PublishResult, error)
	FetchInsights(ctx context.Context, account domain.Account, platformPostID string) (domain.Insights, error)
}

// GatewayResolver maps (platform, connection type) to an adapter. Replaces
// the string-switch dispatch of older implementations with a registry.
type GatewayResolver interface {
	Resolve(platform, connectionType string) (PlatformGateway, error)
}

// MediaValidator pre-flights media references against platform constraints
// before the dispatcher touches a gateway.
type MediaValidator interface {
	ValidateContent(platform string, caps Capabilities, content PublishContent) error
}
