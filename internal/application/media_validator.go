package application

import (
	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/domain"
	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/ports"
)

// StandardMediaValidator pre-flights composed content against the target
// platform's capabilities. Violations never reach the network.
type StandardMediaValidator struct{}

func NewMediaValidator() *StandardMediaValidator { return &StandardMediaValidator{} }

func (v *StandardMediaValidator) ValidateContent(platform string, caps ports.Capabilities, content ports.PublishContent) error {
	if caps.RequiresMedia && len(content.MediaURLs) == 0 {
		return domain.ValidationErrorf(platform, "media required: %s does not accept text-only posts", platform)
	}
	if caps.MaxTextLength > 0 && len([]rune(content.Text)) > caps.MaxTextLength {
		return domain.ValidationErrorf(platform, "text length %d exceeds %s limit of %d", len([]rune(content.Text)), platform, caps.MaxTextLength)
	}
	if caps.MaxMediaItems > 0 && len(content.MediaURLs) > caps.MaxMediaItems {
		return domain.ValidationErrorf(platform, "%d media items exceed %s limit of %d", len(content.MediaURLs), platform, caps.MaxMediaItems)
	}

	videos := 0
	for _, u := range content.MediaURLs {
		kind := domain.MediaKind(u)
		if kind == "" {
			return domain.ValidationErrorf(platform, "unsupported media type for %s", u)
		}
		if kind == "video" {
			videos++
		}
	}
	if videos > 0 && !caps.SupportsVideo {
		return domain.ValidationErrorf(platform, "%s does not support video posts", platform)
	}

	switch content.PostType {
	case domain.PostTypeCarousel:
		if len(content.MediaURLs) < 2 {
			return domain.ValidationErrorf(platform, "carousel posts need at least two media items")
		}
	case domain.PostTypeStory, domain.PostTypeReel:
		if len(content.MediaURLs) != 1 {
			return domain.ValidationErrorf(platform, "%s posts need exactly one media item", content.PostType)
		}
	case domain.PostTypeVideo:
		if videos == 0 {
			return domain.ValidationErrorf(platform, "video post has no video media")
		}
		if videos > 1 {
			return domain.ValidationErrorf(platform, "multiple videos are not supported in one post")
		}
	}
	return nil
}
