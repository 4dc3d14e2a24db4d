package platforms

import (
	"context"
	"fmt"

	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/domain"
	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/ports"
)

const linkedinMaxMediaBytes = 100 << 20

// LinkedInGateway publishes UGC posts for a member profile. LinkedIn does
// not accept remote media URLs, so media goes through the asset upload
// flow: register an upload slot, download the source bytes, PUT them to the
// returned upload URL, then reference the asset urn in the post.
type LinkedInGateway struct {
	client  *client
	baseURL string
}

func NewLinkedInGateway(cfg Config) *LinkedInGateway {
	cfg = cfg.withDefaults()
	return &LinkedInGateway{
		client:  newClient(cfg),
		baseURL: cfg.LinkedInAPIURL,
	}
}

func (g *LinkedInGateway) Platform() string { return domain.PlatformLinkedIn }

func (g *LinkedInGateway) Capabilities() ports.Capabilities {
	return ports.Capabilities{
		RequiresMedia:        false,
		MaxTextLength:        3000,
		MaxMediaItems:        9,
		SupportsVideo:        true,
		SupportsFirstComment: false,
	}
}

func linkedinHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization":             "Bearer " + token,
		"X-Restli-Protocol-Version": "2.0.0",
	}
}

func (g *LinkedInGateway) Publish(ctx context.Context, account domain.Account, content ports.PublishContent) (ports.PublishResult, error) {
	author := "urn:li:person:" + account.ExternalID

	media := make([]map[string]any, 0, len(content.MediaURLs))
	category := "NONE"
	for _, mediaURL := range content.MediaURLs {
		assetURN, err := g.uploadAsset(ctx, account, author, mediaURL)
		if err != nil {
			return ports.PublishResult{}, err
		}
		media = append(media, map[string]any{
			"status": "READY",
			"media":  assetURN,
		})
	}
	if len(media) > 0 {
		category = "IMAGE"
		if hasVideo(content.MediaURLs) {
			category = "VIDEO"
		}
	}

	shareContent := map[string]any{
		"shareCommentary":    map[string]any{"text": content.Text},
		"shareMediaCategory": category,
	}
	if len(media) > 0 {
		shareContent["media"] = media
	}

	body := map[string]any{
		"author":         author,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": shareContent,
		},
		"visibility": map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	var out restliResponse
	endpoint := g.baseURL + "/ugcPosts"
	if err := g.client.postJSON(ctx, domain.PlatformLinkedIn, endpoint, body, linkedinHeaders(account.AccessToken), &out); err != nil {
		return ports.PublishResult{}, err
	}
	if out.ID == "" {
		return ports.PublishResult{}, domain.TransientErrorf(domain.PlatformLinkedIn, "ugcPosts returned no id")
	}

	return ports.PublishResult{
		PlatformPostID: out.ID,
		PlatformURL:    fmt.Sprintf("https://www.linkedin.com/feed/update/%s", out.ID),
	}, nil
}

type registerUploadResponse struct {
	Value struct {
		Asset           string `json:"asset"`
		UploadMechanism struct {
			Request struct {
				UploadURL string `json:"uploadUrl"`
			} `json:"com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"`
		} `json:"uploadMechanism"`
	} `json:"value"`
}

func (g *LinkedInGateway) uploadAsset(ctx context.Context, account domain.Account, author, mediaURL string) (string, error) {
	recipe := "urn:li:digitalmediaRecipe:feedshare-image"
	if domain.MediaKind(mediaURL) == "video" {
		recipe = "urn:li:digitalmediaRecipe:feedshare-video"
	}

	body := map[string]any{
		"registerUploadRequest": map[string]any{
			"recipes": []string{recipe},
			"owner":   author,
			"serviceRelationships": []map[string]any{{
				"relationshipType": "OWNER",
				"identifier":       "urn:li:userGeneratedContent",
			}},
		},
	}

	var out registerUploadResponse
	endpoint := g.baseURL + "/assets?action=registerUpload"
	if err := g.client.postJSON(ctx, domain.PlatformLinkedIn, endpoint, body, linkedinHeaders(account.AccessToken), &out); err != nil {
		return "", err
	}
	uploadURL := out.Value.UploadMechanism.Request.UploadURL
	if out.Value.Asset == "" || uploadURL == "" {
		return "", domain.TransientErrorf(domain.PlatformLinkedIn, "registerUpload returned no upload slot")
	}

	payload, err := g.client.fetchBytes(ctx, domain.PlatformLinkedIn, mediaURL, linkedinMaxMediaBytes)
	if err != nil {
		return "", err
	}
	if err := g.client.putBytes(ctx, domain.PlatformLinkedIn, uploadURL, payload, map[string]string{
		"Authorization": "Bearer " + account.AccessToken,
	}); err != nil {
		return "", err
	}
	return out.Value.Asset, nil
}

func (g *LinkedInGateway) FetchInsights(ctx context.Context, account domain.Account, platformPostID string) (domain.Insights, error) {
	var out struct {
		LikesSummary struct {
			TotalLikes int64 `json:"totalLikes"`
		} `json:"likesSummary"`
		CommentsSummary struct {
			TotalFirstLevelComments int64 `json:"totalFirstLevelComments"`
		} `json:"commentsSummary"`
	}
	endpoint := fmt.Sprintf("%s/socialActions/%s", g.baseURL, platformPostID)
	if err := g.client.getJSON(ctx, domain.PlatformLinkedIn, endpoint, nil, linkedinHeaders(account.AccessToken), &out); err != nil {
		pe := domain.ClassifyError(err)
		// Member-level API access has no organization analytics scope; a
		// 403 here is a stable property of the account, not a failure.
		if pe.Kind == domain.ErrorKindPlatformRejection {
			return domain.Insights{}, fmt.Errorf("%w: %s", domain.ErrInsightsLimited, pe.Message)
		}
		return domain.Insights{}, err
	}
	return domain.Insights{
		Likes:    out.LikesSummary.TotalLikes,
		Comments: out.CommentsSummary.TotalFirstLevelComments,
	}, nil
}
