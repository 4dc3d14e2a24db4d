package platforms

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/domain"
	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/ports"
)

// InstagramGateway publishes through the media-container protocol: create a
// container referencing remote media, wait for processing when video is
// involved, then publish the container. The same flow serves both the
// Facebook-business connection (graph.facebook.com) and the direct
// connection (graph.instagram.com); only the host differs.
type InstagramGateway struct {
	client       *client
	baseURL      string
	pollInterval time.Duration
	pollTimeout  time.Duration
}

func NewInstagramGateway(cfg Config) *InstagramGateway {
	cfg = cfg.withDefaults()
	return &InstagramGateway{
		client:       newClient(cfg),
		baseURL:      cfg.InstagramGraphURL,
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
	}
}

func NewInstagramDirectGateway(cfg Config) *InstagramGateway {
	cfg = cfg.withDefaults()
	return &InstagramGateway{
		client:       newClient(cfg),
		baseURL:      cfg.InstagramDirectURL,
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
	}
}

func (g *InstagramGateway) Platform() string { return domain.PlatformInstagram }

func (g *InstagramGateway) Capabilities() ports.Capabilities {
	return ports.Capabilities{
		RequiresMedia:        true,
		MaxTextLength:        2200,
		MaxMediaItems:        10,
		SupportsVideo:        true,
		SupportsFirstComment: true,
	}
}

type containerResponse struct {
	ID string `json:"id"`
}

type containerStatus struct {
	StatusCode string `json:"status_code"`
	ID         string `json:"id"`
}

func (g *InstagramGateway) Publish(ctx context.Context, account domain.Account, content ports.PublishContent) (ports.PublishResult, error) {
	if len(content.MediaURLs) == 0 {
		return ports.PublishResult{}, domain.ValidationErrorf(domain.PlatformInstagram, "media required: text-only posts are not supported")
	}

	var containerID string
	var err error
	if len(content.MediaURLs) == 1 {
		containerID, err = g.createContainer(ctx, account, content.Text, content.MediaURLs[0], content.PostType, false)
	} else {
		containerID, err = g.createCarousel(ctx, account, content)
	}
	if err != nil {
		return ports.PublishResult{}, err
	}

	if hasVideo(content.MediaURLs) {
		if err := g.waitForContainer(ctx, account, containerID); err != nil {
			return ports.PublishResult{}, err
		}
	}

	mediaID, err := g.publishContainer(ctx, account, containerID)
	if err != nil {
		return ports.PublishResult{}, err
	}

	if content.FirstComment != "" {
		// Best effort; a failed comment never fails the publish.
		g.addComment(ctx, account, mediaID, content.FirstComment)
	}

	return ports.PublishResult{
		PlatformPostID: mediaID,
		PlatformURL:    g.permalink(ctx, account, mediaID),
	}, nil
}

func (g *InstagramGateway) createContainer(ctx context.Context, account domain.Account, caption, mediaURL, postType string, carouselItem bool) (string, error) {
	form := url.Values{}
	form.Set("access_token", account.AccessToken)
	switch domain.MediaKind(mediaURL) {
	case "video":
		form.Set("video_url", mediaURL)
		switch postType {
		case domain.PostTypeStory:
			form.Set("media_type", "STORIES")
		default:
			form.Set("media_type", "REELS")
		}
	default:
		form.Set("image_url", mediaURL)
		if postType == domain.PostTypeStory {
			form.Set("media_type", "STORIES")
		}
	}
	if carouselItem {
		form.Set("is_carousel_item", "true")
	} else if caption != "" {
		form.Set("caption", caption)
	}

	var out containerResponse
	endpoint := fmt.Sprintf("%s/%s/media", g.baseURL, account.ExternalID)
	if err := g.client.postForm(ctx, domain.PlatformInstagram, endpoint, form, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", domain.TransientErrorf(domain.PlatformInstagram, "container creation returned no id")
	}
	return out.ID, nil
}

func (g *InstagramGateway) createCarousel(ctx context.Context, account domain.Account, content ports.PublishContent) (string, error) {
	children := make([]string, 0, len(content.MediaURLs))
	for _, mediaURL := range content.MediaURLs {
		childID, err := g.createContainer(ctx, account, "", mediaURL, content.PostType, true)
		if err != nil {
			return "", err
		}
		children = append(children, childID)
	}

	form := url.Values{}
	form.Set("access_token", account.AccessToken)
	form.Set("media_type", "CAROUSEL")
	form.Set("children", joinComma(children))
	if content.Text != "" {
		form.Set("caption", content.Text)
	}

	var out containerResponse
	endpoint := fmt.Sprintf("%s/%s/media", g.baseURL, account.ExternalID)
	if err := g.client.postForm(ctx, domain.PlatformInstagram, endpoint, form, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", domain.TransientErrorf(domain.PlatformInstagram, "carousel container returned no id")
	}
	return out.ID, nil
}

// waitForContainer polls processing status at a fixed interval under an
// absolute deadline. A timeout is a transient failure so the target stays
// retryable; ERROR/EXPIRED from the platform is terminal.
func (g *InstagramGateway) waitForContainer(ctx context.Context, account domain.Account, containerID string) error {
	deadline := time.NewTimer(g.pollTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	for {
		status, err := g.containerStatus(ctx, account, containerID)
		if err != nil {
			return err
		}
		switch status {
		case "FINISHED":
			return nil
		case "ERROR":
			return domain.RejectionErrorf(domain.PlatformInstagram, "media container %s failed processing", containerID)
		case "EXPIRED":
			return domain.RejectionErrorf(domain.PlatformInstagram, "media container %s expired before publish", containerID)
		}

		select {
		case <-ctx.Done():
			return domain.TransientErrorf(domain.PlatformInstagram, "container wait aborted: %v", ctx.Err())
		case <-deadline.C:
			return domain.TransientErrorf(domain.PlatformInstagram, "media container %s not ready after %s", containerID, g.pollTimeout)
		case <-ticker.C:
		}
	}
}

func (g *InstagramGateway) containerStatus(ctx context.Context, account domain.Account, containerID string) (string, error) {
	params := url.Values{}
	params.Set("fields", "status_code")
	params.Set("access_token", account.AccessToken)
	var out containerStatus
	endpoint := fmt.Sprintf("%s/%s", g.baseURL, containerID)
	if err := g.client.getJSON(ctx, domain.PlatformInstagram, endpoint, params, nil, &out); err != nil {
		return "", err
	}
	return out.StatusCode, nil
}

func (g *InstagramGateway) publishContainer(ctx context.Context, account domain.Account, containerID string) (string, error) {
	form := url.Values{}
	form.Set("access_token", account.AccessToken)
	form.Set("creation_id", containerID)

	var out containerResponse
	endpoint := fmt.Sprintf("%s/%s/media_publish", g.baseURL, account.ExternalID)
	if err := g.client.postForm(ctx, domain.PlatformInstagram, endpoint, form, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", domain.TransientErrorf(domain.PlatformInstagram, "media_publish returned no id")
	}
	return out.ID, nil
}

func (g *InstagramGateway) addComment(ctx context.Context, account domain.Account, mediaID, message string) {
	form := url.Values{}
	form.Set("access_token", account.AccessToken)
	form.Set("message", message)
	endpoint := fmt.Sprintf("%s/%s/comments", g.baseURL, mediaID)
	_ = g.client.postForm(ctx, domain.PlatformInstagram, endpoint, form, nil)
}

func (g *InstagramGateway) permalink(ctx context.Context, account domain.Account, mediaID string) string {
	params := url.Values{}
	params.Set("fields", "permalink")
	params.Set("access_token", account.AccessToken)
	var out struct {
		Permalink string `json:"permalink"`
	}
	endpoint := fmt.Sprintf("%s/%s", g.baseURL, mediaID)
	if err := g.client.getJSON(ctx, domain.PlatformInstagram, endpoint, params, nil, &out); err == nil && out.Permalink != "" {
		return out.Permalink
	}
	return fmt.Sprintf("https://www.instagram.com/p/%s/", mediaID)
}

var instagramMetricMap = map[string]func(*domain.Insights, int64){
	"impressions": func(i *domain.Insights, v int64) { i.Impressions = v },
	"reach":       func(i *domain.Insights, v int64) { i.Reach = v },
	"likes":       func(i *domain.Insights, v int64) { i.Likes = v },
	"comments":    func(i *domain.Insights, v int64) { i.Comments = v },
	"shares":      func(i *domain.Insights, v int64) { i.Shares = v },
	"saved":       func(i *domain.Insights, v int64) { i.Saves = v },
	"saves":       func(i *domain.Insights, v int64) { i.Saves = v },
	"video_views": func(i *domain.Insights, v int64) { i.VideoViews = v },
	"plays":       func(i *domain.Insights, v int64) { i.VideoViews = v },
}

func (g *InstagramGateway) FetchInsights(ctx context.Context, account domain.Account, platformPostID string) (domain.Insights, error) {
	params := url.Values{}
	params.Set("metric", "impressions,reach,likes,comments,shares,saves,video_views")
	params.Set("access_token", account.AccessToken)

	var out graphInsightsResponse
	endpoint := fmt.Sprintf("%s/%s/insights", g.baseURL, platformPostID)
	if err := g.client.getJSON(ctx, domain.PlatformInstagram, endpoint, params, nil, &out); err != nil {
		pe := domain.ClassifyError(err)
		if insightsUnavailable(pe) {
			return domain.Insights{}, fmt.Errorf("%w: %s", domain.ErrInsightsLimited, pe.Message)
		}
		return domain.Insights{}, err
	}
	return normalizeGraphInsights(out, instagramMetricMap), nil
}

func joinComma(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ","
		}
		out += item
	}
	return out
}

func hasVideo(mediaURLs []string) bool {
	for _, u := range mediaURLs {
		if domain.MediaKind(u) == "video" {
			return true
		}
	}
	return false
}
