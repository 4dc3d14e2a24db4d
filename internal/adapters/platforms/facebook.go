package platforms

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/domain"
	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/ports"
)

// FacebookGateway publishes to a Facebook page. Text posts are a single
// /feed call; image posts upload each photo unpublished and attach them to a
// feed post; video posts go through /videos and a processing poll.
type FacebookGateway struct {
	client       *client
	baseURL      string
	pollInterval time.Duration
	pollTimeout  time.Duration
}

func NewFacebookGateway(cfg Config) *FacebookGateway {
	cfg = cfg.withDefaults()
	return &FacebookGateway{
		client:       newClient(cfg),
		baseURL:      cfg.FacebookGraphURL,
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
	}
}

func (g *FacebookGateway) Platform() string { return domain.PlatformFacebook }

func (g *FacebookGateway) Capabilities() ports.Capabilities {
	return ports.Capabilities{
		RequiresMedia:        false,
		MaxTextLength:        63206,
		MaxMediaItems:        10,
		SupportsVideo:        true,
		SupportsFirstComment: true,
	}
}

type graphIDResponse struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

func (g *FacebookGateway) Publish(ctx context.Context, account domain.Account, content ports.PublishContent) (ports.PublishResult, error) {
	var postID string
	var err error
	switch {
	case hasVideo(content.MediaURLs):
		postID, err = g.publishVideo(ctx, account, content)
	case len(content.MediaURLs) > 0:
		postID, err = g.publishPhotos(ctx, account, content)
	default:
		postID, err = g.publishText(ctx, account, content)
	}
	if err != nil {
		return ports.PublishResult{}, err
	}

	if content.FirstComment != "" {
		// Best effort; a failed comment never fails the publish.
		g.addComment(ctx, account, postID, content.FirstComment)
	}

	return ports.PublishResult{
		PlatformPostID: postID,
		PlatformURL:    fmt.Sprintf("https://www.facebook.com/%s", postID),
	}, nil
}

func (g *FacebookGateway) publishText(ctx context.Context, account domain.Account, content ports.PublishContent) (string, error) {
	form := url.Values{}
	form.Set("access_token", account.AccessToken)
	form.Set("message", content.Text)

	var out graphIDResponse
	endpoint := fmt.Sprintf("%s/%s/feed", g.baseURL, account.ExternalID)
	if err := g.client.postForm(ctx, domain.PlatformFacebook, endpoint, form, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", domain.TransientErrorf(domain.PlatformFacebook, "feed post returned no id")
	}
	return out.ID, nil
}

// publishPhotos uploads each image unpublished, then creates one feed post
// referencing all of them so multi-image posts render as a single story.
func (g *FacebookGateway) publishPhotos(ctx context.Context, account domain.Account, content ports.PublishContent) (string, error) {
	photoIDs := make([]string, 0, len(content.MediaURLs))
	for _, mediaURL := range content.MediaURLs {
		form := url.Values{}
		form.Set("access_token", account.AccessToken)
		form.Set("url", mediaURL)
		form.Set("published", "false")

		var out graphIDResponse
		endpoint := fmt.Sprintf("%s/%s/photos", g.baseURL, account.ExternalID)
		if err := g.client.postForm(ctx, domain.PlatformFacebook, endpoint, form, &out); err != nil {
			return "", err
		}
		if out.ID == "" {
			return "", domain.TransientErrorf(domain.PlatformFacebook, "photo upload returned no id")
		}
		photoIDs = append(photoIDs, out.ID)
	}

	form := url.Values{}
	form.Set("access_token", account.AccessToken)
	form.Set("message", content.Text)
	for i, photoID := range photoIDs {
		form.Set(
			fmt.Sprintf("attached_media[%s]", strconv.Itoa(i)),
			fmt.Sprintf(`{"media_fbid":"%s"}`, photoID),
		)
	}

	var out graphIDResponse
	endpoint := fmt.Sprintf("%s/%s/feed", g.baseURL, account.ExternalID)
	if err := g.client.postForm(ctx, domain.PlatformFacebook, endpoint, form, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", domain.TransientErrorf(domain.PlatformFacebook, "photo feed post returned no id")
	}
	return out.ID, nil
}

func (g *FacebookGateway) publishVideo(ctx context.Context, account domain.Account, content ports.PublishContent) (string, error) {
	form := url.Values{}
	form.Set("access_token", account.AccessToken)
	form.Set("file_url", content.MediaURLs[0])
	if content.Text != "" {
		form.Set("description", content.Text)
	}

	var out graphIDResponse
	endpoint := fmt.Sprintf("%s/%s/videos", g.baseURL, account.ExternalID)
	if err := g.client.postForm(ctx, domain.PlatformFacebook, endpoint, form, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", domain.TransientErrorf(domain.PlatformFacebook, "video upload returned no id")
	}
	if err := g.waitForVideo(ctx, account, out.ID); err != nil {
		return "", err
	}
	return out.ID, nil
}

// waitForVideo polls upload processing until the video is ready. The poll
// contract mirrors the container wait: fixed interval, absolute deadline,
// timeout stays retryable.
func (g *FacebookGateway) waitForVideo(ctx context.Context, account domain.Account, videoID string) error {
	deadline := time.NewTimer(g.pollTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	for {
		status, err := g.videoStatus(ctx, account, videoID)
		if err != nil {
			return err
		}
		switch status {
		case "ready":
			return nil
		case "error":
			return domain.RejectionErrorf(domain.PlatformFacebook, "video %s failed processing", videoID)
		}

		select {
		case <-ctx.Done():
			return domain.TransientErrorf(domain.PlatformFacebook, "video wait aborted: %v", ctx.Err())
		case <-deadline.C:
			return domain.TransientErrorf(domain.PlatformFacebook, "video %s not ready after %s", videoID, g.pollTimeout)
		case <-ticker.C:
		}
	}
}

func (g *FacebookGateway) videoStatus(ctx context.Context, account domain.Account, videoID string) (string, error) {
	params := url.Values{}
	params.Set("fields", "status")
	params.Set("access_token", account.AccessToken)
	var out struct {
		Status struct {
			VideoStatus string `json:"video_status"`
		} `json:"status"`
	}
	endpoint := fmt.Sprintf("%s/%s", g.baseURL, videoID)
	if err := g.client.getJSON(ctx, domain.PlatformFacebook, endpoint, params, nil, &out); err != nil {
		return "", err
	}
	return out.Status.VideoStatus, nil
}

func (g *FacebookGateway) addComment(ctx context.Context, account domain.Account, postID, message string) {
	form := url.Values{}
	form.Set("access_token", account.AccessToken)
	form.Set("message", message)
	endpoint := fmt.Sprintf("%s/%s/comments", g.baseURL, postID)
	_ = g.client.postForm(ctx, domain.PlatformFacebook, endpoint, form, nil)
}

var facebookMetricMap = map[string]func(*domain.Insights, int64){
	"post_impressions":        func(i *domain.Insights, v int64) { i.Impressions = v },
	"post_impressions_unique": func(i *domain.Insights, v int64) { i.Reach = v },
	"post_clicks":             func(i *domain.Insights, v int64) { i.Clicks = v },
	"post_video_views":        func(i *domain.Insights, v int64) { i.VideoViews = v },
}

func (g *FacebookGateway) FetchInsights(ctx context.Context, account domain.Account, platformPostID string) (domain.Insights, error) {
	params := url.Values{}
	params.Set("metric", "post_impressions,post_impressions_unique,post_clicks,post_video_views")
	params.Set("access_token", account.AccessToken)

	var out graphInsightsResponse
	endpoint := fmt.Sprintf("%s/%s/insights", g.baseURL, platformPostID)
	if err := g.client.getJSON(ctx, domain.PlatformFacebook, endpoint, params, nil, &out); err != nil {
		pe := domain.ClassifyError(err)
		if insightsUnavailable(pe) {
			return domain.Insights{}, fmt.Errorf("%w: %s", domain.ErrInsightsLimited, pe.Message)
		}
		return domain.Insights{}, err
	}
	insights := normalizeGraphInsights(out, facebookMetricMap)

	// Reactions and comment counts live on the object itself, not the
	// insights edge.
	g.fillEngagement(ctx, account, platformPostID, &insights)
	return insights, nil
}

func (g *FacebookGateway) fillEngagement(ctx context.Context, account domain.Account, postID string, insights *domain.Insights) {
	params := url.Values{}
	params.Set("fields", "reactions.summary(total_count),comments.summary(total_count),shares")
	params.Set("access_token", account.AccessToken)
	var out struct {
		Reactions struct {
			Summary struct {
				TotalCount int64 `json:"total_count"`
			} `json:"summary"`
		} `json:"reactions"`
		Comments struct {
			Summary struct {
				TotalCount int64 `json:"total_count"`
			} `json:"summary"`
		} `json:"comments"`
		Shares struct {
			Count int64 `json:"count"`
		} `json:"shares"`
	}
	endpoint := fmt.Sprintf("%s/%s", g.baseURL, postID)
	if err := g.client.getJSON(ctx, domain.PlatformFacebook, endpoint, params, nil, &out); err != nil {
		return
	}
	insights.Likes = out.Reactions.Summary.TotalCount
	insights.Comments = out.Comments.Summary.TotalCount
	insights.Shares = out.Shares.Count
}
