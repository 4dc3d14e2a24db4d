package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/domain"
)

// Config carries the knobs shared by every gateway: HTTP timeout, the
// container-readiness poll contract, and a client-side rate limit so burst
// fan-outs do not trip platform throttling on their own.
type Config struct {
	HTTPTimeout        time.Duration
	PollInterval       time.Duration
	PollTimeout        time.Duration
	RequestsPerSecond  float64
	FacebookGraphURL   string
	InstagramGraphURL  string
	InstagramDirectURL string
	LinkedInAPIURL     string
}

func (c Config) withDefaults() Config {
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 60 * time.Second
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 5
	}
	if c.FacebookGraphURL == "" {
		c.FacebookGraphURL = "https://graph.facebook.com/v21.0"
	}
	if c.InstagramGraphURL == "" {
		c.InstagramGraphURL = "https://graph.facebook.com/v21.0"
	}
	if c.InstagramDirectURL == "" {
		c.InstagramDirectURL = "https://graph.instagram.com/v21.0"
	}
	if c.LinkedInAPIURL == "" {
		c.LinkedInAPIURL = "https://api.linkedin.com/v2"
	}
	return c
}

type client struct {
	http    *http.Client
	limiter *rate.Limiter
}

func newClient(cfg Config) *client {
	return &client{
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), int(cfg.RequestsPerSecond)+1),
	}
}

func (c *client) wait(ctx context.Context, platform string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.TransientErrorf(platform, "rate limiter wait: %v", err)
	}
	return nil
}

// postForm sends an application/x-www-form-urlencoded POST and decodes the
// JSON response into out. Used by the Graph API endpoints.
func (c *client) postForm(ctx context.Context, platform, rawURL string, form url.Values, out any) error {
	if err := c.wait(ctx, platform); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.TransientErrorf(platform, "build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, platform, out)
}

func (c *client) getJSON(ctx context.Context, platform, rawURL string, params url.Values, headers map[string]string, out any) error {
	if err := c.wait(ctx, platform); err != nil {
		return err
	}
	if len(params) > 0 {
		rawURL = rawURL + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return domain.TransientErrorf(platform, "build request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.do(req, platform, out)
}

func (c *client) postJSON(ctx context.Context, platform, rawURL string, body any, headers map[string]string, out any) error {
	if err := c.wait(ctx, platform); err != nil {
		return err
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return domain.TransientErrorf(platform, "encode request: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(raw))
	if err != nil {
		return domain.TransientErrorf(platform, "build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.do(req, platform, out)
}

func (c *client) putBytes(ctx context.Context, platform, rawURL string, payload []byte, headers map[string]string) error {
	if err := c.wait(ctx, platform); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, rawURL, bytes.NewReader(payload))
	if err != nil {
		return domain.TransientErrorf(platform, "build request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(platform, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return classifyHTTP(platform, resp.StatusCode, string(raw))
}

// fetchBytes downloads a remote media reference so it can be re-uploaded to
// platforms that do not accept URLs (LinkedIn asset upload).
func (c *client) fetchBytes(ctx context.Context, platform, rawURL string, maxBytes int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, domain.TransientErrorf(platform, "build media request: %v", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(platform, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, domain.ValidationErrorf(platform, "media url %s returned status %d", rawURL, resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return nil, domain.TransientErrorf(platform, "read media body: %v", err)
	}
	return raw, nil
}

func (c *client) do(req *http.Request, platform string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(platform, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.TransientErrorf(platform, "read response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if ge := decodeGraphError(raw); ge != nil {
			return classifyGraph(platform, resp.StatusCode, ge)
		}
		return classifyHTTP(platform, resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	if restliID := resp.Header.Get("X-Restli-Id"); restliID != "" {
		if target, ok := out.(*restliResponse); ok {
			target.ID = restliID
			return nil
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return domain.TransientErrorf(platform, "decode response: %v", err)
	}
	return nil
}

type restliResponse struct {
	ID string `json:"id"`
}

func transportError(platform string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.TransientErrorf(platform, "request deadline exceeded")
	}
	return domain.NewPublishError(domain.ErrorKindTransient, platform, fmt.Sprintf("request failed: %v", err), err)
}
