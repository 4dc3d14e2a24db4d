package platforms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/domain"
	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/ports"
)

type fbStub struct {
	mu          sync.Mutex
	calls       []string
	forms       []map[string]string
	videoStates []string
	videoIdx    int
}

func (s *fbStub) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.calls = append(s.calls, r.Method+" "+r.URL.Path)
		form := map[string]string{}
		for k := range r.Form {
			form[k] = r.Form.Get(k)
		}
		s.forms = append(s.forms, form)
		n := len(s.calls)
		s.mu.Unlock()

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/page-1/feed":
			fmt.Fprint(w, `{"id":"page-1_post-1"}`)
		case r.Method == http.MethodPost && r.URL.Path == "/page-1/photos":
			fmt.Fprintf(w, `{"id":"photo-%d"}`, n)
		case r.Method == http.MethodPost && r.URL.Path == "/page-1/videos":
			fmt.Fprint(w, `{"id":"video-1"}`)
		case r.Method == http.MethodGet && r.URL.Path == "/video-1":
			s.mu.Lock()
			state := "ready"
			if s.videoIdx < len(s.videoStates) {
				state = s.videoStates[s.videoIdx]
				s.videoIdx++
			}
			s.mu.Unlock()
			fmt.Fprintf(w, `{"status":{"video_status":%q}}`, state)
		case r.Method == http.MethodPost && (r.URL.Path == "/page-1_post-1/comments" || r.URL.Path == "/video-1/comments"):
			fmt.Fprint(w, `{"id":"comment-1"}`)
		default:
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func facebookForTest(t *testing.T, stub *fbStub) (*FacebookGateway, domain.Account) {
	t.Helper()
	server := httptest.NewServer(stub.handler(t))
	t.Cleanup(server.Close)
	gw := NewFacebookGateway(Config{
		FacebookGraphURL:  server.URL,
		PollInterval:      5 * time.Millisecond,
		PollTimeout:       100 * time.Millisecond,
		RequestsPerSecond: 1000,
	})
	account := domain.Account{
		AccountID:   "acc-1",
		Platform:    domain.PlatformFacebook,
		ExternalID:  "page-1",
		AccessToken: "token-1",
		Status:      domain.AccountStatusConnected,
	}
	return gw, account
}

func TestFacebookPublishText(t *testing.T) {
	stub := &fbStub{}
	gw, account := facebookForTest(t, stub)

	result, err := gw.Publish(context.Background(), account, ports.PublishContent{
		Text:     "hello",
		PostType: domain.PostTypeText,
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if result.PlatformPostID != "page-1_post-1" {
		t.Fatalf("platform post id = %q", result.PlatformPostID)
	}
	if result.PlatformURL != "https://www.facebook.com/page-1_post-1" {
		t.Fatalf("platform url = %q", result.PlatformURL)
	}
	if len(stub.calls) != 1 || stub.calls[0] != "POST /page-1/feed" {
		t.Fatalf("calls = %v", stub.calls)
	}
	if stub.forms[0]["message"] != "hello" {
		t.Fatalf("form = %v", stub.forms[0])
	}
}

func TestFacebookPublishPhotosAttachesAll(t *testing.T) {
	stub := &fbStub{}
	gw, account := facebookForTest(t, stub)

	_, err := gw.Publish(context.Background(), account, ports.PublishContent{
		Text:      "two photos",
		PostType:  domain.PostTypeImage,
		MediaURLs: []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"},
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	want := []string{"POST /page-1/photos", "POST /page-1/photos", "POST /page-1/feed"}
	if len(stub.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", stub.calls, want)
	}
	if stub.forms[0]["published"] != "false" {
		t.Fatalf("photo form = %v, want unpublished upload", stub.forms[0])
	}
	feed := stub.forms[2]
	if feed["attached_media[0]"] == "" || feed["attached_media[1]"] == "" {
		t.Fatalf("feed form = %v, want both photos attached", feed)
	}
}

func TestFacebookPublishVideoPolls(t *testing.T) {
	stub := &fbStub{videoStates: []string{"processing", "ready"}}
	gw, account := facebookForTest(t, stub)

	result, err := gw.Publish(context.Background(), account, ports.PublishContent{
		Text:         "clip",
		PostType:     domain.PostTypeVideo,
		MediaURLs:    []string{"https://cdn.example.com/clip.mp4"},
		FirstComment: "sound on",
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if result.PlatformPostID != "video-1" {
		t.Fatalf("platform post id = %q", result.PlatformPostID)
	}
	if stub.forms[0]["file_url"] == "" || stub.forms[0]["description"] != "clip" {
		t.Fatalf("video form = %v", stub.forms[0])
	}
	polls := 0
	for _, call := range stub.calls {
		if call == "GET /video-1" {
			polls++
		}
	}
	if polls != 2 {
		t.Fatalf("status polls = %d, want 2", polls)
	}
}

func TestFacebookVideoProcessingErrorIsRejection(t *testing.T) {
	stub := &fbStub{videoStates: []string{"error"}}
	gw, account := facebookForTest(t, stub)

	_, err := gw.Publish(context.Background(), account, ports.PublishContent{
		PostType:  domain.PostTypeVideo,
		MediaURLs: []string{"https://cdn.example.com/clip.mp4"},
	})
	var pe *domain.PublishError
	if !errors.As(err, &pe) || pe.Kind != domain.ErrorKindPlatformRejection {
		t.Fatalf("err = %v, want platform rejection", err)
	}
}

func TestFacebookFetchInsightsMergesEngagement(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/post-1/insights":
			fmt.Fprint(w, `{"data":[
				{"name":"post_impressions","values":[{"value":500}]},
				{"name":"post_impressions_unique","values":[{"value":400}]},
				{"name":"post_engaged_users","values":[{"value":55}]}
			]}`)
		case "/post-1":
			fmt.Fprint(w, `{
				"reactions":{"summary":{"total_count":21}},
				"comments":{"summary":{"total_count":4}},
				"shares":{"count":2}
			}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	gw := NewFacebookGateway(Config{FacebookGraphURL: server.URL, RequestsPerSecond: 1000})
	insights, err := gw.FetchInsights(context.Background(), domain.Account{AccessToken: "t"}, "post-1")
	if err != nil {
		t.Fatalf("FetchInsights: %v", err)
	}
	if insights.Impressions != 500 || insights.Reach != 400 {
		t.Fatalf("insights = %+v, want impressions/reach mapped", insights)
	}
	if insights.Likes != 21 || insights.Comments != 4 || insights.Shares != 2 {
		t.Fatalf("insights = %+v, want engagement merged from the object read", insights)
	}
	if _, ok := insights.PlatformMetrics["post_engaged_users"]; !ok {
		t.Fatalf("platform metrics = %v, want unmapped metric kept", insights.PlatformMetrics)
	}
}

func TestFacebookFetchInsightsPermissionErrorIsLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"(#10) This endpoint requires the pages_read_engagement permission","code":10}}`)
	}))
	defer server.Close()

	gw := NewFacebookGateway(Config{FacebookGraphURL: server.URL, RequestsPerSecond: 1000})
	_, err := gw.FetchInsights(context.Background(), domain.Account{AccessToken: "t"}, "post-1")
	if !errors.Is(err, domain.ErrInsightsLimited) {
		t.Fatalf("err = %v, want insights_access_limited", err)
	}
}
