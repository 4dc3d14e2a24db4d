package platforms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/domain"
	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/ports"
)

func linkedinForTest(t *testing.T, handler http.Handler) (*LinkedInGateway, domain.Account, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	gw := NewLinkedInGateway(Config{LinkedInAPIURL: server.URL, RequestsPerSecond: 1000})
	return gw, domain.Account{
		AccountID:   "acc-1",
		Platform:    domain.PlatformLinkedIn,
		ExternalID:  "member-1",
		AccessToken: "token-1",
		Status:      domain.AccountStatusConnected,
	}, server
}

func TestLinkedInPublishText(t *testing.T) {
	var gotBody map[string]any
	var gotAuth, gotRestli string
	gw, account, _ := linkedinForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ugcPosts" {
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		gotRestli = r.Header.Get("X-Restli-Protocol-Version")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("X-Restli-Id", "urn:li:ugcPost:123")
		w.WriteHeader(http.StatusCreated)
	}))

	result, err := gw.Publish(context.Background(), account, ports.PublishContent{Text: "hello network"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if result.PlatformPostID != "urn:li:ugcPost:123" {
		t.Fatalf("platform post id = %q, want id from the Restli header", result.PlatformPostID)
	}
	if result.PlatformURL != "https://www.linkedin.com/feed/update/urn:li:ugcPost:123" {
		t.Fatalf("platform url = %q", result.PlatformURL)
	}
	if gotAuth != "Bearer token-1" || gotRestli != "2.0.0" {
		t.Fatalf("headers = %q / %q", gotAuth, gotRestli)
	}
	if gotBody["author"] != "urn:li:person:member-1" {
		t.Fatalf("author = %v", gotBody["author"])
	}
	if gotBody["lifecycleState"] != "PUBLISHED" {
		t.Fatalf("lifecycleState = %v", gotBody["lifecycleState"])
	}
}

func TestLinkedInPublishImageUploadsAsset(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	var uploadedBytes []byte

	mux := http.NewServeMux()
	var serverURL string
	mux.HandleFunc("/assets", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, "register")
		mu.Unlock()
		fmt.Fprintf(w, `{"value":{"asset":"urn:li:digitalmediaAsset:abc","uploadMechanism":{"com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest":{"uploadUrl":%q}}}}`, serverURL+"/upload-slot")
	})
	mux.HandleFunc("/upload-slot", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, "upload")
		uploadedBytes = raw
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/media/a.jpg", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, "fetch")
		mu.Unlock()
		fmt.Fprint(w, "jpegbytes")
	})
	mux.HandleFunc("/ugcPosts", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		mu.Lock()
		calls = append(calls, "post")
		mu.Unlock()
		specific := body["specificContent"].(map[string]any)["com.linkedin.ugc.ShareContent"].(map[string]any)
		if specific["shareMediaCategory"] != "IMAGE" {
			t.Errorf("shareMediaCategory = %v, want IMAGE", specific["shareMediaCategory"])
		}
		w.Header().Set("X-Restli-Id", "urn:li:ugcPost:456")
		w.WriteHeader(http.StatusCreated)
	})

	gw, account, server := linkedinForTest(t, mux)
	serverURL = server.URL

	result, err := gw.Publish(context.Background(), account, ports.PublishContent{
		Text:      "with media",
		PostType:  domain.PostTypeImage,
		MediaURLs: []string{server.URL + "/media/a.jpg"},
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if result.PlatformPostID != "urn:li:ugcPost:456" {
		t.Fatalf("platform post id = %q", result.PlatformPostID)
	}

	want := []string{"register", "fetch", "upload", "post"}
	mu.Lock()
	defer mu.Unlock()
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("call %d = %q, want %q", i, calls[i], want[i])
		}
	}
	if string(uploadedBytes) != "jpegbytes" {
		t.Fatalf("uploaded %q, want the fetched media bytes", uploadedBytes)
	}
}

func TestLinkedInPublishUnauthorized(t *testing.T) {
	gw, account, _ := linkedinForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, "token expired")
	}))

	_, err := gw.Publish(context.Background(), account, ports.PublishContent{Text: "x"})
	var pe *domain.PublishError
	if !errors.As(err, &pe) || pe.Kind != domain.ErrorKindAuth {
		t.Fatalf("err = %v, want auth", err)
	}
}

func TestLinkedInFetchInsights(t *testing.T) {
	gw, account, _ := linkedinForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/socialActions/urn:li:ugcPost:123" {
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"likesSummary":{"totalLikes":9},"commentsSummary":{"totalFirstLevelComments":3}}`)
	}))

	insights, err := gw.FetchInsights(context.Background(), account, "urn:li:ugcPost:123")
	if err != nil {
		t.Fatalf("FetchInsights: %v", err)
	}
	if insights.Likes != 9 || insights.Comments != 3 {
		t.Fatalf("insights = %+v, want likes 9 comments 3", insights)
	}
}

func TestLinkedInFetchInsightsForbiddenIsLimited(t *testing.T) {
	gw, account, _ := linkedinForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, "not permitted")
	}))

	_, err := gw.FetchInsights(context.Background(), account, "urn:li:ugcPost:123")
	if !errors.Is(err, domain.ErrInsightsLimited) {
		t.Fatalf("err = %v, want insights_access_limited", err)
	}
}
