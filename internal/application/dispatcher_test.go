package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/domain"
	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/ports"
)

func mustCreatePost(t *testing.T, env *testEnv, in CreatePostInput) domain.Post {
	t.Helper()
	post, err := env.svc.CreatePost(context.Background(), Actor{SubjectID: "creator-1"}, in)
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	return post
}

func TestDispatchAllTargetsSucceed(t *testing.T) {
	env := newTestEnv()
	env.connectedAccount("acc-1", domain.PlatformFacebook)
	env.connectedAccount("acc-2", domain.PlatformLinkedIn)
	post := mustCreatePost(t, env, CreatePostInput{Content: "hello"})

	result, err := env.svc.Dispatch(context.Background(), Actor{SubjectID: "creator-1"}, post.PostID, []string{"acc-1", "acc-2"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result.PostStatus != domain.PostStatusPublished {
		t.Fatalf("post status = %q, want published", result.PostStatus)
	}
	if len(result.Outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2", len(result.Outcomes))
	}
	for _, o := range result.Outcomes {
		if o.Status != domain.TargetStatusPublished {
			t.Fatalf("outcome %s status = %q, want published", o.TargetID, o.Status)
		}
	}

	stored, err := env.posts.GetByID(context.Background(), post.PostID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != domain.PostStatusPublished {
		t.Fatalf("stored post status = %q, want published", stored.Status)
	}
	if stored.PublishedAt == nil {
		t.Fatal("stored post has no published_at")
	}

	var published, resolved int
	for _, et := range env.outbox.eventTypes() {
		switch et {
		case EventTargetPublished:
			published++
		case EventPostResolved:
			resolved++
		}
	}
	if published != 2 || resolved != 1 {
		t.Fatalf("events published=%d resolved=%d, want 2/1", published, resolved)
	}
}

func TestDispatchPartialFailure(t *testing.T) {
	env := newTestEnv()
	env.connectedAccount("acc-1", domain.PlatformFacebook)
	env.connectedAccount("acc-2", domain.PlatformLinkedIn)
	okGW := newFakeGateway(domain.PlatformFacebook)
	badGW := newFakeGateway(domain.PlatformLinkedIn)
	badGW.errs = []error{domain.RejectionErrorf(domain.PlatformLinkedIn, "duplicate content")}
	env.svc.gateways = &fakeResolver{gateways: map[string]ports.PlatformGateway{
		domain.PlatformFacebook: okGW,
		domain.PlatformLinkedIn: badGW,
	}}
	post := mustCreatePost(t, env, CreatePostInput{Content: "hello"})

	result, err := env.svc.Dispatch(context.Background(), Actor{SubjectID: "creator-1"}, post.PostID, []string{"acc-1", "acc-2"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result.PostStatus != domain.PostStatusPartiallyPublished {
		t.Fatalf("post status = %q, want partially_published", result.PostStatus)
	}
	var failed *TargetOutcome
	for i := range result.Outcomes {
		if result.Outcomes[i].Status == domain.TargetStatusFailed {
			failed = &result.Outcomes[i]
		}
	}
	if failed == nil {
		t.Fatal("no failed outcome")
	}
	if failed.WillRetry {
		t.Fatal("platform rejection must not retry")
	}
	if failed.ErrorMessage == "" {
		t.Fatal("failed outcome has no error message")
	}
}

func TestDispatchAllTargetsFail(t *testing.T) {
	env := newTestEnv()
	env.connectedAccount("acc-1", domain.PlatformFacebook)
	env.gateway.errs = []error{domain.ValidationErrorf(domain.PlatformFacebook, "bad media")}
	post := mustCreatePost(t, env, CreatePostInput{Content: "hello"})

	result, err := env.svc.Dispatch(context.Background(), Actor{SubjectID: "creator-1"}, post.PostID, []string{"acc-1"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result.PostStatus != domain.PostStatusFailed {
		t.Fatalf("post status = %q, want failed", result.PostStatus)
	}
	var sawFailed bool
	for _, et := range env.outbox.eventTypes() {
		if et == EventTargetFailed {
			sawFailed = true
		}
	}
	if !sawFailed {
		t.Fatal("no target_failed event enqueued")
	}
}

func TestDispatchTransientFailureSchedulesRetry(t *testing.T) {
	env := newTestEnv()
	env.connectedAccount("acc-1", domain.PlatformFacebook)
	env.gateway.errs = []error{domain.TransientErrorf(domain.PlatformFacebook, "rate limited")}
	post := mustCreatePost(t, env, CreatePostInput{Content: "hello"})

	result, err := env.svc.Dispatch(context.Background(), Actor{SubjectID: "creator-1"}, post.PostID, []string{"acc-1"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result.PostStatus != domain.PostStatusPublishing {
		t.Fatalf("post status = %q, want publishing while a retry is due", result.PostStatus)
	}
	if len(result.Outcomes) != 1 {
		t.Fatalf("outcomes = %d, want 1", len(result.Outcomes))
	}
	outcome := result.Outcomes[0]
	if outcome.Status != domain.TargetStatusPending || !outcome.WillRetry {
		t.Fatalf("outcome = %+v, want pending with will_retry", outcome)
	}

	target, err := env.targets.GetByID(context.Background(), outcome.TargetID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if target.RetryCount != 1 {
		t.Fatalf("retry count = %d, want 1", target.RetryCount)
	}
	if target.NextRetryAt == nil {
		t.Fatal("no next_retry_at scheduled")
	}
	if got, want := target.NextRetryAt.Sub(env.now), time.Minute; got != want {
		t.Fatalf("first backoff = %v, want %v", got, want)
	}
}

func TestDispatchSkipsClaimedTarget(t *testing.T) {
	env := newTestEnv()
	env.connectedAccount("acc-1", domain.PlatformFacebook)
	post := mustCreatePost(t, env, CreatePostInput{Content: "hello"})

	// Another instance already holds the claim.
	env.targets.targets["tgt-claimed"] = domain.Target{
		TargetID:  "tgt-claimed",
		PostID:    post.PostID,
		AccountID: "acc-1",
		Status:    domain.TargetStatusPublishing,
		CreatedAt: env.now,
		UpdatedAt: env.now,
	}

	result, err := env.svc.Dispatch(context.Background(), Actor{SubjectID: "creator-1"}, post.PostID, []string{"acc-1"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if env.gateway.calls != 0 {
		t.Fatalf("gateway called %d times for a claimed target, want 0", env.gateway.calls)
	}
	if result.Outcomes[0].Status != domain.TargetStatusPublishing {
		t.Fatalf("outcome status = %q, want publishing", result.Outcomes[0].Status)
	}
	if result.PostStatus != domain.PostStatusPublishing {
		t.Fatalf("post status = %q, want publishing", result.PostStatus)
	}
}

func TestDispatchAuthFailureExpiresAccount(t *testing.T) {
	env := newTestEnv()
	env.connectedAccount("acc-1", domain.PlatformFacebook)
	env.gateway.errs = []error{domain.AuthErrorf(domain.PlatformFacebook, "token invalid")}
	post := mustCreatePost(t, env, CreatePostInput{Content: "hello"})

	result, err := env.svc.Dispatch(context.Background(), Actor{SubjectID: "creator-1"}, post.PostID, []string{"acc-1"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result.Outcomes[0].Status != domain.TargetStatusFailed {
		t.Fatalf("outcome status = %q, want failed", result.Outcomes[0].Status)
	}
	if result.Outcomes[0].WillRetry {
		t.Fatal("auth failure must not retry")
	}
	account, err := env.accounts.GetByID(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if account.Status != domain.AccountStatusExpired {
		t.Fatalf("account status = %q, want expired", account.Status)
	}
}

func TestDispatchDisconnectedAccountFailsTarget(t *testing.T) {
	env := newTestEnv()
	account := env.connectedAccount("acc-1", domain.PlatformFacebook)
	account.Status = domain.AccountStatusDisconnected
	env.accounts.put(account)
	post := mustCreatePost(t, env, CreatePostInput{Content: "hello"})

	result, err := env.svc.Dispatch(context.Background(), Actor{SubjectID: "creator-1"}, post.PostID, []string{"acc-1"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result.Outcomes[0].Status != domain.TargetStatusFailed {
		t.Fatalf("outcome status = %q, want failed", result.Outcomes[0].Status)
	}
	if env.gateway.calls != 0 {
		t.Fatal("gateway must not be called for a disconnected account")
	}
}

func TestDispatchRequiresOwnership(t *testing.T) {
	env := newTestEnv()
	env.connectedAccount("acc-1", domain.PlatformFacebook)
	post := mustCreatePost(t, env, CreatePostInput{Content: "hello"})

	_, err := env.svc.Dispatch(context.Background(), Actor{SubjectID: "someone-else"}, post.PostID, []string{"acc-1"})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
	_, err = env.svc.Dispatch(context.Background(), Actor{SubjectID: "creator-1"}, post.PostID, nil)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want invalid_input", err)
	}
}

func TestDispatchIdempotentReplay(t *testing.T) {
	env := newTestEnv()
	env.connectedAccount("acc-1", domain.PlatformFacebook)
	post := mustCreatePost(t, env, CreatePostInput{Content: "hello"})
	actor := Actor{SubjectID: "creator-1", IdempotencyKey: "key-1"}

	first, err := env.svc.Dispatch(context.Background(), actor, post.PostID, []string{"acc-1"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	replay, err := env.svc.Dispatch(context.Background(), actor, post.PostID, []string{"acc-1"})
	if err != nil {
		t.Fatalf("replay Dispatch: %v", err)
	}
	if env.gateway.calls != 1 {
		t.Fatalf("gateway called %d times, want 1", env.gateway.calls)
	}
	if replay.PostStatus != first.PostStatus || len(replay.Outcomes) != len(first.Outcomes) {
		t.Fatalf("replay = %+v, want %+v", replay, first)
	}
}

func TestDispatchIdempotencyKeyReuseConflicts(t *testing.T) {
	env := newTestEnv()
	env.connectedAccount("acc-1", domain.PlatformFacebook)
	env.connectedAccount("acc-2", domain.PlatformLinkedIn)
	post := mustCreatePost(t, env, CreatePostInput{Content: "hello"})
	actor := Actor{SubjectID: "creator-1", IdempotencyKey: "key-1"}

	if _, err := env.svc.Dispatch(context.Background(), actor, post.PostID, []string{"acc-1"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	_, err := env.svc.Dispatch(context.Background(), actor, post.PostID, []string{"acc-2"})
	if !errors.Is(err, domain.ErrIdempotencyConflict) {
		t.Fatalf("err = %v, want idempotency_conflict", err)
	}
}

func TestDispatchOnTerminalPostConflicts(t *testing.T) {
	env := newTestEnv()
	env.connectedAccount("acc-1", domain.PlatformFacebook)
	post := mustCreatePost(t, env, CreatePostInput{Content: "hello"})
	if _, err := env.svc.Dispatch(context.Background(), Actor{SubjectID: "creator-1"}, post.PostID, []string{"acc-1"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	_, err := env.svc.Dispatch(context.Background(), Actor{SubjectID: "creator-1"}, post.PostID, []string{"acc-1"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}
