package application

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/domain"
	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/ports"
)

type fakePostRepo struct {
	mu    sync.Mutex
	posts map[string]domain.Post
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: map[string]domain.Post{}}
}

func (r *fakePostRepo) Create(_ context.Context, post domain.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[post.PostID]; ok {
		return domain.ErrConflict
	}
	r.posts[post.PostID] = post
	return nil
}

func (r *fakePostRepo) GetByID(_ context.Context, postID string) (domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[postID]
	if !ok {
		return domain.Post{}, domain.ErrNotFound
	}
	return post, nil
}

func (r *fakePostRepo) ListByCreator(_ context.Context, createdBy string, limit int) ([]domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Post, 0)
	for _, p := range r.posts {
		if p.CreatedBy == createdBy {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PostID < out[j].PostID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakePostRepo) Update(_ context.Context, post domain.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[post.PostID]; !ok {
		return domain.ErrNotFound
	}
	r.posts[post.PostID] = post
	return nil
}

func (r *fakePostRepo) UpdateStatus(_ context.Context, postID, status string, publishedAt *time.Time, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[postID]
	if !ok {
		return domain.ErrNotFound
	}
	post.Status = status
	if publishedAt != nil {
		post.PublishedAt = publishedAt
	}
	post.UpdatedAt = updatedAt
	r.posts[postID] = post
	return nil
}

func (r *fakePostRepo) ListDueScheduled(_ context.Context, now time.Time, limit int) ([]domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Post, 0)
	for _, p := range r.posts {
		if p.Status == domain.PostStatusScheduled && p.ScheduledAt != nil && !p.ScheduledAt.After(now) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PostID < out[j].PostID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeTargetRepo struct {
	mu      sync.Mutex
	targets map[string]domain.Target
}

func newFakeTargetRepo() *fakeTargetRepo {
	return &fakeTargetRepo{targets: map[string]domain.Target{}}
}

func (r *fakeTargetRepo) GetOrCreate(_ context.Context, row domain.Target) (domain.Target, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.targets {
		if t.PostID == row.PostID && t.AccountID == row.AccountID {
			return t, false, nil
		}
	}
	r.targets[row.TargetID] = row
	return row, true, nil
}

func (r *fakeTargetRepo) GetByID(_ context.Context, targetID string) (domain.Target, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[targetID]
	if !ok {
		return domain.Target{}, domain.ErrNotFound
	}
	return t, nil
}

func (r *fakeTargetRepo) ListByPost(_ context.Context, postID string) ([]domain.Target, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Target, 0)
	for _, t := range r.targets {
		if t.PostID == postID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetID < out[j].TargetID })
	return out, nil
}

func (r *fakeTargetRepo) ListDueRetries(_ context.Context, now time.Time, limit int) ([]domain.Target, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Target, 0)
	for _, t := range r.targets {
		if t.Status == domain.TargetStatusPending && t.NextRetryAt != nil && !t.NextRetryAt.After(now) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetID < out[j].TargetID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeTargetRepo) ListPublishedByAccount(_ context.Context, accountID string, since time.Time) ([]domain.Target, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Target, 0)
	for _, t := range r.targets {
		if t.AccountID == accountID && t.Status == domain.TargetStatusPublished &&
			t.PublishedAt != nil && !t.PublishedAt.Before(since) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetID < out[j].TargetID })
	return out, nil
}

func (r *fakeTargetRepo) TransitionStatus(_ context.Context, targetID, from, to string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[targetID]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	t.UpdatedAt = now
	r.targets[targetID] = t
	return true, nil
}

func (r *fakeTargetRepo) MarkPublished(_ context.Context, targetID, platformPostID, platformURL string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[targetID]
	if !ok {
		return domain.ErrNotFound
	}
	t.Status = domain.TargetStatusPublished
	t.PlatformPostID = platformPostID
	t.PlatformURL = platformURL
	t.ErrorMessage = ""
	t.NextRetryAt = nil
	t.PublishedAt = &at
	t.UpdatedAt = at
	r.targets[targetID] = t
	return nil
}

func (r *fakeTargetRepo) MarkFailed(_ context.Context, targetID, message string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[targetID]
	if !ok {
		return domain.ErrNotFound
	}
	t.Status = domain.TargetStatusFailed
	t.ErrorMessage = message
	t.NextRetryAt = nil
	t.UpdatedAt = at
	r.targets[targetID] = t
	return nil
}

func (r *fakeTargetRepo) ScheduleRetry(_ context.Context, targetID string, retryCount int, nextRetryAt, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[targetID]
	if !ok {
		return domain.ErrNotFound
	}
	t.Status = domain.TargetStatusPending
	t.RetryCount = retryCount
	t.NextRetryAt = &nextRetryAt
	t.UpdatedAt = now
	r.targets[targetID] = t
	return nil
}

func (r *fakeTargetRepo) CancelPending(_ context.Context, postID string, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, t := range r.targets {
		if t.PostID == postID && t.Status == domain.TargetStatusPending {
			t.Status = domain.TargetStatusCancelled
			t.NextRetryAt = nil
			t.UpdatedAt = now
			r.targets[id] = t
			n++
		}
	}
	return n, nil
}

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]domain.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: map[string]domain.Account{}}
}

func (r *fakeAccountRepo) put(a domain.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[a.AccountID] = a
}

func (r *fakeAccountRepo) GetByID(_ context.Context, accountID string) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[accountID]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return a, nil
}

func (r *fakeAccountRepo) ListConnected(_ context.Context) ([]domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Account, 0)
	for _, a := range r.accounts {
		if a.Status == domain.AccountStatusConnected {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}

func (r *fakeAccountRepo) MarkStatus(_ context.Context, accountID, status, message string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	a.Status = status
	a.ErrorMessage = message
	a.UpdatedAt = now
	r.accounts[accountID] = a
	return nil
}

type fakeAnalyticsRepo struct {
	mu      sync.Mutex
	rows    map[string]domain.Analytics
	upserts int
}

func newFakeAnalyticsRepo() *fakeAnalyticsRepo {
	return &fakeAnalyticsRepo{rows: map[string]domain.Analytics{}}
}

func (r *fakeAnalyticsRepo) Upsert(_ context.Context, row domain.Analytics) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.rows[row.TargetID]; ok {
		row.CreatedAt = existing.CreatedAt
	}
	r.rows[row.TargetID] = row
	r.upserts++
	return nil
}

func (r *fakeAnalyticsRepo) GetByTarget(_ context.Context, targetID string) (domain.Analytics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[targetID]
	if !ok {
		return domain.Analytics{}, domain.ErrNotFound
	}
	return row, nil
}

type fakeOutbox struct {
	mu      sync.Mutex
	records []ports.OutboxRecord
}

func (r *fakeOutbox) Enqueue(_ context.Context, rec ports.OutboxRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *fakeOutbox) ClaimUnpublished(context.Context, int, string, time.Time) ([]ports.OutboxRecord, error) {
	return nil, nil
}
func (r *fakeOutbox) MarkPublished(context.Context, string, string, time.Time) error    { return nil }
func (r *fakeOutbox) MarkFailed(context.Context, string, string, string, time.Time) error { return nil }
func (r *fakeOutbox) MarkDeadLettered(context.Context, string, string, string, time.Time) error {
	return nil
}

func (r *fakeOutbox) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.EventType)
	}
	return out
}

type fakeIdempotencyStore struct {
	mu   sync.Mutex
	rows map[string]*ports.IdempotencyRecord
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{rows: map[string]*ports.IdempotencyRecord{}}
}

func (s *fakeIdempotencyStore) Get(_ context.Context, key string, _ time.Time) (*ports.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rows[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeIdempotencyStore) Reserve(_ context.Context, key, requestHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[key]; ok {
		return domain.ErrConflict
	}
	s.rows[key] = &ports.IdempotencyRecord{Key: key, RequestHash: requestHash, Status: "PENDING", ExpiresAt: expiresAt}
	return nil
}

func (s *fakeIdempotencyStore) Complete(_ context.Context, key string, responseCode int, responseBody []byte, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rows[key]
	if !ok {
		return domain.ErrNotFound
	}
	rec.Status = "COMPLETED"
	rec.ResponseCode = responseCode
	rec.ResponseBody = append([]byte(nil), responseBody...)
	return nil
}

type fakeInsightsAccess struct {
	mu      sync.Mutex
	limited map[string]string
}

func newFakeInsightsAccess() *fakeInsightsAccess {
	return &fakeInsightsAccess{limited: map[string]string{}}
}

func (s *fakeInsightsAccess) MarkLimited(_ context.Context, accountID, reason string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limited[accountID] = reason
	return nil
}

func (s *fakeInsightsAccess) Limited(_ context.Context, accountID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reason, ok := s.limited[accountID]
	return reason, ok, nil
}

// fakeGateway scripts per-call outcomes: each Publish consumes the next
// entry in errs (nil means success).
type fakeGateway struct {
	mu       sync.Mutex
	platform string
	caps     ports.Capabilities
	errs     []error
	calls    int
	insights domain.Insights
	insErr   error
	insCalls int
}

func newFakeGateway(platform string) *fakeGateway {
	return &fakeGateway{
		platform: platform,
		caps:     ports.Capabilities{MaxTextLength: 5000, MaxMediaItems: 10, SupportsVideo: true},
	}
}

func (g *fakeGateway) Platform() string                { return g.platform }
func (g *fakeGateway) Capabilities() ports.Capabilities { return g.caps }

func (g *fakeGateway) Publish(_ context.Context, _ domain.Account, _ ports.PublishContent) (ports.PublishResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if len(g.errs) > 0 {
		err := g.errs[0]
		g.errs = g.errs[1:]
		if err != nil {
			return ports.PublishResult{}, err
		}
	}
	return ports.PublishResult{PlatformPostID: "pp-1", PlatformURL: "https://example.com/pp-1"}, nil
}

func (g *fakeGateway) FetchInsights(context.Context, domain.Account, string) (domain.Insights, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.insCalls++
	if g.insErr != nil {
		return domain.Insights{}, g.insErr
	}
	return g.insights, nil
}

type fakeResolver struct {
	gateways map[string]ports.PlatformGateway
}

func (r *fakeResolver) Resolve(platform, _ string) (ports.PlatformGateway, error) {
	gw, ok := r.gateways[platform]
	if !ok {
		return nil, domain.ErrInvalidInput
	}
	return gw, nil
}

type testEnv struct {
	svc       *Service
	posts     *fakePostRepo
	targets   *fakeTargetRepo
	accounts  *fakeAccountRepo
	analytics *fakeAnalyticsRepo
	outbox    *fakeOutbox
	gateway   *fakeGateway
	idem      *fakeIdempotencyStore
	insights  *fakeInsightsAccess
	now       time.Time
}

func newTestEnv() *testEnv {
	env := &testEnv{
		posts:     newFakePostRepo(),
		targets:   newFakeTargetRepo(),
		accounts:  newFakeAccountRepo(),
		analytics: newFakeAnalyticsRepo(),
		outbox:    &fakeOutbox{},
		gateway:   newFakeGateway(domain.PlatformFacebook),
		idem:      newFakeIdempotencyStore(),
		insights:  newFakeInsightsAccess(),
		now:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	env.svc = NewService(Dependencies{
		Config: Config{
			ServiceName:       "test",
			RetryBaseDelay:    time.Minute,
			DefaultMaxRetries: 3,
		},
		Logger:    slog.New(slog.NewTextHandler(discardWriter{}, nil)),
		Posts:     env.posts,
		Targets:   env.targets,
		Accounts:  env.accounts,
		Analytics: env.analytics,
		Outbox:    env.outbox,
		Gateways: &fakeResolver{gateways: map[string]ports.PlatformGateway{
			domain.PlatformFacebook:  env.gateway,
			domain.PlatformInstagram: env.gateway,
			domain.PlatformLinkedIn:  env.gateway,
		}},
		Validator:      NewMediaValidator(),
		Idempotency:    env.idem,
		InsightsAccess: env.insights,
	})
	env.svc.nowFn = func() time.Time { return env.now }
	return env
}

func (env *testEnv) connectedAccount(id, platform string) domain.Account {
	account := domain.Account{
		AccountID:      id,
		Platform:       platform,
		ConnectionType: domain.ConnectionTypeStandard,
		ExternalID:     "ext-" + id,
		Name:           "Account " + id,
		Status:         domain.AccountStatusConnected,
		PostingEnabled: true,
		CreatedAt:      env.now,
		UpdatedAt:      env.now,
	}
	env.accounts.put(account)
	return account
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
