package enrichment

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curatehub.io/curatehub/internal/access"
	"curatehub.io/curatehub/internal/classifier"
	"curatehub.io/curatehub/internal/config"
	"curatehub.io/curatehub/internal/domain"
	"curatehub.io/curatehub/internal/governance/audit"
	apperrors "curatehub.io/curatehub/internal/pkg/errors"
	"curatehub.io/curatehub/internal/pkg/logger"
	"curatehub.io/curatehub/internal/pkg/worker"
	"curatehub.io/curatehub/internal/repository"
	"curatehub.io/curatehub/internal/repository/memory"
	"curatehub.io/curatehub/internal/tags"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", "console"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

var (
	moderator = access.Principal{ID: "u-mod", Username: "mod", Role: domain.RoleModerator}
	member    = access.Principal{ID: "u-member", Username: "member", Role: domain.RoleUser}
)

// stubClassifier is a deterministic Classifier for engine tests. URLs listed
// in failFor always error; gate, when set, blocks calls until closed; hook
// runs before each successful return.
type stubClassifier struct {
	mu      sync.Mutex
	calls   map[string]int
	failFor map[string]bool
	gate    chan struct{}
	hook    func(in classifier.Input)
}

func (s *stubClassifier) Classify(ctx context.Context, in classifier.Input) (*classifier.Result, error) {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[in.URL]++
	fail := s.failFor[in.URL]
	hook := s.hook
	s.mu.Unlock()

	if fail {
		return nil, errors.New("model unavailable")
	}
	if hook != nil {
		hook(in)
	}
	return &classifier.Result{
		Summary:     "summary of " + in.Title,
		Difficulty:  "beginner",
		ContentType: "article",
		Tags:        []string{"go", "testing"},
	}, nil
}

func (s *stubClassifier) callCount(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[url]
}

type engineEnv struct {
	stores *repository.Stores
	engine *Engine
	stub   *stubClassifier
	audit  *audit.Logger
}

func newEngineEnv(t *testing.T, mutate func(*config.EnrichmentConfig)) *engineEnv {
	t.Helper()

	cfg := config.EnrichmentConfig{
		Concurrency:      2,
		MaxRetries:       2,
		RetryBackoff:     time.Millisecond,
		RequestTimeout:   time.Second,
		DefaultBatchSize: 10,
		MaxBatchSize:     100,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	pools, err := worker.NewPools(context.Background(), worker.DefaultPoolConfig())
	require.NoError(t, err)
	t.Cleanup(pools.Shutdown)

	stores := memory.NewStores()
	stub := &stubClassifier{failFor: map[string]bool{}}
	gate := access.NewGate()
	auditLogger := audit.NewLogger(gate, stores.Audit)
	engine := NewEngine(gate, stores, tags.NewReconciler(stores.Tags), auditLogger, pools, stub, cfg)
	return &engineEnv{stores: stores, engine: engine, stub: stub, audit: auditLogger}
}

func (e *engineEnv) seedApproved(t *testing.T, url string, enriched bool, offset time.Duration) *domain.Resource {
	t.Helper()
	now := time.Now().UTC().Add(offset)
	metadata := domain.Metadata{}
	if enriched {
		metadata["ai_summary"] = "already classified"
	}
	r := &domain.Resource{
		ID:              uuid.NewString(),
		Title:           "Resource " + url,
		URL:             url,
		Status:          domain.StatusApproved,
		Metadata:        metadata,
		CreatedAt:       now,
		StatusChangedAt: now,
	}
	require.NoError(t, e.stores.Resources.Create(context.Background(), r))
	return r
}

func (e *engineEnv) waitTerminal(t *testing.T, jobID string) *domain.JobSnapshot {
	t.Helper()
	var snap *domain.JobSnapshot
	require.Eventually(t, func() bool {
		s, err := e.engine.GetJob(context.Background(), jobID, moderator)
		if err != nil {
			return false
		}
		snap = s
		return s.Status.Terminal()
	}, 5*time.Second, 5*time.Millisecond)
	return snap
}

func TestStartJobValidation(t *testing.T) {
	env := newEngineEnv(t, nil)
	ctx := context.Background()

	_, err := env.engine.StartJob(ctx, StartRequest{Filter: "bogus"}, moderator)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)

	_, err = env.engine.StartJob(ctx, StartRequest{Filter: domain.FilterAll, BatchSize: 1000}, moderator)
	appErr, ok = apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)

	_, err = env.engine.StartJob(ctx, StartRequest{Filter: domain.FilterAll}, member)
	appErr, ok = apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, appErr.HTTPStatus)
}

func TestStartJobEmptyCandidateSet(t *testing.T) {
	env := newEngineEnv(t, nil)
	ctx := context.Background()

	_, err := env.engine.StartJob(ctx, StartRequest{Filter: domain.FilterUnenriched}, moderator)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeEmptyCandidateSet, appErr.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.HTTPStatus)

	// The scope lock was released on the failed start.
	env.seedApproved(t, "https://example.com/a", false, 0)
	job, err := env.engine.StartJob(ctx, StartRequest{Filter: domain.FilterUnenriched}, moderator)
	require.NoError(t, err)
	env.waitTerminal(t, job.ID)
}

func TestJobCompletesAndEnriches(t *testing.T) {
	env := newEngineEnv(t, nil)
	ctx := context.Background()

	first := env.seedApproved(t, "https://example.com/a", false, 0)
	second := env.seedApproved(t, "https://example.com/b", false, time.Millisecond)
	third := env.seedApproved(t, "https://example.com/c", false, 2*time.Millisecond)

	job, err := env.engine.StartJob(ctx, StartRequest{Filter: domain.FilterUnenriched}, moderator)
	require.NoError(t, err)
	assert.Equal(t, 3, job.Total)

	snap := env.waitTerminal(t, job.ID)
	assert.Equal(t, domain.JobCompleted, snap.Status)
	assert.Equal(t, 3, snap.Processed)
	assert.Equal(t, 3, snap.Successful)
	assert.Equal(t, 0, snap.Failed)
	assert.Equal(t, 0, snap.Skipped)
	assert.ElementsMatch(t, []string{first.ID, second.ID, third.ID}, snap.ProcessedResourceIDs)

	// Metadata merged and tags attached on every resource.
	for _, id := range []string{first.ID, second.ID, third.ID} {
		r, err := env.stores.Resources.Get(ctx, id)
		require.NoError(t, err)
		assert.Contains(t, r.Metadata, "ai_summary")
		assert.Contains(t, r.Metadata, "ai_difficulty")
		attached, err := env.stores.Tags.ListForResource(ctx, id)
		require.NoError(t, err)
		assert.Len(t, attached, 2)
	}

	// Canonical tags were shared, not duplicated per resource.
	tagCount, err := env.stores.Tags.CountTags(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, tagCount)
}

func TestUnenrichedFilterSkipsEnrichedResources(t *testing.T) {
	env := newEngineEnv(t, nil)
	ctx := context.Background()

	fresh := env.seedApproved(t, "https://example.com/fresh", false, 0)
	env.seedApproved(t, "https://example.com/done", true, time.Millisecond)

	job, err := env.engine.StartJob(ctx, StartRequest{Filter: domain.FilterUnenriched}, moderator)
	require.NoError(t, err)
	assert.Equal(t, 1, job.Total)

	snap := env.waitTerminal(t, job.ID)
	assert.Equal(t, []string{fresh.ID}, snap.ProcessedResourceIDs)
}

func TestJobAlreadyRunningPerScope(t *testing.T) {
	env := newEngineEnv(t, nil)
	ctx := context.Background()
	env.seedApproved(t, "https://example.com/a", false, 0)

	gate := make(chan struct{})
	env.stub.mu.Lock()
	env.stub.gate = gate
	env.stub.mu.Unlock()

	job, err := env.engine.StartJob(ctx, StartRequest{Filter: domain.FilterUnenriched}, moderator)
	require.NoError(t, err)

	// A duplicate start on the same filter is refused while the first runs.
	_, err = env.engine.StartJob(ctx, StartRequest{Filter: domain.FilterUnenriched}, moderator)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeJobAlreadyRunning, appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.HTTPStatus)

	close(gate)
	env.waitTerminal(t, job.ID)

	// Terminal job releases the scope for the next run.
	env.seedApproved(t, "https://example.com/b", false, time.Millisecond)
	next, err := env.engine.StartJob(ctx, StartRequest{Filter: domain.FilterUnenriched}, moderator)
	require.NoError(t, err)
	env.waitTerminal(t, next.ID)
}

func TestItemRetriesThenFails(t *testing.T) {
	env := newEngineEnv(t, func(cfg *config.EnrichmentConfig) {
		cfg.MaxRetries = 2
	})
	ctx := context.Background()

	bad := env.seedApproved(t, "https://example.com/bad", false, 0)
	good := env.seedApproved(t, "https://example.com/good", false, time.Millisecond)
	env.stub.failFor[bad.URL] = true

	job, err := env.engine.StartJob(ctx, StartRequest{Filter: domain.FilterUnenriched}, moderator)
	require.NoError(t, err)
	snap := env.waitTerminal(t, job.ID)

	// One success keeps the job completed even with a failed item.
	assert.Equal(t, domain.JobCompleted, snap.Status)
	assert.Equal(t, 2, snap.Processed)
	assert.Equal(t, 1, snap.Successful)
	assert.Equal(t, 1, snap.Failed)
	assert.Equal(t, snap.Processed, snap.Successful+snap.Failed+snap.Skipped)

	// Initial attempt plus two retries.
	assert.Equal(t, 3, env.stub.callCount(bad.URL))
	assert.Equal(t, 1, env.stub.callCount(good.URL))

	// The failed resource was not half-enriched.
	r, err := env.stores.Resources.Get(ctx, bad.ID)
	require.NoError(t, err)
	assert.NotContains(t, r.Metadata, "ai_summary")
	_ = good
}

func TestJobFailsWhenNothingSucceeds(t *testing.T) {
	env := newEngineEnv(t, func(cfg *config.EnrichmentConfig) {
		cfg.MaxRetries = 0
	})
	ctx := context.Background()

	bad := env.seedApproved(t, "https://example.com/bad", false, 0)
	env.stub.failFor[bad.URL] = true

	job, err := env.engine.StartJob(ctx, StartRequest{Filter: domain.FilterUnenriched}, moderator)
	require.NoError(t, err)
	snap := env.waitTerminal(t, job.ID)

	assert.Equal(t, domain.JobFailed, snap.Status)
	assert.Equal(t, 1, snap.Failed)
	assert.Equal(t, 0, snap.Successful)
}

func TestItemSkippedWhenResourceLeavesApproved(t *testing.T) {
	env := newEngineEnv(t, func(cfg *config.EnrichmentConfig) {
		cfg.Concurrency = 1
	})
	ctx := context.Background()

	target := env.seedApproved(t, "https://example.com/archived-mid-run", false, 0)
	other := env.seedApproved(t, "https://example.com/stays", false, time.Millisecond)

	// Archive the target between its classification and the metadata write.
	env.stub.hook = func(in classifier.Input) {
		if in.URL == target.URL {
			_, _ = env.stores.Resources.Transition(ctx, target.ID, domain.StatusApproved, domain.StatusArchived, nil)
		}
	}

	job, err := env.engine.StartJob(ctx, StartRequest{Filter: domain.FilterUnenriched}, moderator)
	require.NoError(t, err)
	snap := env.waitTerminal(t, job.ID)

	assert.Equal(t, domain.JobCompleted, snap.Status)
	assert.Equal(t, 2, snap.Processed)
	assert.Equal(t, 1, snap.Successful)
	assert.Equal(t, 1, snap.Skipped)

	// The archived resource kept its metadata untouched.
	r, err := env.stores.Resources.Get(ctx, target.ID)
	require.NoError(t, err)
	assert.NotContains(t, r.Metadata, "ai_summary")
	_ = other
}

func TestCancelJobSkipsQueuedItems(t *testing.T) {
	env := newEngineEnv(t, func(cfg *config.EnrichmentConfig) {
		cfg.Concurrency = 1
	})
	ctx := context.Background()

	env.seedApproved(t, "https://example.com/a", false, 0)
	env.seedApproved(t, "https://example.com/b", false, time.Millisecond)
	env.seedApproved(t, "https://example.com/c", false, 2*time.Millisecond)

	gate := make(chan struct{})
	env.stub.mu.Lock()
	env.stub.gate = gate
	env.stub.mu.Unlock()

	job, err := env.engine.StartJob(ctx, StartRequest{Filter: domain.FilterUnenriched}, moderator)
	require.NoError(t, err)

	// Wait until the runner has claimed the first item.
	require.Eventually(t, func() bool {
		j, err := env.stores.Jobs.GetJob(ctx, job.ID)
		return err == nil && j.Status == domain.JobProcessing
	}, 5*time.Second, 5*time.Millisecond)

	cancelled, err := env.engine.CancelJob(ctx, job.ID, moderator)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCancelled, cancelled.Status)

	// The cancellation is audited under its own action.
	entries, err := env.audit.List(ctx, 10, moderator)
	require.NoError(t, err)
	var actions []domain.AuditAction
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	assert.Contains(t, actions, domain.AuditJobCancelled)

	close(gate)

	// The in-flight item finishes as a no-op against the cancelled job; the
	// counter identity holds at every observable point.
	snap, err := env.engine.GetJob(ctx, job.ID, moderator)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCancelled, snap.Status)
	assert.Equal(t, snap.Processed, snap.Successful+snap.Failed+snap.Skipped)
	assert.Equal(t, 2, snap.Skipped)

	// A second cancel is refused.
	_, err = env.engine.CancelJob(ctx, job.ID, moderator)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeJobNotCancellable, appErr.Code)

	// The scope is free for a new job.
	env.seedApproved(t, "https://example.com/d", false, 3*time.Millisecond)
	next, err := env.engine.StartJob(ctx, StartRequest{Filter: domain.FilterUnenriched}, moderator)
	require.NoError(t, err)
	env.waitTerminal(t, next.ID)
}

func TestGetJobUnknownID(t *testing.T) {
	env := newEngineEnv(t, nil)
	_, err := env.engine.GetJob(context.Background(), "missing", moderator)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeJobNotFound, appErr.Code)
	assert.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
}

func TestJobsAreAudited(t *testing.T) {
	env := newEngineEnv(t, nil)
	ctx := context.Background()
	env.seedApproved(t, "https://example.com/a", false, 0)

	job, err := env.engine.StartJob(ctx, StartRequest{Filter: domain.FilterAll}, moderator)
	require.NoError(t, err)
	env.waitTerminal(t, job.ID)

	entries, err := env.audit.List(ctx, 10, moderator)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	var actions []domain.AuditAction
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	assert.Contains(t, actions, domain.AuditJobStarted)
}
