package worker

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curatehub.io/curatehub/internal/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", "console"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newTestPools(t *testing.T) *Pools {
	t.Helper()
	pools, err := NewPools(context.Background(), PoolConfig{GeneralPoolSize: 4, EnrichmentPoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(pools.Shutdown)
	return pools
}

func TestSubmitRunsTask(t *testing.T) {
	pools := newTestPools(t)

	var wg sync.WaitGroup
	var ran atomic.Bool
	wg.Add(1)
	err := pools.General.Submit(context.Background(), func(ctx context.Context) {
		defer wg.Done()
		ran.Store(true)
	})
	require.NoError(t, err)
	wg.Wait()
	assert.True(t, ran.Load())
}

func TestSubmitCancelledContext(t *testing.T) {
	pools := newTestPools(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pools.General.Submit(ctx, func(ctx context.Context) {
		t.Error("task must not run with a cancelled context")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubmitSkipsTaskCancelledWhileQueued(t *testing.T) {
	pools := newTestPools(t)

	ctx, cancel := context.WithCancel(context.Background())
	block := make(chan struct{})
	var wg sync.WaitGroup

	// Saturate the enrichment pool so the next submission sits in the queue.
	for i := 0; i < 2; i++ {
		wg.Add(1)
		require.NoError(t, pools.Enrichment.Submit(context.Background(), func(ctx context.Context) {
			defer wg.Done()
			<-block
		}))
	}

	// The pool is blocking, so submit from a goroutine and cancel while the
	// task waits for a free worker.
	var ran atomic.Bool
	submitted := make(chan error, 1)
	go func() {
		submitted <- pools.Enrichment.Submit(ctx, func(ctx context.Context) {
			ran.Store(true)
		})
	}()
	cancel()
	close(block)
	wg.Wait()

	// Either the submission was refused outright or the queued wrapper
	// observed the cancellation; the task body runs in neither case.
	err := <-submitted
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}

	// Give the queued wrapper a moment to drain.
	time.Sleep(50 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestSubmitDetachedSurvivesCallerCancel(t *testing.T) {
	pools := newTestPools(t)

	done := make(chan struct{})
	require.NoError(t, pools.SubmitDetached("enrichment", func(ctx context.Context) {
		// The task context is the service lifecycle, not any request.
		select {
		case <-ctx.Done():
			t.Error("service context cancelled before shutdown")
		default:
		}
		close(done)
	}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("detached task never ran")
	}
}

func TestSubmitDetachedSkippedAfterShutdown(t *testing.T) {
	pools, err := NewPools(context.Background(), PoolConfig{GeneralPoolSize: 2, EnrichmentPoolSize: 2})
	require.NoError(t, err)

	// Cancel the service context without releasing the pools yet.
	pools.serviceCancel()

	var ran atomic.Bool
	submitErr := pools.SubmitDetached("general", func(ctx context.Context) {
		ran.Store(true)
	})
	// The wrapper itself still runs; the task body must not.
	require.NoError(t, submitErr)
	time.Sleep(50 * time.Millisecond)
	assert.False(t, ran.Load())

	pools.Shutdown()
}

func TestMetricsShape(t *testing.T) {
	pools := newTestPools(t)
	m := pools.Metrics()
	require.Contains(t, m, "general")
	require.Contains(t, m, "enrichment")
	general := m["general"].(map[string]int)
	assert.Equal(t, 4, general["cap"])
}
