package poller

import (
	"clubctl/internal/api"
	"clubctl/internal/model"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInterval = 3 * time.Second

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for poller to finish")
	}
}

func TestJobLifecycleScenario(t *testing.T) {
	completed := observed(model.JobStatusCompleted, 5, 5)
	completed.Data.Failed = 1
	completed.Data.Errors = []string{"file3 bad"}

	fetcher := newScriptedFetcher(
		observed(model.JobStatusPending, 0, 5),
		observed(model.JobStatusProcessing, 2, 5),
		observed(model.JobStatusProcessing, 5, 5),
		completed,
	)

	fc := clockwork.NewFakeClock()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p := NewJobPoller("job-1", fetcher, WithClock(fc), WithInterval(testInterval))
	p.Start(ctx)

	for rep := 0; rep < 3; rep++ {
		require.NoError(t, fc.BlockUntilContext(ctx, 1))
		fc.Advance(testInterval)
	}
	waitClosed(t, p.Done())

	v := p.View()
	assert.True(t, v.IsCompleted)
	assert.False(t, v.IsActive)
	assert.Equal(t, 100, v.ProgressPercent)
	assert.Len(t, v.Errors(), 1)
	assert.Equal(t, "job-1", v.Job.JobID)
	assert.Equal(t, StateStopped, p.State())
	assert.Equal(t, 4, fetcher.Calls())

	fc.Advance(10 * testInterval)
	assert.Equal(t, 4, fetcher.Calls())
}

func TestNoFetchAfterTerminal(t *testing.T) {
	for _, terminal := range []model.JobStatus{model.JobStatusCompleted, model.JobStatusFailed} {
		fetcher := newScriptedFetcher(observed(terminal, 1, 1))
		fc := clockwork.NewFakeClock()

		p := NewJobPoller("job-2", fetcher, WithClock(fc), WithInterval(testInterval))
		p.Start(context.Background())
		waitClosed(t, p.Done())

		for rep := 0; rep < 5; rep++ {
			fc.Advance(testInterval)
		}
		assert.Equal(t, 1, fetcher.Calls(), terminal)
		assert.Equal(t, StateStopped, p.State(), terminal)
	}
}

func TestEmptyJobIDIssuesNoFetch(t *testing.T) {
	fetcher := newScriptedFetcher(observed(model.JobStatusPending, 0, 1))
	fc := clockwork.NewFakeClock()

	p := NewJobPoller("", fetcher, WithClock(fc), WithInterval(testInterval))
	p.Start(context.Background())
	waitClosed(t, p.Done())

	fc.Advance(10 * testInterval)
	assert.Zero(t, fetcher.Calls())
	assert.Equal(t, StateIdle, p.State())
	assert.False(t, p.View().IsActive)

	_, open := <-p.Updates()
	assert.False(t, open)
}

func TestFetchFailureKeepsPolling(t *testing.T) {
	fetcher := newScriptedFetcher(
		transportFailure(),
		observed(model.JobStatusProcessing, 1, 2),
		transportFailure(),
		observed(model.JobStatusCompleted, 2, 2),
	)
	fc := clockwork.NewFakeClock()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p := NewJobPoller("job-3", fetcher, WithClock(fc), WithInterval(testInterval))
	p.Start(ctx)

	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	assert.False(t, p.View().IsActive)

	for rep := 0; rep < 3; rep++ {
		require.NoError(t, fc.BlockUntilContext(ctx, 1))
		fc.Advance(testInterval)
	}
	waitClosed(t, p.Done())

	assert.Equal(t, 4, fetcher.Calls())
	assert.True(t, p.View().IsCompleted)
}

func TestStopCancelsScheduling(t *testing.T) {
	fetcher := newScriptedFetcher(observed(model.JobStatusProcessing, 1, 3))
	fc := clockwork.NewFakeClock()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p := NewJobPoller("job-4", fetcher, WithClock(fc), WithInterval(testInterval))
	p.Start(ctx)
	require.NoError(t, fc.BlockUntilContext(ctx, 1))

	p.Stop()
	p.Stop()
	waitClosed(t, p.Done())

	fc.Advance(5 * testInterval)
	assert.Equal(t, 1, fetcher.Calls())
	assert.Equal(t, StateStopped, p.State())
	assert.True(t, p.View().IsProcessing)
}

func TestContextCancelStopsPolling(t *testing.T) {
	fetcher := newScriptedFetcher(observed(model.JobStatusPending, 0, 3))
	fc := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())

	p := NewJobPoller("job-5", fetcher, WithClock(fc), WithInterval(testInterval))
	p.Start(ctx)
	require.NoError(t, fc.BlockUntilContext(context.Background(), 1))

	cancel()
	waitClosed(t, p.Done())
	assert.Equal(t, 1, fetcher.Calls())
}

func TestSharedCacheTerminalHaltsOtherObserver(t *testing.T) {
	cache := NewStatusCache()
	cache.Put(model.BulkJob{JobID: "job-6", Status: model.JobStatusCompleted, TotalFiles: 2, Processed: 2})

	// A stale in-flight answer must not restart polling once another
	// observer has seen the terminal status.
	fetcher := newScriptedFetcher(observed(model.JobStatusProcessing, 1, 2))
	fc := clockwork.NewFakeClock()

	p := NewJobPoller("job-6", fetcher, WithClock(fc), WithInterval(testInterval), WithCache(cache))
	p.Start(context.Background())
	waitClosed(t, p.Done())

	assert.Equal(t, 1, fetcher.Calls())
	assert.Equal(t, StateStopped, p.State())
	cached, ok := cache.Get("job-6")
	require.True(t, ok)
	assert.Equal(t, model.JobStatusCompleted, cached.Status)
}

func TestUpdatesDeliverLatestView(t *testing.T) {
	fetcher := newScriptedFetcher(
		observed(model.JobStatusProcessing, 3, 10),
		observed(model.JobStatusCompleted, 10, 10),
	)
	fc := clockwork.NewFakeClock()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p := NewJobPoller("job-7", fetcher, WithClock(fc), WithInterval(testInterval))
	p.Start(ctx)

	first := <-p.Updates()
	assert.Equal(t, 30, first.ProgressPercent)
	assert.True(t, first.IsActive)

	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(testInterval)

	var last model.JobView
	for v := range p.Updates() {
		last = v
	}
	assert.True(t, last.IsCompleted)
	assert.Equal(t, 100, last.ProgressPercent)
}

func TestFetchFailuresReportedOncePerMessage(t *testing.T) {
	fetcher := newScriptedFetcher(
		transportFailure(),
		transportFailure(),
		observed(model.JobStatusProcessing, 1, 2),
		transportFailure(),
		api.Result[model.BulkJob]{Kind: api.KindAuth, Error: "expired", Handled: true},
		observed(model.JobStatusCompleted, 2, 2),
	)
	fc := clockwork.NewFakeClock()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	var reported []api.ErrorKind
	p := NewJobPoller("job-8", fetcher, WithClock(fc), WithInterval(testInterval),
		WithFailureHandler(func(kind api.ErrorKind, msg string) {
			mu.Lock()
			defer mu.Unlock()
			reported = append(reported, kind)
		}))
	p.Start(ctx)

	for rep := 0; rep < 5; rep++ {
		require.NoError(t, fc.BlockUntilContext(ctx, 1))
		fc.Advance(testInterval)
	}
	waitClosed(t, p.Done())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []api.ErrorKind{api.KindTransport, api.KindTransport}, reported)
	assert.True(t, p.View().IsCompleted)
}
