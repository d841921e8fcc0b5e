package poller

import (
	"clubctl/internal/api"
	"clubctl/internal/logger"
	"clubctl/internal/model"
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"
)

type RecentFetcher interface {
	RecentJobs(ctx context.Context) (api.Result[[]model.RecentJob], error)
}

// RecentPoller keeps the recent-jobs list fresh on a fixed interval,
// independent of any single job's lifecycle.
type RecentPoller struct {
	fetcher  RecentFetcher
	opts     options
	failures failureReporter

	mu      sync.RWMutex
	jobs    []model.RecentJob
	fetches int
	loaded  bool

	startOnce sync.Once
	stopOnce  sync.Once
	readyOnce sync.Once
	refreshCh chan struct{}
	updateCh  chan []model.RecentJob
	readyCh   chan struct{}
	stopCh    chan struct{}
	doneCh    chan struct{}
}

func NewRecentPoller(fetcher RecentFetcher, opts ...Option) *RecentPoller {
	o := buildOptions(DefaultRecentInterval, opts)
	return &RecentPoller{
		fetcher:   fetcher,
		opts:      o,
		failures:  failureReporter{fn: o.onFailure},
		refreshCh: make(chan struct{}, 1),
		updateCh:  make(chan []model.RecentJob, 1),
		readyCh:   make(chan struct{}),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

func (p *RecentPoller) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		go p.run(ctx)
	})
}

func (p *RecentPoller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
}

// Invalidate requests an immediate refetch. Calls made while one is already
// pending collapse into a single fetch.
func (p *RecentPoller) Invalidate() {
	select {
	case p.refreshCh <- struct{}{}:
	default:
	}
}

// Ready is closed after the first fetch attempt finishes, successful or not.
func (p *RecentPoller) Ready() <-chan struct{} {
	return p.readyCh
}

func (p *RecentPoller) Updates() <-chan []model.RecentJob {
	return p.updateCh
}

func (p *RecentPoller) Done() <-chan struct{} {
	return p.doneCh
}

func (p *RecentPoller) Jobs() []model.RecentJob {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.jobs)
}

// AnyActive reports whether the last fetched list holds a pending or
// processing job. New bulk uploads are held back while it is true.
func (p *RecentPoller) AnyActive() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return model.AnyActive(p.jobs)
}

func (p *RecentPoller) Loaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded
}

func (p *RecentPoller) FetchCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fetches
}

func (p *RecentPoller) run(ctx context.Context) {
	defer func() {
		p.readyOnce.Do(func() { close(p.readyCh) })
		close(p.updateCh)
		close(p.doneCh)
	}()

	ticker := p.opts.clock.NewTicker(p.opts.interval)
	defer ticker.Stop()

	p.fetch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-p.refreshCh:
			p.fetch(ctx)
		case <-ticker.Chan():
			p.fetch(ctx)
		}
	}
}

func (p *RecentPoller) fetch(ctx context.Context) {
	defer p.readyOnce.Do(func() { close(p.readyCh) })

	res, err := p.fetcher.RecentJobs(ctx)

	p.mu.Lock()
	p.fetches++
	p.mu.Unlock()

	if err != nil {
		logger.Log.Warn("recent jobs fetch error", zap.Error(err))
		p.failures.report(ctx, api.KindServerFault, api.MsgUnexpected)
		return
	}

	if !res.Success {
		logger.Log.Warn("recent jobs fetch failed",
			zap.Int("status", res.Status),
			zap.Stringer("kind", res.Kind),
			zap.String("error", res.Error))
		if !res.Handled {
			p.failures.report(ctx, res.Kind, res.Error)
		}
		return
	}
	p.failures.reset()

	p.mu.Lock()
	p.jobs = res.Data
	p.loaded = true
	p.mu.Unlock()

	offerLatest(p.updateCh, slices.Clone(res.Data))
}
