package poller

import (
	"clubctl/internal/api"
	"clubctl/internal/logger"
	"clubctl/internal/model"
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type JobFetcher interface {
	GetJob(ctx context.Context, jobID string) (api.Result[model.BulkJob], error)
}

type Option func(*options)

type options struct {
	clock     clockwork.Clock
	interval  time.Duration
	cache     *StatusCache
	onFailure FailureFunc
}

func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

// WithCache shares last-known snapshots with other observers of the same job.
func WithCache(c *StatusCache) Option {
	return func(o *options) { o.cache = c }
}

func buildOptions(defaultInterval time.Duration, opts []Option) options {
	o := options{
		clock:    clockwork.NewRealClock(),
		interval: defaultInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.interval <= 0 {
		o.interval = defaultInterval
	}
	if o.cache == nil {
		o.cache = NewStatusCache()
	}

	return o
}

// JobPoller refetches one job's status on a fixed interval until the job
// reaches COMPLETED or FAILED. Fetch failures are retried on the next tick.
type JobPoller struct {
	jobID    string
	fetcher  JobFetcher
	opts     options
	failures failureReporter

	mu      sync.RWMutex
	state   State
	last    *model.BulkJob
	fetches int

	startOnce sync.Once
	stopOnce  sync.Once
	updateCh  chan model.JobView
	stopCh    chan struct{}
	doneCh    chan struct{}
}

func NewJobPoller(jobID string, fetcher JobFetcher, opts ...Option) *JobPoller {
	o := buildOptions(DefaultJobInterval, opts)
	return &JobPoller{
		jobID:    jobID,
		fetcher:  fetcher,
		opts:     o,
		failures: failureReporter{fn: o.onFailure},
		state:    StateIdle,
		updateCh: make(chan model.JobView, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the polling loop. An empty job id leaves the poller idle and
// issues no fetch.
func (p *JobPoller) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		if p.jobID == "" {
			close(p.updateCh)
			close(p.doneCh)
			return
		}

		p.setState(StatePolling)
		go p.run(ctx)
	})
}

// Stop cancels scheduling. A fetch already in flight still completes and its
// snapshot is still applied.
func (p *JobPoller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
}

func (p *JobPoller) Updates() <-chan model.JobView {
	return p.updateCh
}

func (p *JobPoller) Done() <-chan struct{} {
	return p.doneCh
}

func (p *JobPoller) JobID() string {
	return p.jobID
}

func (p *JobPoller) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *JobPoller) FetchCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fetches
}

func (p *JobPoller) View() model.JobView {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.last == nil {
		return model.NewJobView(nil)
	}

	job := *p.last
	return model.NewJobView(&job)
}

func (p *JobPoller) run(ctx context.Context) {
	defer func() {
		close(p.updateCh)
		close(p.doneCh)
	}()

	for {
		p.fetch(ctx)

		wait, ok := NextInterval(p.lastStatus(), p.opts.interval)
		if !ok {
			p.setState(StateStopped)
			logger.Log.Debug("job reached terminal state",
				zap.String("job_id", p.jobID),
				zap.Int("fetches", p.FetchCount()))
			return
		}

		select {
		case <-ctx.Done():
			p.setState(StateStopped)
			return
		case <-p.stopCh:
			p.setState(StateStopped)
			return
		case <-p.opts.clock.After(wait):
		}
	}
}

func (p *JobPoller) fetch(ctx context.Context) {
	res, err := p.fetcher.GetJob(ctx, p.jobID)

	p.mu.Lock()
	p.fetches++
	p.mu.Unlock()

	if err != nil {
		logger.Log.Warn("job status fetch error",
			zap.String("job_id", p.jobID),
			zap.Error(err))
		p.failures.report(ctx, api.KindServerFault, api.MsgUnexpected)
		return
	}

	if !res.Success {
		logger.Log.Warn("job status fetch failed",
			zap.String("job_id", p.jobID),
			zap.Int("status", res.Status),
			zap.Stringer("kind", res.Kind),
			zap.String("error", res.Error))
		if !res.Handled {
			p.failures.report(ctx, res.Kind, res.Error)
		}
		return
	}
	p.failures.reset()

	job := res.Data
	if job.JobID == "" {
		job.JobID = p.jobID
	}

	p.mu.Lock()
	p.last = &job
	p.mu.Unlock()

	p.opts.cache.Put(job)
	offerLatest(p.updateCh, model.NewJobView(&job))
}

// lastStatus prefers a terminal snapshot from the shared cache so another
// observer's terminal result halts this poller too.
func (p *JobPoller) lastStatus() *model.JobStatus {
	if cached, ok := p.opts.cache.Get(p.jobID); ok && cached.Status.IsTerminal() {
		status := cached.Status
		return &status
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.last == nil {
		return nil
	}

	status := p.last.Status
	return &status
}

func (p *JobPoller) setState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
}
