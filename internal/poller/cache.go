package poller

import (
	"clubctl/internal/model"
	"sync"
)

// StatusCache holds the last known snapshot per job id. Writes replace the
// whole snapshot and the latest write wins, except that a terminal snapshot
// is never replaced by a non-terminal one.
type StatusCache struct {
	mu   sync.RWMutex
	jobs map[string]model.BulkJob
	subs map[string]map[chan model.BulkJob]struct{}
}

func NewStatusCache() *StatusCache {
	return &StatusCache{
		jobs: make(map[string]model.BulkJob),
		subs: make(map[string]map[chan model.BulkJob]struct{}),
	}
}

func (c *StatusCache) Get(jobID string) (model.BulkJob, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	job, ok := c.jobs[jobID]
	return job, ok
}

func (c *StatusCache) Put(job model.BulkJob) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.jobs[job.JobID]; ok && prev.Status.IsTerminal() && !job.Status.IsTerminal() {
		return
	}

	c.jobs[job.JobID] = job
	for ch := range c.subs[job.JobID] {
		offerLatest(ch, job)
	}
}

// Subscribe returns a channel that always holds the newest snapshot for
// jobID. The returned func unsubscribes and closes the channel.
func (c *StatusCache) Subscribe(jobID string) (<-chan model.BulkJob, func()) {
	ch := make(chan model.BulkJob, 1)

	c.mu.Lock()
	if c.subs[jobID] == nil {
		c.subs[jobID] = make(map[chan model.BulkJob]struct{})
	}
	c.subs[jobID][ch] = struct{}{}
	if job, ok := c.jobs[jobID]; ok {
		ch <- job
	}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs[jobID], ch)
			if len(c.subs[jobID]) == 0 {
				delete(c.subs, jobID)
			}
			c.mu.Unlock()
			close(ch)
		})
	}
}

func (c *StatusCache) Forget(jobID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.jobs, jobID)
}

// offerLatest replaces whatever is buffered in ch with v.
func offerLatest[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}

	select {
	case <-ch:
	default:
	}

	select {
	case ch <- v:
	default:
	}
}
