package poller

import (
	"clubctl/internal/api"
	"context"
	"sync"
)

// FailureFunc receives fetch failures that were not already handled by the
// session-expiry hook.
type FailureFunc func(kind api.ErrorKind, msg string)

// WithFailureHandler reports fetch failures once per distinct message until
// the next successful fetch.
func WithFailureHandler(fn FailureFunc) Option {
	return func(o *options) { o.onFailure = fn }
}

type failureReporter struct {
	mu   sync.Mutex
	fn   FailureFunc
	last string
}

func (r *failureReporter) report(ctx context.Context, kind api.ErrorKind, msg string) {
	if r.fn == nil || ctx.Err() != nil {
		return
	}

	r.mu.Lock()
	if msg == r.last {
		r.mu.Unlock()
		return
	}
	r.last = msg
	r.mu.Unlock()

	r.fn(kind, msg)
}

func (r *failureReporter) reset() {
	r.mu.Lock()
	r.last = ""
	r.mu.Unlock()
}
