package app

import (
	"clubctl/internal/api"
	"clubctl/internal/auth"
	"clubctl/internal/config"
	"clubctl/internal/logger"
	"clubctl/internal/model"
	"clubctl/internal/poller"
	"clubctl/internal/upload"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

var ErrSessionExpired = errors.New("session expired")

type stopper interface {
	Stop()
}

// State is everything a client command shares: configuration, the API
// client, the last-known job cache, the activity log and the notifier.
// It is created once per command run by Open and torn down by Close.
type State struct {
	Config   *config.Config
	Client   *api.Client
	Cache    *poller.StatusCache
	Activity *ActivityLog
	Notifier *Notifier

	ctx       context.Context
	cancel    context.CancelCauseFunc
	fileToken bool

	mu         sync.Mutex
	pollers    []stopper
	expireOnce sync.Once
	closeOnce  sync.Once
}

func Open(parent context.Context, cfg *config.Config, out io.Writer) (*State, error) {
	ctx, cancel := context.WithCancelCause(parent)
	activity := NewActivityLog()

	s := &State{
		Config:   cfg,
		Cache:    poller.NewStatusCache(),
		Activity: activity,
		Notifier: NewNotifier(out, activity),
		ctx:      ctx,
		cancel:   cancel,
	}

	opts := []api.Option{
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithUnauthorizedHandler(s.sessionExpired),
	}

	ts, err := auth.NewTokenSource(cfg.Token, cfg.TokenPath)
	switch {
	case err == nil:
		opts = append(opts, api.WithTokenSource(ts))
		s.fileToken = cfg.Token == ""
	case errors.Is(err, auth.ErrNoToken):
		logger.Log.Warn("no access token configured, requests are sent unauthenticated")
	default:
		cancel(err)
		return nil, err
	}

	s.Client = api.New(cfg.BaseURL, opts...)
	return s, nil
}

// Context is cancelled when the session expires or the state is closed.
func (s *State) Context() context.Context {
	return s.ctx
}

// Err returns ErrSessionExpired once the server has rejected the token.
func (s *State) Err() error {
	if cause := context.Cause(s.ctx); errors.Is(cause, ErrSessionExpired) {
		return cause
	}

	return nil
}

func (s *State) sessionExpired() {
	s.expireOnce.Do(s.endSession)
}

func (s *State) endSession() {
	if s.ctx.Err() != nil {
		return
	}

	s.Notifier.Notify(LevelError, "Your session has expired. Run 'clubctl token set <token>' to sign in again.")

	if s.fileToken {
		if err := auth.ClearToken(s.Config.TokenPath); err != nil {
			logger.Log.Warn("failed to clear token", zap.Error(err))
		}
	}

	s.cancel(ErrSessionExpired)
}

func (s *State) NewJobPoller(jobID string) *poller.JobPoller {
	p := poller.NewJobPoller(jobID, s.Client,
		poller.WithInterval(s.Config.PollInterval),
		poller.WithCache(s.Cache),
		poller.WithFailureHandler(func(_ api.ErrorKind, msg string) {
			s.Notifier.Notify(LevelWarn, fmt.Sprintf("job %s: %s", jobID, msg))
		}))
	s.track(p)
	return p
}

// Follow polls jobID until it reaches a terminal state, the context ends or
// the session expires, calling onUpdate for every observation. It returns
// the last view seen.
func (s *State) Follow(ctx context.Context, jobID string, onUpdate func(model.JobView)) model.JobView {
	p := s.NewJobPoller(jobID)
	defer p.Stop()

	p.Start(ctx)
	for v := range p.Updates() {
		if onUpdate != nil {
			onUpdate(v)
		}
	}

	return p.View()
}

func (s *State) NewRecentPoller() *poller.RecentPoller {
	p := poller.NewRecentPoller(s.Client,
		poller.WithInterval(s.Config.RecentInterval),
		poller.WithFailureHandler(func(_ api.ErrorKind, msg string) {
			s.Notifier.Notify(LevelWarn, "recent uploads: "+msg)
		}))
	s.track(p)
	return p
}

func (s *State) NewSubmitter(recent upload.RecentJobs) *upload.Submitter {
	return upload.NewSubmitter(s.Client, recent)
}

func (s *State) track(p stopper) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pollers = append(s.pollers, p)
}

func (s *State) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		pollers := s.pollers
		s.pollers = nil
		s.mu.Unlock()

		for _, p := range pollers {
			p.Stop()
		}

		s.cancel(context.Canceled)
	})

	return s.Err()
}
