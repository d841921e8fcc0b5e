package inbox

import (
	"clubctl/internal/api"
	"clubctl/internal/app"
	"clubctl/internal/logger"
	"clubctl/internal/model"
	"clubctl/internal/upload"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const DefaultRetryDelay = 10 * time.Second

type Submitter interface {
	Submit(ctx context.Context, path string) (api.Result[api.UploadData], error)
}

// TrackFunc follows a job until it is terminal and returns the last view.
type TrackFunc func(ctx context.Context, jobID string) model.JobView

// Dispatcher submits inbox archives one at a time. While the server still
// has a job in flight it waits and retries, and after each accepted upload
// it follows the job to completion before taking the next file.
type Dispatcher struct {
	submitter Submitter
	recent    upload.RecentJobs
	track     TrackFunc
	notifier  *app.Notifier
	clock     clockwork.Clock
	retry     time.Duration
}

func NewDispatcher(submitter Submitter, recent upload.RecentJobs, track TrackFunc, notifier *app.Notifier) *Dispatcher {
	return &Dispatcher{
		submitter: submitter,
		recent:    recent,
		track:     track,
		notifier:  notifier,
		clock:     clockwork.NewRealClock(),
		retry:     DefaultRetryDelay,
	}
}

func (d *Dispatcher) WithClock(c clockwork.Clock) *Dispatcher {
	d.clock = c
	return d
}

func (d *Dispatcher) WithRetryDelay(delay time.Duration) *Dispatcher {
	d.retry = delay
	return d
}

// Run consumes events until inCh closes or ctx ends.
func (d *Dispatcher) Run(ctx context.Context, inCh <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-inCh:
			if !ok {
				return nil
			}
			if err := d.handle(ctx, event.Path); err != nil {
				return err
			}
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, path string) error {
	name := filepath.Base(path)
	waiting := false

	for {
		res, err := d.submitter.Submit(ctx, path)
		switch {
		case errors.Is(err, upload.ErrJobInFlight), busy(res, err):
			if !waiting {
				d.notifier.Notify(app.LevelInfo, fmt.Sprintf("%s is queued until the current bulk upload finishes", name))
				waiting = true
			}
			if d.recent != nil {
				d.recent.Invalidate()
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-d.clock.After(d.retry):
			}
			continue

		case errors.Is(err, upload.ErrInvalidFile):
			d.notifier.Notify(app.LevelWarn, fmt.Sprintf("skipping %s: %v", name, err))
			return nil

		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Log.Error("inbox upload failed",
				zap.String("file", path),
				zap.Error(err))
			d.notifier.Notify(app.LevelError, fmt.Sprintf("%s could not be uploaded. %s", name, api.MsgUnexpected))
			return nil
		}

		if app.ReportFailure(d.notifier, res) {
			return nil
		}

		jobID := res.Data.JobID
		d.notifier.Notify(app.LevelInfo, fmt.Sprintf("%s accepted as job %s", name, jobID))

		view := d.track(ctx, jobID)
		d.report(name, view)

		if d.recent != nil {
			d.recent.Invalidate()
		}
		return nil
	}
}

// busy reports a server-side rejection because another job is still running.
// The recent list lags behind the server, so this is retried like a local
// in-flight check.
func busy(res api.Result[api.UploadData], err error) bool {
	return err == nil && !res.Success && res.Status == http.StatusConflict
}

func (d *Dispatcher) report(name string, v model.JobView) {
	switch {
	case v.IsCompleted:
		level := app.LevelSuccess
		if v.Job.Failed > 0 {
			level = app.LevelWarn
		}
		d.notifier.Notify(level, fmt.Sprintf("%s finished: %d/%d files processed, %d failed",
			name, v.Job.Processed, v.Job.TotalFiles, v.Job.Failed))
	case v.IsFailed:
		d.notifier.Notify(app.LevelError, fmt.Sprintf("%s failed: %d/%d files processed",
			name, v.Job.Processed, v.Job.TotalFiles))
	default:
		d.notifier.Notify(app.LevelWarn, fmt.Sprintf("stopped following %s before it finished", name))
	}
}
