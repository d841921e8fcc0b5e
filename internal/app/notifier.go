package app

import (
	"clubctl/internal/api"
	"clubctl/internal/logger"
	"clubctl/internal/upload"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Notifier is the CLI's transient notification surface: one line per
// message on its writer, mirrored into the activity log.
type Notifier struct {
	mu  sync.Mutex
	out io.Writer
	log *ActivityLog
}

func NewNotifier(out io.Writer, log *ActivityLog) *Notifier {
	return &Notifier{out: out, log: log}
}

func (n *Notifier) Notify(level Level, msg string) {
	n.log.Append(level, msg)

	n.mu.Lock()
	_, _ = fmt.Fprintf(n.out, "%s %s\n", prefix(level), msg)
	n.mu.Unlock()

	logger.Log.Debug("notification",
		zap.String("level", string(level)),
		zap.String("message", msg))
}

func prefix(level Level) string {
	switch level {
	case LevelInfo:
		return "•"
	case LevelSuccess:
		return "✓"
	case LevelWarn:
		return "!"
	case LevelError:
		return "✗"
	}

	return "-"
}

// ReportFailure surfaces a failed result once. Results already handled by the
// session-expiry hook are not shown again. It reports whether res failed.
func ReportFailure[T any](n *Notifier, res api.Result[T]) bool {
	if res.Success {
		return false
	}
	if !res.Handled {
		n.Notify(LevelError, res.Error)
	}

	return true
}

// ReportError surfaces an error returned alongside a result. Local upload
// rejections keep their message; anything else is shown generically.
func ReportError(n *Notifier, err error) {
	switch {
	case errors.Is(err, upload.ErrInvalidFile), errors.Is(err, upload.ErrJobInFlight):
		n.Notify(LevelError, err.Error())
	default:
		logger.Log.Warn("unexpected client error", zap.Error(err))
		n.Notify(LevelError, api.MsgUnexpected)
	}
}
