package poller

import (
	"clubctl/internal/model"
	"time"
)

const (
	DefaultJobInterval    = 3 * time.Second
	DefaultRecentInterval = 30 * time.Second
)

type State int

const (
	StateIdle State = iota
	StatePolling
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StatePolling:
		return "POLLING"
	case StateStopped:
		return "STOPPED"
	}

	return "UNKNOWN"
}

// NextInterval decides whether another status fetch is scheduled after an
// observation. A nil status means nothing has been observed yet.
func NextInterval(status *model.JobStatus, interval time.Duration) (time.Duration, bool) {
	if status == nil {
		return interval, true
	}

	switch *status {
	case model.JobStatusPending, model.JobStatusProcessing:
		return interval, true
	case model.JobStatusCompleted, model.JobStatusFailed:
		return 0, false
	}

	// Unknown statuses keep polling; the server may add intermediate states.
	return interval, true
}

// Transition maps a job id and its last observed status to the poller state.
func Transition(jobID string, status *model.JobStatus) State {
	if jobID == "" {
		return StateIdle
	}
	if _, ok := NextInterval(status, DefaultJobInterval); !ok {
		return StateStopped
	}

	return StatePolling
}
