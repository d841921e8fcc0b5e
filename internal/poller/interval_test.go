package poller

import (
	"clubctl/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func statusPtr(s model.JobStatus) *model.JobStatus {
	return &s
}

func TestNextInterval(t *testing.T) {
	interval := 3 * time.Second

	d, ok := NextInterval(nil, interval)
	assert.True(t, ok)
	assert.Equal(t, interval, d)

	for _, s := range []model.JobStatus{model.JobStatusPending, model.JobStatusProcessing} {
		d, ok := NextInterval(statusPtr(s), interval)
		assert.True(t, ok, s)
		assert.Equal(t, interval, d, s)
	}

	for _, s := range []model.JobStatus{model.JobStatusCompleted, model.JobStatusFailed} {
		d, ok := NextInterval(statusPtr(s), interval)
		assert.False(t, ok, s)
		assert.Zero(t, d, s)
	}
}

func TestTransition(t *testing.T) {
	assert.Equal(t, StateIdle, Transition("", nil))
	assert.Equal(t, StateIdle, Transition("", statusPtr(model.JobStatusProcessing)))
	assert.Equal(t, StatePolling, Transition("job-1", nil))
	assert.Equal(t, StatePolling, Transition("job-1", statusPtr(model.JobStatusPending)))
	assert.Equal(t, StateStopped, Transition("job-1", statusPtr(model.JobStatusFailed)))
	assert.Equal(t, "STOPPED", StateStopped.String())
}
