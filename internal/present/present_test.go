package present

import (
	"bytes"
	"clubctl/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "[###.......]  30%", ProgressBar(30, 10))
	assert.Equal(t, "[..........]   0%", ProgressBar(-5, 10))
	assert.Equal(t, "[##########] 100%", ProgressBar(140, 10))
}

func TestJobRendersErrorsWhenFinished(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, false)

	r.Job(model.NewJobView(&model.BulkJob{
		JobID:      "job-1",
		Status:     model.JobStatusCompleted,
		TotalFiles: 5,
		Processed:  5,
		Failed:     1,
		Errors:     []string{"file3 bad"},
	}))

	assert.Contains(t, out.String(), "Completed")
	assert.Contains(t, out.String(), "100%")
	assert.Contains(t, out.String(), "5/5 files, 1 failed")
	assert.Contains(t, out.String(), "✗ file3 bad")
	assert.NotContains(t, out.String(), "\033[")
}

func TestStatusBadgeColor(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, true)
	assert.Contains(t, r.StatusBadge(model.JobStatusFailed), "\033[31m")
	assert.Contains(t, r.StatusBadge(model.JobStatus("ARCHIVED")), "\033[90m")
}

func TestRecentFlagsActiveJob(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, false)

	r.Recent([]model.RecentJob{{
		JobID:      "job-1",
		Status:     model.JobStatusProcessing,
		Processed:  1,
		TotalFiles: 4,
		CreatedAt:  time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	}})

	assert.Contains(t, out.String(), "1/4 (25%)")
	assert.Contains(t, out.String(), "in progress")
}

func TestRecentEmpty(t *testing.T) {
	var out bytes.Buffer
	NewRenderer(&out, false).Recent(nil)
	assert.Equal(t, "no recent bulk uploads\n", out.String())
}
