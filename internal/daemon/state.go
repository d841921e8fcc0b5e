package daemon

import (
	"context"
	"time"
)

type JobState struct {
	JobID     string
	FileName  string
	StartedAt time.Time
	cancel    context.CancelFunc
	doneCh    chan struct{}
}

func NewJobState(jobID, fileName string, cancel context.CancelFunc) *JobState {
	return &JobState{
		JobID:     jobID,
		FileName:  fileName,
		StartedAt: time.Now(),
		cancel:    cancel,
		doneCh:    make(chan struct{}),
	}
}

func (s *JobState) Done() <-chan struct{} {
	return s.doneCh
}
