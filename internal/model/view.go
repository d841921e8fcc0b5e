package model

import "math"

// JobView holds the fields derived from the latest observed snapshot.
// The zero value describes "no job observed yet".
type JobView struct {
	Job             *BulkJob
	ProgressPercent int
	IsPending       bool
	IsProcessing    bool
	IsCompleted     bool
	IsFailed        bool
	IsActive        bool
}

func NewJobView(job *BulkJob) JobView {
	if job == nil {
		return JobView{}
	}

	v := JobView{
		Job:             job,
		ProgressPercent: ProgressPercent(job.Processed, job.TotalFiles),
		IsPending:       job.Status == JobStatusPending,
		IsProcessing:    job.Status == JobStatusProcessing,
		IsCompleted:     job.Status == JobStatusCompleted,
		IsFailed:        job.Status == JobStatusFailed,
	}
	v.IsActive = v.IsPending || v.IsProcessing

	return v
}

func (v JobView) Errors() []string {
	if v.Job == nil {
		return nil
	}

	return v.Job.Errors
}

func ProgressPercent(processed, total int) int {
	if total <= 0 {
		return 0
	}

	return int(math.Round(float64(processed) / float64(total) * 100))
}
