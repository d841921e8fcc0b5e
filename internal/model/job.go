package model

import "time"

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

func (s JobStatus) IsActive() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing:
		return true
	case JobStatusCompleted, JobStatusFailed:
		return false
	}

	return false
}

func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed:
		return true
	case JobStatusPending, JobStatusProcessing:
		return false
	}

	return false
}

func (s JobStatus) Label() string {
	switch s {
	case JobStatusPending:
		return "Pending"
	case JobStatusProcessing:
		return "Processing"
	case JobStatusCompleted:
		return "Completed"
	case JobStatusFailed:
		return "Failed"
	}

	return "Unknown"
}

type Color int

const (
	ColorGray Color = iota
	ColorYellow
	ColorBlue
	ColorGreen
	ColorRed
)

func (s JobStatus) Color() Color {
	switch s {
	case JobStatusPending:
		return ColorYellow
	case JobStatusProcessing:
		return ColorBlue
	case JobStatusCompleted:
		return ColorGreen
	case JobStatusFailed:
		return ColorRed
	}

	return ColorGray
}

// BulkJob is the server's status record for one bulk upload.
type BulkJob struct {
	JobID      string    `json:"jobId,omitempty"`
	Status     JobStatus `json:"status"`
	TotalFiles int       `json:"totalFiles"`
	Processed  int       `json:"processed"`
	Failed     int       `json:"failed"`
	Errors     []string  `json:"errors"`
}

type RecentJob struct {
	JobID      string    `json:"jobId"`
	Status     JobStatus `json:"status"`
	Processed  int       `json:"processed"`
	TotalFiles int       `json:"totalFiles"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AnyActive reports whether any listed job is still pending or processing.
func AnyActive(jobs []RecentJob) bool {
	for _, j := range jobs {
		if j.Status.IsActive() {
			return true
		}
	}

	return false
}
