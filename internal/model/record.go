package model

import (
	"time"

	"gorm.io/datatypes"
)

// JobRecord is the server-side row behind a BulkJob.
type JobRecord struct {
	ID          string                      `gorm:"primaryKey"`
	FileName    string                      `gorm:"not null"`
	ArchivePath string                      `gorm:"not null"`
	Status      JobStatus                   `gorm:"not null;default:'PENDING';index"`
	TotalFiles  int                         `gorm:"not null;default:0"`
	Processed   int                         `gorm:"not null;default:0"`
	Failed      int                         `gorm:"not null;default:0"`
	Errors      datatypes.JSONSlice[string] `gorm:"type:json"`
	CreatedAt   time.Time                   `gorm:"index"`
	UpdatedAt   time.Time
}

func (r JobRecord) BulkJob() BulkJob {
	errs := []string(r.Errors)
	if errs == nil {
		errs = []string{}
	}

	return BulkJob{
		JobID:      r.ID,
		Status:     r.Status,
		TotalFiles: r.TotalFiles,
		Processed:  r.Processed,
		Failed:     r.Failed,
		Errors:     errs,
	}
}

func (r JobRecord) RecentJob() RecentJob {
	return RecentJob{
		JobID:      r.ID,
		Status:     r.Status,
		Processed:  r.Processed,
		TotalFiles: r.TotalFiles,
		CreatedAt:  r.CreatedAt,
	}
}
