package repository

import (
	"clubctl/internal/db"
	"clubctl/internal/model"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrNotFound   = errors.New("job not found")
	ErrTerminal   = errors.New("job already finished")
	ErrOverflow   = errors.New("processed count would exceed total files")
	ErrTransition = errors.New("invalid status transition")
)

type JobRepository struct{}

func NewJobRepository() *JobRepository {
	return &JobRepository{}
}

func (r *JobRepository) Create(fileName, archivePath string) (model.JobRecord, error) {
	job := model.JobRecord{
		ID:          uuid.NewString(),
		FileName:    fileName,
		ArchivePath: archivePath,
		Status:      model.JobStatusPending,
		Errors:      datatypes.JSONSlice[string]{},
	}

	return job, db.DB.Create(&job).Error
}

func (r *JobRepository) GetByID(id string) (model.JobRecord, error) {
	var job model.JobRecord
	err := db.DB.First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return job, ErrNotFound
	}

	return job, err
}

func (r *JobRepository) GetRecent(limit int) ([]model.JobRecord, error) {
	var jobs []model.JobRecord
	result := db.DB.
		Order("created_at desc").
		Limit(limit).
		Find(&jobs)

	return jobs, result.Error
}

func (r *JobRepository) GetUnfinished() ([]model.JobRecord, error) {
	var jobs []model.JobRecord
	result := db.DB.
		Where("status IN ?", []model.JobStatus{model.JobStatusPending, model.JobStatusProcessing}).
		Order("created_at asc").
		Find(&jobs)

	return jobs, result.Error
}

func (r *JobRepository) HasActive() (bool, error) {
	var count int64
	err := db.DB.Model(&model.JobRecord{}).
		Where("status IN ?", []model.JobStatus{model.JobStatusPending, model.JobStatusProcessing}).
		Count(&count).Error

	return count > 0, err
}

// MarkProcessing moves a pending job to PROCESSING and fixes its file count.
// A job that is already processing keeps its original total.
func (r *JobRepository) MarkProcessing(id string, total int) error {
	return r.update(id, func(job *model.JobRecord) error {
		switch job.Status {
		case model.JobStatusPending:
			job.Status = model.JobStatusProcessing
			job.TotalFiles = total
			return nil
		case model.JobStatusProcessing:
			return nil
		case model.JobStatusCompleted, model.JobStatusFailed:
			return ErrTerminal
		}

		return fmt.Errorf("%w: %s -> %s", ErrTransition, job.Status, model.JobStatusProcessing)
	})
}

// RecordFile counts one processed archive entry. A non-empty failure adds to
// the failed count and the error list.
func (r *JobRepository) RecordFile(id string, failure string) error {
	return r.update(id, func(job *model.JobRecord) error {
		if job.Status != model.JobStatusProcessing {
			return fmt.Errorf("%w: cannot record file while %s", ErrTransition, job.Status)
		}
		if job.Processed >= job.TotalFiles {
			return ErrOverflow
		}

		job.Processed++
		if failure != "" {
			job.Failed++
			job.Errors = append(job.Errors, failure)
		}

		return nil
	})
}

func (r *JobRepository) Finish(id string, status model.JobStatus) error {
	if !status.IsTerminal() {
		return fmt.Errorf("%w: %s is not terminal", ErrTransition, status)
	}

	return r.update(id, func(job *model.JobRecord) error {
		if job.Status.IsTerminal() {
			return ErrTerminal
		}

		job.Status = status
		return nil
	})
}

func (r *JobRepository) update(id string, mutate func(*model.JobRecord) error) error {
	return db.DB.Transaction(func(tx *gorm.DB) error {
		var job model.JobRecord
		if err := tx.First(&job, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := mutate(&job); err != nil {
			return err
		}

		return tx.Save(&job).Error
	})
}
