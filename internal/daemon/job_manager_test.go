package daemon

import (
	"clubctl/internal/model"
	"clubctl/internal/repository"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResumeUnfinishedSkipsCountedEntries(t *testing.T) {
	_, _ = setupServer(t, 0, "")
	repo := repository.NewJobRepository()

	archivePath := filepath.Join(t.TempDir(), "resume.zip")
	require.NoError(t, os.WriteFile(archivePath, buildZip(t, map[string]string{
		"a.pdf": minimalPDF(),
		"b.pdf": minimalPDF(),
	}), 0644))

	job, err := repo.Create("resume.zip", archivePath)
	require.NoError(t, err)
	require.NoError(t, repo.MarkProcessing(job.ID, 2))
	require.NoError(t, repo.RecordFile(job.ID, "a.pdf: interrupted"))

	manager := NewJobManager(0)
	started, err := manager.ResumeUnfinished()
	require.NoError(t, err)
	assert.Equal(t, 1, started)
	manager.Wait()

	got, err := repo.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	assert.Equal(t, 2, got.Processed)
	assert.Equal(t, 1, got.Failed)
	assert.Empty(t, manager.Running())
}

func TestStopJobLeavesJobProcessing(t *testing.T) {
	_, _ = setupServer(t, 0, "")
	repo := repository.NewJobRepository()

	archivePath := filepath.Join(t.TempDir(), "slow.zip")
	require.NoError(t, os.WriteFile(archivePath, buildZip(t, map[string]string{"a.pdf": "1"}), 0644))

	job, err := repo.Create("slow.zip", archivePath)
	require.NoError(t, err)

	manager := NewJobManager(time.Hour)
	require.NoError(t, manager.StartJob(job))
	require.Error(t, manager.StartJob(job))

	require.Eventually(t, func() bool {
		got, err := repo.GetByID(job.ID)
		return err == nil && got.Status == model.JobStatusProcessing
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, manager.StopJob(job.ID))
	assert.Error(t, manager.StopJob(job.ID))

	got, err := repo.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Processed)
	assert.Equal(t, model.JobStatusProcessing, got.Status)
}

type failingRecordStore struct {
	*repository.JobRepository
	after int
	calls int
}

func (s *failingRecordStore) RecordFile(id string, failure string) error {
	s.calls++
	if s.calls > s.after {
		return errors.New("disk I/O error")
	}
	return s.JobRepository.RecordFile(id, failure)
}

func TestStoreErrorFailsJob(t *testing.T) {
	_, _ = setupServer(t, 0, "")
	repo := repository.NewJobRepository()

	archivePath := filepath.Join(t.TempDir(), "broken.zip")
	require.NoError(t, os.WriteFile(archivePath, buildZip(t, map[string]string{
		"a.csv": "1",
		"b.csv": "2",
	}), 0644))

	job, err := repo.Create("broken.zip", archivePath)
	require.NoError(t, err)

	manager := newJobManager(&failingRecordStore{JobRepository: repo, after: 1}, 0)
	require.NoError(t, manager.StartJob(job))
	manager.Wait()

	got, err := repo.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	assert.Equal(t, 1, got.Processed)

	active, err := repo.HasActive()
	require.NoError(t, err)
	assert.False(t, active)
}

func TestFailMarksPendingJobFailed(t *testing.T) {
	_, _ = setupServer(t, 0, "")
	repo := repository.NewJobRepository()

	job, err := repo.Create("never.zip", filepath.Join(t.TempDir(), "never.zip"))
	require.NoError(t, err)

	NewJobManager(0).Fail(job.ID, errors.New("job already running"))

	got, err := repo.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
}
