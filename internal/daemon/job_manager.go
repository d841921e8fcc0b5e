package daemon

import (
	"archive/zip"
	"clubctl/internal/logger"
	"clubctl/internal/model"
	"clubctl/internal/repository"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var supportedEntryExts = map[string]bool{
	".pdf":  true,
	".csv":  true,
	".xls":  true,
	".xlsx": true,
}

type jobStore interface {
	GetUnfinished() ([]model.JobRecord, error)
	GetByID(id string) (model.JobRecord, error)
	MarkProcessing(id string, total int) error
	RecordFile(id string, failure string) error
	Finish(id string, status model.JobStatus) error
}

// JobManager runs archive ingestion for accepted bulk uploads, one goroutine per job.
type JobManager struct {
	mu      sync.RWMutex
	jobs    map[string]*JobState
	jobRepo jobStore
	delay   time.Duration
	wg      sync.WaitGroup
}

func NewJobManager(delay time.Duration) *JobManager {
	return newJobManager(repository.NewJobRepository(), delay)
}

func newJobManager(store jobStore, delay time.Duration) *JobManager {
	return &JobManager{
		jobs:    make(map[string]*JobState),
		jobRepo: store,
		delay:   delay,
	}
}

func (m *JobManager) StartJob(job model.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already running", job.ID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	state := NewJobState(job.ID, job.FileName, cancel)
	m.jobs[job.ID] = state

	m.wg.Add(1)
	go m.runJob(ctx, state, job)

	logger.Log.Info("job started",
		zap.String("id", job.ID),
		zap.String("file", job.FileName))

	return nil
}

// ResumeUnfinished restarts jobs left pending or processing by a previous run.
// Entries already counted are skipped so processed never goes backwards.
func (m *JobManager) ResumeUnfinished() (int, error) {
	jobs, err := m.jobRepo.GetUnfinished()
	if err != nil {
		return 0, err
	}

	started := 0
	for _, job := range jobs {
		if err := m.StartJob(job); err != nil {
			logger.Log.Warn("failed to resume job",
				zap.String("id", job.ID),
				zap.Error(err))
			continue
		}
		started++
	}

	return started, nil
}

func (m *JobManager) runJob(ctx context.Context, state *JobState, job model.JobRecord) {
	defer func() {
		m.mu.Lock()
		delete(m.jobs, state.JobID)
		m.mu.Unlock()

		close(state.doneCh)
		m.wg.Done()

		logger.Log.Info("job stopped",
			zap.String("id", state.JobID))
	}()

	zr, err := zip.OpenReader(job.ArchivePath)
	if err != nil {
		m.failArchive(job, err)
		return
	}

	defer func(zr *zip.ReadCloser) {
		_ = zr.Close()
	}(zr)

	entries := fileEntries(zr.File)
	if err := m.jobRepo.MarkProcessing(job.ID, len(entries)); err != nil {
		m.abandon(job.ID, "failed to mark job processing", err)
		return
	}

	current, err := m.jobRepo.GetByID(job.ID)
	if err != nil {
		m.abandon(job.ID, "failed to reload job", err)
		return
	}

	if current.Processed > len(entries) || current.TotalFiles != len(entries) {
		logger.Log.Warn("archive changed since job was accepted",
			zap.String("id", job.ID),
			zap.Int("entries", len(entries)),
			zap.Int("total_files", current.TotalFiles))
		_ = m.jobRepo.Finish(job.ID, model.JobStatusFailed)
		return
	}

	for _, f := range entries[current.Processed:] {
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.delay):
		}

		failure := checkEntry(f)
		if err := m.jobRepo.RecordFile(job.ID, failure); err != nil {
			m.abandon(job.ID, "failed to record file "+f.Name, err)
			return
		}

		if failure != "" {
			logger.Log.Debug("entry rejected",
				zap.String("id", job.ID),
				zap.String("reason", failure))
		}
	}

	if err := m.jobRepo.Finish(job.ID, model.JobStatusCompleted); err != nil {
		m.abandon(job.ID, "failed to finish job", err)
		return
	}

	logger.Log.Info("job completed",
		zap.String("id", job.ID),
		zap.Int("files", len(entries)))
}

// abandon ends a job that can no longer make progress so it stops blocking
// new uploads. Interrupted jobs are left alone for ResumeUnfinished.
func (m *JobManager) abandon(id, reason string, cause error) {
	logger.Log.Warn(reason,
		zap.String("id", id),
		zap.Error(cause))

	if err := m.jobRepo.Finish(id, model.JobStatusFailed); err != nil {
		logger.Log.Error("failed to mark job failed",
			zap.String("id", id),
			zap.Error(err))
	}
}

// Fail marks a job that never started as failed.
func (m *JobManager) Fail(id string, cause error) {
	m.abandon(id, "failed to start job", cause)
}

// failArchive records an unreadable archive as a single failed file so the
// error list is never populated without a failure behind it.
func (m *JobManager) failArchive(job model.JobRecord, cause error) {
	logger.Log.Warn("failed to open archive",
		zap.String("id", job.ID),
		zap.Error(cause))

	if err := m.jobRepo.MarkProcessing(job.ID, 1); err != nil {
		logger.Log.Warn("failed to mark job processing", zap.Error(err))
		return
	}

	current, err := m.jobRepo.GetByID(job.ID)
	if err == nil && current.Processed < current.TotalFiles {
		_ = m.jobRepo.RecordFile(job.ID, fmt.Sprintf("%s: %v", job.FileName, cause))
	}

	if err := m.jobRepo.Finish(job.ID, model.JobStatusFailed); err != nil {
		logger.Log.Warn("failed to finish job", zap.Error(err))
	}
}

func fileEntries(files []*zip.File) []*zip.File {
	entries := make([]*zip.File, 0, len(files))
	for _, f := range files {
		if f.FileInfo().IsDir() {
			continue
		}
		entries = append(entries, f)
	}

	return entries
}

func checkEntry(f *zip.File) string {
	ext := strings.ToLower(path.Ext(f.Name))
	if !supportedEntryExts[ext] {
		return fmt.Sprintf("%s: unsupported file type", f.Name)
	}

	if f.UncompressedSize64 == 0 {
		return fmt.Sprintf("%s: empty file", f.Name)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Sprintf("%s: %v", f.Name, err)
	}

	defer func(rc io.ReadCloser) {
		_ = rc.Close()
	}(rc)

	if ext == ".pdf" {
		if err := checkPDF(rc); err != nil {
			return fmt.Sprintf("%s: invalid PDF: %v", f.Name, err)
		}
		return ""
	}

	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Sprintf("%s: %v", f.Name, err)
	}

	return ""
}

func (m *JobManager) StopJob(id string) error {
	m.mu.RLock()
	state, exists := m.jobs[id]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job %s not found", id)
	}

	state.cancel()
	<-state.Done()
	return nil
}

func (m *JobManager) StopAll() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.jobs))
	for id := range m.jobs {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		_ = m.StopJob(id)
	}
}

// Wait blocks until every started job goroutine has returned.
func (m *JobManager) Wait() {
	m.wg.Wait()
}

func (m *JobManager) Running() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.jobs))
	for id := range m.jobs {
		ids = append(ids, id)
	}

	return ids
}
