package poller

import (
	"clubctl/internal/api"
	"clubctl/internal/model"
	"context"
	"sync"
)

type scriptedFetcher struct {
	mu        sync.Mutex
	responses []api.Result[model.BulkJob]
	calls     int
}

func newScriptedFetcher(responses ...api.Result[model.BulkJob]) *scriptedFetcher {
	return &scriptedFetcher{responses: responses}
}

func (f *scriptedFetcher) GetJob(ctx context.Context, jobID string) (api.Result[model.BulkJob], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.calls
	f.calls++
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}

	return f.responses[i], nil
}

func (f *scriptedFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func observed(status model.JobStatus, processed, total int) api.Result[model.BulkJob] {
	return api.Result[model.BulkJob]{
		Success: true,
		Status:  200,
		Data: model.BulkJob{
			Status:     status,
			TotalFiles: total,
			Processed:  processed,
			Errors:     []string{},
		},
	}
}

func transportFailure() api.Result[model.BulkJob] {
	return api.Result[model.BulkJob]{Kind: api.KindTransport, Error: "connection refused"}
}

type recentFetcher struct {
	mu    sync.Mutex
	jobs  []model.RecentJob
	calls int
}

func (f *recentFetcher) RecentJobs(ctx context.Context) (api.Result[[]model.RecentJob], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	return api.Result[[]model.RecentJob]{Success: true, Status: 200, Data: append([]model.RecentJob(nil), f.jobs...)}, nil
}

func (f *recentFetcher) SetJobs(jobs []model.RecentJob) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = jobs
}
