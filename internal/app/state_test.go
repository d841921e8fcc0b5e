package app

import (
	"bytes"
	"clubctl/internal/api"
	"clubctl/internal/auth"
	"clubctl/internal/config"
	"clubctl/internal/model"
	"clubctl/internal/upload"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()

	cfg := config.Default
	cfg.BaseURL = baseURL
	cfg.TokenPath = filepath.Join(t.TempDir(), "token.json")
	return &cfg
}

func TestSessionExpiryEndsSessionOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"expired"}`)
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	require.NoError(t, auth.SaveToken(cfg.TokenPath, &oauth2.Token{AccessToken: "old"}))

	var out bytes.Buffer
	state, err := Open(context.Background(), cfg, &out)
	require.NoError(t, err)

	for rep := 0; rep < 2; rep++ {
		res, err := state.Client.GetJob(context.Background(), "job-1")
		require.NoError(t, err)
		assert.True(t, res.Handled)
		assert.True(t, ReportFailure(state.Notifier, res))
	}

	assert.Equal(t, 1, strings.Count(out.String(), "session has expired"))
	assert.Equal(t, 1, state.Activity.Len())
	assert.ErrorIs(t, state.Err(), ErrSessionExpired)

	select {
	case <-state.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled after session expiry")
	}

	_, err = auth.LoadToken(cfg.TokenPath)
	assert.ErrorIs(t, err, auth.ErrNoToken)
	assert.ErrorIs(t, state.Close(), ErrSessionExpired)
}

func TestOpenWithoutTokenStillWorks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"jobs":[]}`)
	}))
	defer srv.Close()

	state, err := Open(context.Background(), testConfig(t, srv.URL), io.Discard)
	require.NoError(t, err)

	res, err := state.Client.RecentJobs(state.Context())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NoError(t, state.Close())
}

func TestCloseStopsTrackedPollers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"PROCESSING","totalFiles":2,"processed":1,"failed":0,"errors":[]}`)
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.Token = "env-token"
	state, err := Open(context.Background(), cfg, io.Discard)
	require.NoError(t, err)

	p := state.NewJobPoller("job-1")
	p.Start(state.Context())
	<-p.Updates()

	require.NoError(t, state.Close())
	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("poller kept running after Close")
	}

	cached, ok := state.Cache.Get("job-1")
	require.True(t, ok)
	assert.Equal(t, 1, cached.Processed)
}

func TestReportFailure(t *testing.T) {
	var out bytes.Buffer
	log := NewActivityLog()
	n := NewNotifier(&out, log)

	assert.True(t, ReportFailure(n, apiFailure("Formato no soportado")))
	assert.Contains(t, out.String(), "✗ Formato no soportado")
	require.Len(t, log.Entries(), 1)
	assert.Equal(t, LevelError, log.Entries()[0].Level)

	n.Notify(LevelSuccess, "done")
	assert.Equal(t, 2, log.Len())
}

func apiFailure(msg string) api.Result[api.UploadData] {
	return api.Result[api.UploadData]{Status: http.StatusBadRequest, Kind: api.KindServerValidation, Error: msg}
}

func TestFollowUntilTerminal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := "PROCESSING"
		if calls.Add(1) >= 2 {
			status = "COMPLETED"
		}
		_, _ = io.WriteString(w, `{"status":"`+status+`","totalFiles":2,"processed":2,"failed":0,"errors":[]}`)
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.Token = "abc"
	cfg.PollInterval = 10 * time.Millisecond

	state, err := Open(context.Background(), cfg, io.Discard)
	require.NoError(t, err)
	defer func() { _ = state.Close() }()

	var seen []model.JobStatus
	view := state.Follow(state.Context(), "job-9", func(v model.JobView) {
		seen = append(seen, v.Job.Status)
	})

	assert.True(t, view.IsCompleted)
	assert.Equal(t, "job-9", view.Job.JobID)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, model.JobStatusCompleted, seen[len(seen)-1])

	cached, ok := state.Cache.Get("job-9")
	require.True(t, ok)
	assert.Equal(t, model.JobStatusCompleted, cached.Status)
}

func TestFollowSurfacesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, `{"status":"COMPLETED","totalFiles":1,"processed":1,"failed":0,"errors":[]}`)
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.Token = "abc"
	cfg.PollInterval = 10 * time.Millisecond

	var out bytes.Buffer
	state, err := Open(context.Background(), cfg, &out)
	require.NoError(t, err)
	defer func() { _ = state.Close() }()

	view := state.Follow(state.Context(), "job-5", nil)

	assert.True(t, view.IsCompleted)
	assert.Equal(t, int32(3), calls.Load())
	require.Equal(t, 1, state.Activity.Len())
	assert.Equal(t, LevelWarn, state.Activity.Entries()[0].Level)
	assert.Contains(t, out.String(), "job job-5: The server had a problem")
}

func TestMalformedResponseShownGenerically(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			_, _ = io.WriteString(w, `{"status":`)
			return
		}
		_, _ = io.WriteString(w, `{"status":"FAILED","totalFiles":1,"processed":1,"failed":1,"errors":["a.pdf: broken"]}`)
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.Token = "abc"
	cfg.PollInterval = 10 * time.Millisecond

	var out bytes.Buffer
	state, err := Open(context.Background(), cfg, &out)
	require.NoError(t, err)
	defer func() { _ = state.Close() }()

	view := state.Follow(state.Context(), "job-6", nil)

	assert.True(t, view.IsFailed)
	assert.Contains(t, out.String(), api.MsgUnexpected)
	assert.NotContains(t, out.String(), "decode")
}

func TestReportErrorKeepsLocalRejections(t *testing.T) {
	var out bytes.Buffer
	log := NewActivityLog()
	n := NewNotifier(&out, log)

	ReportError(n, fmt.Errorf("%w: notes.txt must have a .zip extension", upload.ErrInvalidFile))
	ReportError(n, upload.ErrJobInFlight)
	ReportError(n, errors.New("failed to decode GET /jobs response: invalid character"))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "notes.txt must have a .zip extension")
	assert.Contains(t, lines[1], upload.ErrJobInFlight.Error())
	assert.Equal(t, "✗ "+api.MsgUnexpected, lines[2])
	assert.Equal(t, 3, log.Len())
}
