// Package upload validates and submits bulk account-statement archives.
package upload

import (
	"clubctl/internal/api"
	"clubctl/internal/logger"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

var (
	ErrInvalidFile = errors.New("invalid bulk file")
	ErrJobInFlight = errors.New("a bulk upload is already in progress")
)

type Uploader interface {
	UploadBulk(ctx context.Context, filename string, r io.Reader) (api.Result[api.UploadData], error)
}

// RecentJobs is the view of the recent-jobs list the submitter coordinates with.
type RecentJobs interface {
	AnyActive() bool
	Invalidate()
}

type Submitter struct {
	client Uploader
	recent RecentJobs
}

// NewSubmitter returns a Submitter. recent may be nil, in which case no
// in-flight check or list refresh happens.
func NewSubmitter(client Uploader, recent RecentJobs) *Submitter {
	return &Submitter{client: client, recent: recent}
}

// Validate checks the file locally: it must carry a .zip extension and its
// content must sniff as a ZIP archive.
func Validate(path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return fmt.Errorf("%w: %s must have a .zip extension", ErrInvalidFile, filepath.Base(path))
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidFile, path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s is empty", ErrInvalidFile, filepath.Base(path))
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	for m := mt; m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return nil
		}
	}

	return fmt.Errorf("%w: %s looks like %s, not a zip archive", ErrInvalidFile, filepath.Base(path), mt.String())
}

// Submit uploads the archive at path. Local rejections come back as errors
// wrapping ErrInvalidFile or ErrJobInFlight and never reach the network;
// server outcomes come back in the result.
func (s *Submitter) Submit(ctx context.Context, path string) (api.Result[api.UploadData], error) {
	if err := Validate(path); err != nil {
		return api.Result[api.UploadData]{Kind: api.KindValidation, Error: err.Error()}, err
	}

	if s.recent != nil && s.recent.AnyActive() {
		return api.Result[api.UploadData]{Kind: api.KindValidation, Error: ErrJobInFlight.Error()}, ErrJobInFlight
	}

	f, err := os.Open(path)
	if err != nil {
		return api.Result[api.UploadData]{}, fmt.Errorf("failed to open %s: %w", path, err)
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	res, err := s.client.UploadBulk(ctx, filepath.Base(path), f)
	if err != nil {
		return res, err
	}

	if !res.Success {
		logger.Log.Info("bulk upload rejected",
			zap.String("file", path),
			zap.Int("status", res.Status),
			zap.String("error", res.Error))
		return res, nil
	}

	logger.Log.Info("bulk upload accepted",
		zap.String("file", path),
		zap.String("job_id", res.Data.JobID))

	if s.recent != nil {
		s.recent.Invalidate()
	}

	return res, nil
}
