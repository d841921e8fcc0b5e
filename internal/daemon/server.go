package daemon

import (
	"clubctl/internal/logger"
	"clubctl/internal/model"
	"clubctl/internal/repository"
	"clubctl/internal/util"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Options struct {
	Port        int
	Token       string
	Secret      string
	UploadDir   string
	RecentLimit int
	BodyLimit   string
}

// Server exposes the account-statement bulk upload API.
type Server struct {
	echo     *echo.Echo
	manager  *JobManager
	jobRepo  *repository.JobRepository
	verifier *Verifier
	opts     Options
	uploadMu sync.Mutex
	stopCh   chan struct{}
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func NewServer(manager *JobManager, opts Options) (*Server, error) {
	if opts.UploadDir == "" {
		return nil, fmt.Errorf("upload dir is required")
	}
	if err := os.MkdirAll(opts.UploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = 10
	}
	if opts.BodyLimit == "" {
		opts.BodyLimit = "64M"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Log.Debug("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))

	s := &Server{
		echo:    e,
		manager: manager,
		jobRepo: repository.NewJobRepository(),
		opts:    opts,
		stopCh:  make(chan struct{}, 1),
	}
	if opts.Secret != "" {
		s.verifier = NewVerifier(opts.Secret)
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	g := s.echo.Group("/account-statements", s.requireToken)
	g.POST("/upload-bulk", s.handleUploadBulk, middleware.BodyLimit(s.opts.BodyLimit))
	g.GET("/jobs/recent", s.handleRecentJobs)
	g.GET("/jobs/:id", s.handleGetJob)

	s.echo.POST("/stop", s.handleStop, s.requireToken)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() {
	go func() {
		addr := ":" + strconv.Itoa(s.opts.Port)
		logger.Log.Info("bulk job server started",
			zap.String("addr", addr))

		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("bulk job server error", zap.Error(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	s.manager.StopAll()
	return s.echo.Shutdown(ctx)
}

func (s *Server) StopCh() <-chan struct{} {
	return s.stopCh
}

// requireToken accepts the static server token or, when a secret is
// configured, an unexpired token signed with it. Everything else is 401.
func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.opts.Token == "" && s.verifier == nil {
			return next(c)
		}

		got := strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
		if s.opts.Token != "" && subtle.ConstantTimeCompare([]byte(got), []byte(s.opts.Token)) == 1 {
			return next(c)
		}

		if s.verifier != nil && got != "" {
			subject, err := s.verifier.Verify(got)
			if err == nil {
				c.Set("subject", subject)
				return next(c)
			}
			logger.Log.Debug("token rejected", zap.Error(err))
		}

		return c.JSON(http.StatusUnauthorized, envelope{Message: "session expired"})
	}
}

func (s *Server) handleStop(c echo.Context) error {
	select {
	case s.stopCh <- struct{}{}:
	default:
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "stopping"})
}

func (s *Server) handleUploadBulk(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, envelope{Message: "file is required"})
	}

	if !strings.EqualFold(filepath.Ext(fh.Filename), ".zip") {
		return c.JSON(http.StatusBadRequest, envelope{Message: "unsupported format, expected a .zip archive"})
	}

	s.uploadMu.Lock()
	defer s.uploadMu.Unlock()

	active, err := s.jobRepo.HasActive()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, envelope{Message: err.Error()})
	}
	if active {
		return c.JSON(http.StatusConflict, envelope{Message: "another bulk upload is still processing"})
	}

	archiveName := uuid.NewString() + ".zip"
	size, err := s.saveUpload(fh, archiveName)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, envelope{Message: err.Error()})
	}
	archivePath := filepath.Join(s.opts.UploadDir, archiveName)

	job, err := s.jobRepo.Create(filepath.Base(fh.Filename), archivePath)
	if err != nil {
		_ = util.RemoveIfExists(archivePath)
		return c.JSON(http.StatusInternalServerError, envelope{Message: err.Error()})
	}

	if err := s.manager.StartJob(job); err != nil {
		s.manager.Fail(job.ID, err)
		_ = util.RemoveIfExists(archivePath)
		return c.JSON(http.StatusInternalServerError, envelope{Message: err.Error()})
	}

	logger.Log.Info("bulk upload accepted",
		zap.String("job_id", job.ID),
		zap.String("file", job.FileName),
		zap.Int64("bytes", size))

	return c.JSON(http.StatusAccepted, envelope{
		Success: true,
		Data:    map[string]string{"jobId": job.ID},
		Message: "upload accepted",
	})
}

func (s *Server) saveUpload(fh *multipart.FileHeader, name string) (int64, error) {
	src, err := fh.Open()
	if err != nil {
		return 0, fmt.Errorf("failed to open upload: %w", err)
	}

	defer func(src io.ReadCloser) {
		_ = src.Close()
	}(src)

	return util.StoreArchive(s.opts.UploadDir, name, src)
}

func (s *Server) handleGetJob(c echo.Context) error {
	job, err := s.jobRepo.GetByID(c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, envelope{Message: "job not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, envelope{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, job.BulkJob())
}

func (s *Server) handleRecentJobs(c echo.Context) error {
	limit := s.opts.RecentLimit
	if lStr := c.QueryParam("limit"); lStr != "" {
		if parsed, err := strconv.Atoi(lStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := s.jobRepo.GetRecent(limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, envelope{Message: err.Error()})
	}

	jobs := make([]model.RecentJob, 0, len(records))
	for _, r := range records {
		jobs = append(jobs, r.RecentJob())
	}

	return c.JSON(http.StatusOK, map[string]any{"jobs": jobs})
}
