package api

import (
	"bytes"
	"clubctl/internal/logger"
	"clubctl/internal/model"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type Client struct {
	baseURL        string
	http           *http.Client
	onUnauthorized func()
}

type Option func(*clientOptions)

type clientOptions struct {
	httpClient     *http.Client
	tokenSource    oauth2.TokenSource
	timeout        time.Duration
	onUnauthorized func()
}

// WithTokenSource attaches "Authorization: Bearer <token>" to every request.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(o *clientOptions) { o.tokenSource = ts }
}

// WithTimeout sets a per-request timeout. Zero keeps the transport default.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = hc }
}

// WithUnauthorizedHandler registers the session-expiry hook run on every 401.
func WithUnauthorizedHandler(fn func()) Option {
	return func(o *clientOptions) { o.onUnauthorized = fn }
}

func New(baseURL string, opts ...Option) *Client {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	base := o.httpClient
	if base == nil {
		base = &http.Client{}
	}

	hc := &http.Client{
		Transport:     base.Transport,
		CheckRedirect: base.CheckRedirect,
		Jar:           base.Jar,
		Timeout:       base.Timeout,
	}
	if o.timeout > 0 {
		hc.Timeout = o.timeout
	}
	if o.tokenSource != nil {
		transport := hc.Transport
		if transport == nil {
			transport = http.DefaultTransport
		}
		hc.Transport = &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, o.tokenSource),
			Base:   transport,
		}
	}

	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           hc,
		onUnauthorized: o.onUnauthorized,
	}
}

func (c *Client) GetJob(ctx context.Context, jobID string) (Result[model.BulkJob], error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/account-statements/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return Result[model.BulkJob]{}, fmt.Errorf("failed to build request: %w", err)
	}

	res, err := send(c, req, func(body []byte) (model.BulkJob, error) {
		var job model.BulkJob
		err := json.Unmarshal(body, &job)
		return job, err
	})
	if res.Success && res.Data.JobID == "" {
		res.Data.JobID = jobID
	}

	return res, err
}

func (c *Client) RecentJobs(ctx context.Context) (Result[[]model.RecentJob], error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/account-statements/jobs/recent", nil)
	if err != nil {
		return Result[[]model.RecentJob]{}, fmt.Errorf("failed to build request: %w", err)
	}

	return send(c, req, func(body []byte) ([]model.RecentJob, error) {
		var payload struct {
			Jobs []model.RecentJob `json:"jobs"`
		}
		err := json.Unmarshal(body, &payload)
		return payload.Jobs, err
	})
}

// UploadBulk posts an archive as the multipart field "file".
func (c *Client) UploadBulk(ctx context.Context, filename string, r io.Reader) (Result[UploadData], error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		fw, err := writer.CreateFormFile("file", filename)
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(fw, r); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.CloseWithError(writer.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/account-statements/upload-bulk", pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return Result[UploadData]{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	res, err := send(c, req, func(body []byte) (UploadData, error) {
		var payload struct {
			Success bool       `json:"success"`
			Data    UploadData `json:"data"`
			Message string     `json:"message"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return UploadData{}, err
		}
		if !payload.Success || payload.Data.JobID == "" {
			return UploadData{}, rejectedError{message: payload.Message}
		}
		return payload.Data, nil
	})
	_ = pr.Close()

	return res, err
}

// Shutdown asks a reference server started with "clubctl serve" to stop.
func (c *Client) Shutdown(ctx context.Context) (Result[struct{}], error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/stop", nil)
	if err != nil {
		return Result[struct{}]{}, fmt.Errorf("failed to build request: %w", err)
	}

	return send(c, req, func([]byte) (struct{}, error) {
		return struct{}{}, nil
	})
}

// rejectedError marks a 2xx body that still reports failure.
type rejectedError struct {
	message string
}

func (e rejectedError) Error() string {
	return e.message
}

func send[T any](c *Client, req *http.Request, decode func([]byte) (T, error)) (Result[T], error) {
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Log.Debug("request failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL.String()),
			zap.Error(err))
		return Result[T]{Kind: KindTransport, Error: msgConnection}, nil
	}

	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result[T]{Kind: KindTransport, Error: msgConnection, Status: resp.StatusCode}, nil
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		data, err := decode(body)
		var rej rejectedError
		if ok := errors.As(err, &rej); ok {
			msg := rej.message
			if msg == "" {
				msg = fallbackMessage(http.StatusBadRequest)
			}
			return Result[T]{Kind: KindServerValidation, Error: msg, Status: resp.StatusCode}, nil
		}
		if err != nil {
			return Result[T]{Status: resp.StatusCode}, fmt.Errorf("failed to decode %s %s response: %w",
				req.Method, req.URL.Path, err)
		}

		return Result[T]{Success: true, Data: data, Status: resp.StatusCode}, nil
	}

	return failure[T](c, req, resp.StatusCode, body), nil
}

func failure[T any](c *Client, req *http.Request, status int, body []byte) Result[T] {
	logger.Log.Debug("request rejected",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", status))

	kind := classify(status)
	if kind == KindNone {
		kind = KindServerValidation
	}

	switch kind {
	case KindAuth:
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return Result[T]{Kind: KindAuth, Error: msgSessionExpired, Status: status, Handled: c.onUnauthorized != nil}

	case KindServerFault:
		return Result[T]{Kind: KindServerFault, Error: msgServerFault, Status: status}
	}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(body), &payload); err != nil {
		return Result[T]{Kind: KindTransport, Error: msgConnection, Status: status}
	}

	msg := payload.Message
	if msg == "" {
		msg = fallbackMessage(status)
	}

	return Result[T]{Kind: kind, Error: msg, Status: status}
}
