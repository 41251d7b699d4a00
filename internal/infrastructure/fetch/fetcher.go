// Package fetch issues polite HTTP GETs with bounded retries for the collectors.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/turabik33/CE48-Final/internal/collector"
)

// Config configures the fetcher.
type Config struct {
	Timeout   time.Duration // per request, default 30s
	Retries   int           // attempts in total, default 3
	BaseDelay time.Duration // first backoff, doubled per attempt, default 1s
	MaxBytes  int64         // body cap, default 10MB
	UserAgent string
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Retries <= 0 {
		c.Retries = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "CivilEngineeringAI-NewsBot/1.0 (Academic Research)"
	}
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// StatusError reports a non-2xx answer.
type StatusError struct {
	URL    string
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// Transient reports whether the status is worth retrying.
func (e *StatusError) Transient() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// StatusCode extracts the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// Fetcher performs GET requests with exponential backoff on transient failures.
type Fetcher struct {
	client *http.Client
	config Config
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates a Fetcher. A nil client gets one with the configured timeout.
func New(client *http.Client, cfg Config, logger *slog.Logger) *Fetcher {
	cfg.defaults()
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Fetcher{client: client, config: cfg, logger: logger, sleep: collector.Sleep}
}

// UserAgent returns the default User-Agent sent with requests.
func (f *Fetcher) UserAgent() string {
	return f.config.UserAgent
}

// Get retrieves url. Network errors, 5xx and 429 are retried up to the
// configured ceiling with base*2^attempt waits; other statuses fail at once.
func (f *Fetcher) Get(ctx context.Context, url string, header http.Header) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt < f.config.Retries; attempt++ {
		resp, err := f.do(ctx, url, header)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(err) {
			return nil, err
		}
		if attempt == f.config.Retries-1 {
			break
		}

		wait := f.config.BaseDelay << attempt
		f.logger.Debug("retrying request", "url", url, "attempt", attempt+1, "wait", wait, "error", err)
		if err := f.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", f.config.Retries, lastErr)
}

func (f *Fetcher) do(ctx context.Context, url string, header http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &permanentError{fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	for key, values := range header {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, &StatusError{URL: url, Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func retryable(err error) bool {
	var pe *permanentError
	if errors.As(err, &pe) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Transient()
	}
	return true
}
