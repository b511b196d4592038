package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

var (
	// ErrFeatureRejected marks a 400 caused by an optional request feature
	// (structured output, prompt caching, temperature).
	ErrFeatureRejected = errors.New("provider rejected optional feature")
	// ErrMalformedJSON is returned when a structured answer cannot be decoded.
	ErrMalformedJSON = errors.New("malformed json answer")
)

// Request is one generation request. Context carries the stable book
// context, which providers may send as a cacheable block.
type Request struct {
	System      string
	Context     string
	User        string
	Model       string
	MaxTokens   int
	Schema      json.RawMessage // when set, a JSON answer of this shape is requested
	Temperature *float64
	Phase       string // generation step, used for usage accounting
}

// Provider answers generation requests. An empty answer is not an error.
type Provider interface {
	Ask(ctx context.Context, req Request) (string, error)
	Name() string
}

// Options are shared by the HTTP clients.
type Options struct {
	APIKey       string
	Model        string
	BaseURL      string
	MaxTokens    int
	Timeout      time.Duration
	CacheContext bool
	Logger       *slog.Logger
	Stats        *Stats
	// Sleep is used between retries; tests replace it.
	Sleep func(context.Context, time.Duration) error
}

func (o *Options) defaults(baseURL, model string) {
	if o.BaseURL == "" {
		o.BaseURL = baseURL
	}
	if o.Model == "" {
		o.Model = model
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 4096
	}
	if o.Timeout <= 0 {
		o.Timeout = 120 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Stats == nil {
		o.Stats = NewStats(time.Hour)
	}
	if o.Sleep == nil {
		o.Sleep = sleepCtx
	}
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

const MaxRetries = 3

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// call is one attempt at a request; full reports whether optional features
// should be sent.
type call func(ctx context.Context, full bool) (string, error)

// withRetry runs fn, retrying transient failures with backoff and dropping
// optional features once if the provider rejects them.
func withRetry(ctx context.Context, opts *Options, fn call) (string, error) {
	full := true
	downgraded := false
	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			d := Backoff(attempt - 1)
			opts.Logger.Warn("provider retry", "attempt", attempt, "backoff", d, "error", lastErr)
			if err := opts.Sleep(ctx, d); err != nil {
				return "", err
			}
		}
		text, err := fn(ctx, full)
		if err == nil {
			return text, nil
		}
		if errors.Is(err, ErrFeatureRejected) && !downgraded {
			opts.Logger.Warn("provider rejected optional features, retrying without them", "error", err)
			downgraded, full = true, false
			text, err = fn(ctx, full)
			if err == nil {
				return text, nil
			}
		}
		if !IsRetryable(err) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("giving up after %d retries: %w", MaxRetries, lastErr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
