package retry

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Config defines retry behavior with exponential backoff
type Config struct {
	MaxRetries       int
	InitialDelay     time.Duration
	MaxDelay         time.Duration
	Multiplier       float64
	JitterFactor     float64 // 0.0-1.0, default 0.1 for +/-10% jitter to prevent thundering herd
	MaxSameErrorType int     // After N consecutive same-type errors, treat as permanent (default: 5)
}

// DefaultConfig returns sensible defaults for database and provider calls
// 3 retries with 100ms initial delay, capped at 5s, doubling each time, with 10% jitter
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:       3,
		InitialDelay:     100 * time.Millisecond,
		MaxDelay:         5 * time.Second,
		Multiplier:       2.0,
		JitterFactor:     0.1,
		MaxSameErrorType: 5,
	}
}

// applyJitter spreads a delay by +/- delay*jitterFactor so concurrent
// callers don't wake up in lockstep. No-op when jitterFactor <= 0.
func applyJitter(delay time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return delay
	}
	jitter := float64(delay) * jitterFactor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

// backoff holds the current inter-attempt delay and grows it on each wait.
type backoff struct {
	cfg   *Config
	delay time.Duration
}

func newBackoff(cfg *Config) *backoff {
	return &backoff{cfg: cfg, delay: cfg.InitialDelay}
}

// wait sleeps for the current (jittered) delay, then doubles it up to
// MaxDelay. Returns ctx.Err() if the context is cancelled mid-sleep.
func (b *backoff) wait(ctx context.Context) error {
	select {
	case <-time.After(applyJitter(b.delay, b.cfg.JitterFactor)):
		b.delay = time.Duration(float64(b.delay) * b.cfg.Multiplier)
		if b.delay > b.cfg.MaxDelay {
			b.delay = b.cfg.MaxDelay
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do executes fn with exponential backoff retry logic
// Returns nil on success, or last error after all retries exhausted
// Respects context cancellation during wait periods
func Do(ctx context.Context, cfg *Config, fn func() error) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	b := newBackoff(cfg)
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt < cfg.MaxRetries {
			if err := b.wait(ctx); err != nil {
				return err
			}
		}
	}

	return lastErr
}

// DoWithResult executes fn and returns both result and error
// Useful for constructors that return values (like pgxpool.New)
// Respects context cancellation during wait periods
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	b := newBackoff(cfg)
	var result T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		r, err := fn()
		if err == nil {
			return r, nil
		}

		lastErr = err
		result = r // Keep last result even on error

		if attempt < cfg.MaxRetries {
			if err := b.wait(ctx); err != nil {
				return result, err
			}
		}
	}

	return result, lastErr
}

// RetryableError is an interface for errors that explicitly declare their
// retryability. Provider errors implement this to control retry behavior.
type RetryableError interface {
	error
	IsRetryable() bool
}

// IsRetryable determines if an error is transient and worth retrying
// This prevents wasting retries on permanent failures (auth errors, bad SQL, etc.)
//
// The function checks errors in this order:
// 1. If the error implements RetryableError, use its IsRetryable() method
// 2. Otherwise, pattern-match against known transient error strings
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	type retryable interface {
		IsRetryable() bool
	}
	if r, ok := err.(retryable); ok {
		return r.IsRetryable()
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		// Connection errors
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"timeout",
		"timed out",
		"temporary failure",
		"network is unreachable",
		"connection timed out",
		// Database resource exhaustion
		"too many connections",
		"deadlock",
		"i/o timeout",
		"out of memory",
		// HTTP status codes
		"429",
		"500",
		"502",
		"503",
		"504",
		// HTTP error messages
		"rate limit",
		"service busy",
		"service unavailable",
		"too many requests",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// classifyErrorType extracts a category from an error for comparison.
// Used to detect repeated failures of the same kind (e.g. a provider
// that keeps answering 503 is down, not flaky).
func classifyErrorType(err error) string {
	if err == nil {
		return "nil"
	}

	errStr := strings.ToLower(err.Error())

	httpCodes := []string{"503", "502", "504", "500", "429", "404", "403", "401", "400"}
	for _, code := range httpCodes {
		if strings.Contains(errStr, code) {
			return code
		}
	}

	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "connection reset") {
		return "connection"
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out") {
		return "timeout"
	}
	if strings.Contains(errStr, "broken pipe") {
		return "broken_pipe"
	}
	if strings.Contains(errStr, "rate limit") || strings.Contains(errStr, "too many requests") {
		return "rate_limit"
	}
	if strings.Contains(errStr, "out of memory") {
		return "oom"
	}

	return "unknown"
}

// DoIfRetryable only retries if the error is transient
// For permanent errors (auth failures, bad SQL, etc.), it returns immediately
// After N consecutive failures of the same error type, escalates to permanent failure
// Respects context cancellation during wait periods
func DoIfRetryable(ctx context.Context, cfg *Config, fn func() error) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	b := newBackoff(cfg)
	var lastErr error
	sameErrorCount := 0
	var lastErrorType string

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}

		currentErrorType := classifyErrorType(err)
		if currentErrorType == lastErrorType {
			sameErrorCount++
			if cfg.MaxSameErrorType > 0 && sameErrorCount >= cfg.MaxSameErrorType {
				return fmt.Errorf("repeated error (%d times, type=%s): %w", sameErrorCount, currentErrorType, err)
			}
		} else {
			sameErrorCount = 1
			lastErrorType = currentErrorType
		}

		if attempt < cfg.MaxRetries {
			if err := b.wait(ctx); err != nil {
				return err
			}
		}
	}

	return lastErr
}
