package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Config defines retry behavior.
type Config struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialDelay    time.Duration `yaml:"initial_delay"`
	MaxDelay        time.Duration `yaml:"max_delay"`
	BackoffMultiple float64       `yaml:"backoff_multiple"`
	Jitter          bool          `yaml:"jitter"`
}

// DefaultConfig provides sensible defaults for connecting to backing services.
var DefaultConfig = Config{
	MaxAttempts:     5,
	InitialDelay:    1 * time.Second,
	MaxDelay:        30 * time.Second,
	BackoffMultiple: 2.0,
	Jitter:          true,
}

// ErrorAction determines how to handle an error.
type ErrorAction int

const (
	ActionRetry ErrorAction = iota
	ActionFatal
)

// ClassifyError decides whether a database error is worth retrying. Authentication,
// unknown database and SQL errors are fatal; connection and resource errors are retried.
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionRetry
	}
	if errors.Is(err, context.Canceled) {
		return ActionFatal
	}

	var code string
	var pgErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgErr):
		code = pgErr.Code
	case errors.As(err, &pqErr):
		code = string(pqErr.Code)
	}
	if code != "" {
		// 28: invalid authorization, 3D000: unknown database, 42: syntax or access rule
		switch {
		case strings.HasPrefix(code, "28"), code == "3D000", strings.HasPrefix(code, "42"):
			return ActionFatal
		default:
			return ActionRetry
		}
	}

	s := strings.ToLower(err.Error())
	if strings.Contains(s, "password authentication failed") ||
		strings.Contains(s, "cannot parse") ||
		strings.Contains(s, "invalid dsn") {
		return ActionFatal
	}

	// Default to Retry (network, timeouts, restarts)
	return ActionRetry
}

// Do runs fn until it succeeds, returns a fatal error, or attempts run out.
func Do(ctx context.Context, cfg Config, logger *slog.Logger, operation string, fn func(ctx context.Context) error) error {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			if attempt > 1 {
				logger.Info("Operation succeeded after retries", "operation", operation, "attempts", attempt)
			}
			return nil
		}

		if ClassifyError(lastErr) == ActionFatal {
			return fmt.Errorf("%s: %w", operation, lastErr)
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		delay := Backoff(cfg, attempt)
		logger.Warn("Operation failed, retrying",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", cfg.MaxAttempts,
			"retry_in", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, cfg.MaxAttempts, lastErr)
}

// Backoff returns the delay before the attempt following attempt (1-based).
func Backoff(cfg Config, attempt int) time.Duration {
	mult := cfg.BackoffMultiple
	if mult <= 0 {
		mult = 2.0
	}
	delay := float64(cfg.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	// +/-15% jitter
	if cfg.Jitter {
		jitter := rand.Float64() * 0.3 * delay
		delay = delay + jitter - (0.15 * delay)
	}
	return time.Duration(delay)
}
