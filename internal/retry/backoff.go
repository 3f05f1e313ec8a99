package retry

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config configures retry behavior with exponential backoff
type Config struct {
	MaxRetries int           // Maximum number of retry attempts (default: 2)
	BaseDelay  time.Duration // Base delay between retries (default: 500ms)
	MaxDelay   time.Duration // Maximum delay between retries (default: 5s)
	Multiplier float64       // Exponential backoff multiplier (default: 2.0)
	Jitter     bool          // Add random jitter to prevent thundering herd
}

// Result contains information about the retry operation
type Result struct {
	Attempts      int
	TotalDuration time.Duration
	LastError     error
	Success       bool
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// ClassifierConfig returns a retry configuration tuned for moderation
// calls: the whole budget has to fit inside the classifier timeout, so
// retries are few and delays short.
func ClassifierConfig() Config {
	return Config{
		MaxRetries: 2,
		BaseDelay:  300 * time.Millisecond,
		MaxDelay:   2 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// Do executes an operation with exponential backoff. Non-retryable errors
// fail immediately; context cancellation stops the loop between attempts.
func Do(ctx context.Context, cfg Config, log zerolog.Logger, operation func() error) Result {
	start := time.Now()
	result := Result{}

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result.Attempts = attempt + 1

		err := operation()
		if err == nil {
			result.Success = true
			result.TotalDuration = time.Since(start)
			if attempt > 0 {
				log.Debug().Int("attempts", result.Attempts).Dur("elapsed", result.TotalDuration).
					Msg("operation succeeded after retry")
			}
			return result
		}
		result.LastError = err

		if attempt >= cfg.MaxRetries || !IsRetryable(err) || ctx.Err() != nil {
			result.TotalDuration = time.Since(start)
			log.Debug().Err(err).Int("attempts", result.Attempts).Msg("operation failed")
			return result
		}

		delay := backoffDelay(cfg, attempt)
		log.Debug().Err(err).Int("attempt", attempt+1).Dur("delay", delay).Msg("retrying operation")

		select {
		case <-ctx.Done():
			result.LastError = ctx.Err()
			result.TotalDuration = time.Since(start)
			return result
		case <-time.After(delay):
		}
	}

	result.TotalDuration = time.Since(start)
	return result
}

// backoffDelay calculates the delay for the next attempt
func backoffDelay(cfg Config, attempt int) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		jitterRange := delay * 0.1
		delay += (rand.Float64() - 0.5) * 2 * jitterRange
		if delay < 0 {
			delay = float64(cfg.BaseDelay)
		}
	}
	return time.Duration(delay)
}

// IsRetryable determines if an error is worth another attempt
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	retryable := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"service unavailable",
		"too many requests",
		"rate limit",
		"429",
		"502",
		"503",
		"504",
		"no such host",
		"network unreachable",
		"broken pipe",
		"context deadline exceeded",
	}
	for _, s := range retryable {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
