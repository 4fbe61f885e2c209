// Package resilience provides retry, backoff, and platform demotion
// primitives for marketplace scan calls.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls retry behavior with exponential backoff and jitter.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (including the first try).
	// Default: 4.
	MaxAttempts int

	// InitialBackoff is the base delay before the first retry. Default: 2s.
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff duration. Default: 45s.
	MaxBackoff time.Duration

	// Multiplier scales the backoff after each attempt. Default: 2.0.
	Multiplier float64

	// JitterFraction adds random jitter as a fraction of the computed delay
	// (0.0 = no jitter, 0.5 = ±50%). Default: 0.25.
	JitterFraction float64

	// TimeoutMultiplier grows the per-attempt deadline on each retry.
	// Default: 1.8.
	TimeoutMultiplier float64

	// ShouldRetry optionally overrides the default transient-error check.
	// If nil, IsTransient is used. Permanent scan errors never retry.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep with attempt number and error.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig returns the scan retry profile: up to 4 attempts,
// min(base · 2^(n−1), 45s) backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       4,
		InitialBackoff:    2 * time.Second,
		MaxBackoff:        45 * time.Second,
		Multiplier:        2.0,
		JitterFraction:    0.25,
		TimeoutMultiplier: 1.8,
	}
}

// AttemptTimeout returns the deadline for the given zero-based attempt,
// growing the base timeout by TimeoutMultiplier per retry.
func (cfg RetryConfig) AttemptTimeout(base time.Duration, attempt int) time.Duration {
	m := cfg.TimeoutMultiplier
	if m <= 0 {
		m = 1.8
	}
	return time.Duration(float64(base) * math.Pow(m, float64(attempt)))
}

// DoVal executes fn with retry logic according to cfg, preserving the return
// value of the successful call. Retries stop immediately on context
// cancellation, on non-transient errors, and on permanent scan errors.
// fn receives the zero-based attempt number so callers can rotate regions
// and stretch deadlines per attempt.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	cfg = applyDefaults(cfg)

	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx, attempt)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}

		if IsPermanent(lastErr) || !shouldRetry(lastErr) {
			return zero, lastErr
		}

		if attempt >= cfg.MaxAttempts-1 {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, lastErr)
		}

		delay := computeBackoff(attempt, cfg)
		if KindOf(lastErr) == KindRateLimited {
			// Rate limits get double the usual backoff.
			delay *= 2
			if delay > cfg.MaxBackoff {
				delay = cfg.MaxBackoff
			}
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 4
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 2 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 45 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	if cfg.TimeoutMultiplier <= 0 {
		cfg.TimeoutMultiplier = 1.8
	}
	return cfg
}

func computeBackoff(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt))
	if delay > float64(cfg.MaxBackoff) {
		delay = float64(cfg.MaxBackoff)
	}

	if cfg.JitterFraction > 0 {
		jitterRange := delay * cfg.JitterFraction
		delay += (rand.Float64()*2 - 1) * jitterRange
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(platform string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying scan",
			zap.String("platform", platform),
			zap.Int("attempt", attempt),
			zap.String("kind", string(KindOf(err))),
			zap.Error(err),
		)
	}
}
