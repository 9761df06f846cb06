package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy defines how delays increase between attempts.
type BackoffStrategy int

const (
	// BackoffConstant uses the same delay for all retries.
	BackoffConstant BackoffStrategy = iota
	// BackoffLinear increases delay linearly.
	BackoffLinear
	// BackoffExponential multiplies the delay each attempt.
	BackoffExponential
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 1
	MaxAttempts int

	// Delay is the delay before the first retry. Zero retries immediately.
	Delay time.Duration

	// MaxDelay caps the delay between attempts. Zero means no cap.
	MaxDelay time.Duration

	// Multiplier is the factor for exponential backoff.
	// Default: 2.0
	Multiplier float64

	// Strategy is the backoff strategy.
	// Default: BackoffConstant
	Strategy BackoffStrategy

	// Jitter adds up to 25% random delay.
	Jitter bool

	// RetryIf reports whether err should trigger another attempt.
	// Default: every non-nil error.
	RetryIf func(err error) bool

	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry runs an operation until it succeeds, a non-retryable error occurs or
// the attempts are exhausted.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}
	return &Retry{config: config}
}

// Execute runs op with retry logic. The attempt number starts at 1.
// When every attempt fails with a retryable error, the last error is returned.
func (r *Retry) Execute(ctx context.Context, op func(ctx context.Context, attempt int) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = op(ctx, attempt); err == nil {
			return nil
		}
		if !r.config.RetryIf(err) || attempt >= r.config.MaxAttempts {
			return err
		}

		delay := r.delay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}
		if delay <= 0 {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			continue
		}
		if sleepErr := sleepContext(ctx, delay); sleepErr != nil {
			return sleepErr
		}
	}
}

func (r *Retry) delay(attempt int) time.Duration {
	base := r.config.Delay
	if base <= 0 {
		return 0
	}

	var d time.Duration
	switch r.config.Strategy {
	case BackoffLinear:
		d = base * time.Duration(attempt)
	case BackoffExponential:
		d = time.Duration(float64(base) * math.Pow(r.config.Multiplier, float64(attempt-1)))
	default:
		d = base
	}

	if r.config.MaxDelay > 0 && d > r.config.MaxDelay {
		d = r.config.MaxDelay
	}
	if r.config.Jitter && d >= 4 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		d += time.Duration(rand.Int64N(int64(d / 4)))
	}
	return d
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
