package pdfconverter

import (
	"context"
	"log/slog"
	"time"
)

var nopLogger = slog.New(slog.DiscardHandler)

// RetryPolicy retries an operation a bounded number of times with a fixed
// delay schedule. Only errors the Retryable predicate accepts are retried;
// everything else propagates immediately.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// Backoff holds the delay before retry i (0-indexed). When the schedule
	// is shorter than the attempt count, the last entry repeats.
	Backoff []time.Duration

	// Retryable classifies an error as transient. A nil predicate disables
	// retrying entirely.
	Retryable func(error) bool

	// Sleep waits for d or until ctx is done. Nil means a real timer; tests
	// inject a recording func so retry scenarios run without waiting.
	Sleep func(ctx context.Context, d time.Duration) error

	Logger *slog.Logger
}

// ExtractRetryPolicy is the model-call policy: 3 attempts total, retrying
// only rate-limit conditions, waiting 2s after the first failure and 4s
// after the second.
func ExtractRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     []time.Duration{2 * time.Second, 4 * time.Second},
		Retryable:   IsRateLimited,
	}
}

func (p RetryPolicy) delay(i int) time.Duration {
	if i < len(p.Backoff) {
		return p.Backoff[i]
	}
	if n := len(p.Backoff); n > 0 {
		return p.Backoff[n-1]
	}
	return 0
}

// Retry calls fn up to p.MaxAttempts times, sleeping between retryable
// failures. The last error is returned once attempts are exhausted.
func Retry[T any](ctx context.Context, p RetryPolicy, op string, fn func() (T, error)) (T, error) {
	var zero T
	logger := p.Logger
	if logger == nil {
		logger = nopLogger
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var last error
	for i := 0; i < attempts; i++ {
		result, err := fn()
		if err == nil || p.Retryable == nil || !p.Retryable(err) {
			return result, err
		}
		last = err
		if i == attempts-1 {
			break
		}
		delay := p.delay(i)
		logger.Warn("retrying transient error",
			"op", op,
			"attempt", i+1,
			"max_attempts", attempts,
			"delay", delay,
			"error", err)
		if serr := sleep(ctx, delay); serr != nil {
			return zero, serr
		}
	}
	logger.Error("all retry attempts exhausted",
		"op", op,
		"attempts", attempts,
		"error", last)
	return zero, last
}

// sleepContext blocks for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
