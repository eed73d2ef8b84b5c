package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// AttemptFunc performs one try. attempt is 1-indexed.
type AttemptFunc[T any] func(ctx context.Context, attempt int) (bool, T, error)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy configures Do.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	// Operation names the retried call in log lines.
	Operation string
	Logger    *zap.Logger
	Sleep     SleepFunc
	// OnAttempt is invoked after every try, before any backoff sleep.
	OnAttempt func(attempt int, success bool, err error)
}

// ErrAttemptFailed is reported when an attempt returns false without an error.
var ErrAttemptFailed = errors.New("attempt failed")

// Backoff returns the delay slept after the given failed attempt.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base * time.Duration(1<<(attempt-1))
}

// Do calls fn up to p.MaxRetries times with exponential backoff between tries.
// Panics and errors from fn count as failed attempts and are never propagated;
// after the last attempt the final result and error are returned.
func Do[T any](ctx context.Context, p Policy, fn AttemptFunc[T]) (bool, T, error) {
	if p.MaxRetries < 1 {
		p.MaxRetries = 1
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		lastResult T
		lastErr    error
	)
	for attempt := 1; attempt <= p.MaxRetries; attempt++ {
		ok, result, err := safeCall(ctx, fn, attempt)
		lastResult = result
		if ok {
			if p.OnAttempt != nil {
				p.OnAttempt(attempt, true, nil)
			}
			if attempt > 1 {
				logger.Info("retry succeeded",
					zap.String("operation", p.Operation),
					zap.Int("attempt", attempt),
				)
			}
			return true, result, nil
		}

		if err == nil {
			err = ErrAttemptFailed
		}
		lastErr = err
		if p.OnAttempt != nil {
			p.OnAttempt(attempt, false, err)
		}

		if attempt == p.MaxRetries {
			break
		}

		delay := Backoff(p.BaseDelay, attempt)
		logger.Warn("attempt failed, backing off",
			zap.String("operation", p.Operation),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", p.MaxRetries),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if sleepErr := p.Sleep(ctx, delay); sleepErr != nil {
			logger.Warn("retry aborted",
				zap.String("operation", p.Operation),
				zap.Int("attempt", attempt),
				zap.Error(sleepErr),
			)
			return false, lastResult, lastErr
		}
	}

	logger.Error("all attempts exhausted",
		zap.String("operation", p.Operation),
		zap.Int("max_retries", p.MaxRetries),
		zap.Error(lastErr),
	)
	return false, lastResult, lastErr
}

func safeCall[T any](ctx context.Context, fn AttemptFunc[T], attempt int) (ok bool, result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("attempt %d panicked: %v", attempt, r)
		}
	}()
	return fn(ctx, attempt)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
