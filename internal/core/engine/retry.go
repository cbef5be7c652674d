package engine

import (
	"context"
	"errors"
	"time"
)

// PermanentError marks a failure that retrying cannot fix, such as a
// malformed response or an unknown user. The retryer stops immediately and
// propagates it.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	if e == nil || e.Err == nil {
		return "permanent failure"
	}
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Permanent wraps err so the retryer will not retry it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err carries a PermanentError anywhere in its
// chain.
func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}

// Retryer wraps a fallible operation with bounded retries and exponential
// backoff. The delay before retry i (1-indexed) is BaseDelay*2^(i-1). The
// retryer never swallows errors; after the final attempt the last failure
// is propagated and the caller decides whether to substitute a default.
type Retryer struct {
	MaxAttempts int
	BaseDelay   time.Duration
	OnRetry     func(attempt int, err error)
	Sleep       func(ctx context.Context, d time.Duration)
}

// Do invokes op up to MaxAttempts times.
func (r Retryer) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if r.OnRetry != nil {
				r.OnRetry(attempt, lastErr)
			}
			r.sleep(ctx, r.BaseDelay<<(attempt-2))
			if ctx.Err() != nil {
				return lastErr
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if IsPermanent(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (r Retryer) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	if r.Sleep != nil {
		r.Sleep(ctx, d)
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
