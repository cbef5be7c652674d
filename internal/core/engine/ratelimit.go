package engine

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a minimum spacing between dispatches to one external
// platform. A single instance exists per platform and is shared by every
// concurrent caller targeting it, so in-flight fan-out never exceeds the
// platform's cadence. It never fails; at worst it delays.
type RateLimiter struct {
	MinInterval time.Duration
	Clock       func() time.Time
	Sleep       func(ctx context.Context, d time.Duration)

	mu           sync.Mutex
	lastDispatch time.Time
}

// Wait suspends the caller until at least MinInterval has elapsed since the
// dispatch slot handed to the previous caller, records the new slot, and
// returns. Slots are reserved under the lock, so concurrent callers are
// serialized at the configured cadence; last-dispatch time only moves
// forward.
func (r *RateLimiter) Wait(ctx context.Context) {
	if r == nil || r.MinInterval <= 0 {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := r.now()

	r.mu.Lock()
	slot := r.lastDispatch.Add(r.MinInterval)
	if slot.Before(now) {
		slot = now
	}
	r.lastDispatch = slot
	r.mu.Unlock()

	if wait := slot.Sub(now); wait > 0 {
		r.sleep(ctx, wait)
	}
}

// LastDispatch returns the most recently reserved dispatch time.
func (r *RateLimiter) LastDispatch() time.Time {
	if r == nil {
		return time.Time{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastDispatch
}

func (r *RateLimiter) now() time.Time {
	if r != nil && r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}

func (r *RateLimiter) sleep(ctx context.Context, d time.Duration) {
	if r != nil && r.Sleep != nil {
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
