// Package poll provides a deadline-bounded, fixed-interval wait loop with a
// pluggable clock so callers can be tested without real sleeps.
package poll

import (
	"context"
	"time"
)

type Outcome int

const (
	Ready Outcome = iota
	TimedOut
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Ready:
		return "ready"
	case TimedOut:
		return "timed_out"
	}
	return "failed"
}

type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type wallClock struct{}

// WallClock is the real-time Clock.
func WallClock() Clock {
	return wallClock{}
}

func (wallClock) Now() time.Time {
	return time.Now()
}

func (wallClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CheckFunc reports whether the awaited condition holds. A non-nil error ends
// the wait with Failed; transient errors should be swallowed by the check.
type CheckFunc func(ctx context.Context) (bool, error)

type Waiter struct {
	Interval time.Duration
	Timeout  time.Duration
	Clock    Clock
}

func NewWaiter(interval, timeout time.Duration, clock Clock) *Waiter {
	if clock == nil {
		clock = WallClock()
	}
	return &Waiter{Interval: interval, Timeout: timeout, Clock: clock}
}

// Wait checks immediately, then once per interval, until the check reports
// done, fails, or the deadline passes. The deadline is evaluated after every
// check, so the loop never sleeps past it by more than one interval.
func (w *Waiter) Wait(ctx context.Context, check CheckFunc) (Outcome, error) {
	deadline := w.Clock.Now().Add(w.Timeout)

	for {
		done, err := check(ctx)
		if err != nil {
			return Failed, err
		}
		if done {
			return Ready, nil
		}

		now := w.Clock.Now()
		if !now.Before(deadline) {
			return TimedOut, nil
		}

		wait := w.Interval
		if remaining := deadline.Sub(now); remaining < wait {
			wait = remaining
		}
		if err := w.Clock.Sleep(ctx, wait); err != nil {
			return Failed, err
		}
	}
}
