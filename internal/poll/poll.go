// Package poll repeats a check until it succeeds or a deadline passes.
package poll

import (
	"context"
	"time"
)

// Check reports whether the awaited condition holds.
type Check func(ctx context.Context) bool

// Outcome describes a finished poll.
type Outcome struct {
	Attempts  int
	Satisfied bool
	Elapsed   time.Duration
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Poller runs checks against a clock.
type Poller struct {
	Clock Clock
}

// Until calls check until it succeeds or timeout has passed since the
// call. The deadline is fixed up front, so a slow check eats into the
// remaining budget. A cancelled context ends the poll unsatisfied.
func (p Poller) Until(ctx context.Context, timeout, interval time.Duration, check Check) Outcome {
	clock := p.clock()
	start := clock.Now()
	deadline := start.Add(timeout)
	var out Outcome

	for clock.Now().Before(deadline) {
		if ctx.Err() != nil {
			break
		}
		out.Attempts++
		if check(ctx) {
			out.Satisfied = true
			break
		}

		select {
		case <-clock.After(interval):
		case <-ctx.Done():
		}
	}

	out.Elapsed = clock.Now().Sub(start)
	return out
}

func (p Poller) clock() Clock {
	if p.Clock == nil {
		return realClock{}
	}
	return p.Clock
}
