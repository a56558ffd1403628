package poll

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock advances only when After is called or a check moves it.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func TestUntilSatisfiedImmediately(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	out := Poller{Clock: clock}.Until(context.Background(), 20*time.Second, 2*time.Second,
		func(context.Context) bool { return true })

	assert.True(t, out.Satisfied)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, time.Duration(0), out.Elapsed)
}

func TestUntilSatisfiedAfterAttempts(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	calls := 0
	out := Poller{Clock: clock}.Until(context.Background(), 20*time.Second, 2*time.Second,
		func(context.Context) bool {
			calls++
			return calls == 3
		})

	assert.True(t, out.Satisfied)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 4*time.Second, out.Elapsed)
}

func TestUntilTimeout(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	out := Poller{Clock: clock}.Until(context.Background(), 20*time.Second, 2*time.Second,
		func(context.Context) bool { return false })

	assert.False(t, out.Satisfied)
	// checks at t=0,2,...,18
	assert.Equal(t, 10, out.Attempts)
	assert.Equal(t, 20*time.Second, out.Elapsed)
}

func TestUntilSlowCheckUsesFixedDeadline(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	out := Poller{Clock: clock}.Until(context.Background(), 10*time.Second, time.Second,
		func(context.Context) bool {
			clock.now = clock.now.Add(4 * time.Second)
			return false
		})

	// t=0 check ends at 4, sleep to 5; check ends at 9, sleep to 10; deadline reached
	assert.Equal(t, 2, out.Attempts)
	assert.False(t, out.Satisfied)
}

func TestUntilZeroTimeoutNeverChecks(t *testing.T) {
	out := Poller{}.Until(context.Background(), 0, time.Second, func(context.Context) bool {
		t.Fatal("check must not run")
		return true
	})
	assert.Equal(t, 0, out.Attempts)
	assert.False(t, out.Satisfied)
}

func TestUntilContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	out := Poller{}.Until(ctx, time.Minute, 10*time.Millisecond, func(context.Context) bool {
		calls++
		if calls == 2 {
			cancel()
		}
		return false
	})
	assert.False(t, out.Satisfied)
	assert.Equal(t, 2, out.Attempts)
}

func TestUntilNegativeTimeout(t *testing.T) {
	clock := &fakeClock{now: time.Unix(100, 0)}
	out := Poller{Clock: clock}.Until(context.Background(), -time.Second, time.Second,
		func(context.Context) bool { return true })
	assert.Equal(t, 0, out.Attempts)
}
