package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
	// step is added to now on every Now call to simulate spinning time.
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func TestPoller_LocatingSleepsRetry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	p := newPoller(clock, time.Second, 100*time.Millisecond)
	p.yield = func() { t.Fatal("locating must not spin") }

	p.locate()
	for i := 0; i < 3; i++ {
		require.NoError(t, p.wait(context.Background()))
	}

	assert.Equal(t, stateLocating, p.state)
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, clock.sleeps)
}

func TestPoller_SpinsThenSleeps(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0), step: 30 * time.Millisecond}
	p := newPoller(clock, 500*time.Millisecond, 100*time.Millisecond)
	yields := 0
	p.yield = func() { yields++ }

	p.found()
	for i := 0; i < 5; i++ {
		require.NoError(t, p.wait(context.Background()))
	}

	// Now advances 30ms per call: 30, 60, 90 spin; 120 exceeds the spin budget.
	assert.Equal(t, 3, yields)
	assert.Equal(t, stateSleeping, p.state)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 500 * time.Millisecond}, clock.sleeps)
}

func TestPoller_ZeroSpinSleepsImmediately(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0), step: time.Nanosecond}
	p := newPoller(clock, time.Millisecond, 0)
	p.yield = func() { t.Fatal("zero spin duration must not spin") }

	p.found()
	require.NoError(t, p.wait(context.Background()))
	assert.Equal(t, stateSleeping, p.state)
	assert.Len(t, clock.sleeps, 1)
}

func TestPoller_ContextCanceled(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	p := newPoller(clock, time.Second, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p.found()
	err := p.wait(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, clock.sleeps)
}

func TestPollState_String(t *testing.T) {
	assert.Equal(t, "locating", stateLocating.String())
	assert.Equal(t, "spinning", stateSpinning.String())
	assert.Equal(t, "sleeping", stateSleeping.String())
}
