package queue

import (
	"context"
	"runtime"
	"time"

	"github.com/downfa11-org/mapped-queue/pkg/metrics"
)

// Clock is the time source of the consumer's wait loop.
type Clock interface {
	Now() time.Time
	// Sleep pauses for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type pollState int

const (
	stateLocating pollState = iota
	stateSpinning
	stateSleeping
)

func (s pollState) String() string {
	switch s {
	case stateLocating:
		return "locating"
	case stateSpinning:
		return "spinning"
	case stateSleeping:
		return "sleeping"
	default:
		return "unknown"
	}
}

// poller decides how the consumer waits after a miss. While the segment is missing it
// sleeps retry between attempts. Once the segment is held it busy-polls, yielding the
// processor, for up to spin and then sleeps retry between polls.
type poller struct {
	clock     Clock
	yield     func()
	retry     time.Duration
	spin      time.Duration
	state     pollState
	spinStart time.Time
}

func newPoller(clock Clock, retry, spin time.Duration) *poller {
	return &poller{clock: clock, yield: runtime.Gosched, retry: retry, spin: spin}
}

func (p *poller) locate() {
	p.state = stateLocating
}

func (p *poller) found() {
	p.state = stateSpinning
	p.spinStart = p.clock.Now()
}

func (p *poller) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch p.state {
	case stateSpinning:
		if p.clock.Now().Sub(p.spinStart) <= p.spin {
			p.yield()
			return nil
		}
		p.state = stateSleeping
		fallthrough
	case stateSleeping:
		metrics.ConsumerWaits.WithLabelValues(stateSleeping.String()).Inc()
	default:
		metrics.ConsumerWaits.WithLabelValues(stateLocating.String()).Inc()
	}
	return p.clock.Sleep(ctx, p.retry)
}
