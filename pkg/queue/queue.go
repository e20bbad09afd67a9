package queue

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/downfa11-org/mapped-queue/pkg/config"
	"github.com/downfa11-org/mapped-queue/pkg/disk"
	"github.com/downfa11-org/mapped-queue/pkg/lock"
	"github.com/downfa11-org/mapped-queue/pkg/offset"
	"github.com/downfa11-org/mapped-queue/pkg/types"
	"github.com/downfa11-org/mapped-queue/util"
	"github.com/google/uuid"
)

const (
	CommitLogDir = "commitlog"
	// LockName guards segment creation in the commit log of a store.
	LockName = "commitlog"
)

func commitLogDir(store string) string {
	return filepath.Join(store, CommitLogDir)
}

// Option customizes a Queue.
type Option func(*options)

type options struct {
	clock Clock
	lock  lock.ProcessLock
}

// WithClock replaces the consumer's time source.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithProcessLock replaces the platform lock that serializes segment creation.
func WithProcessLock(l lock.ProcessLock) Option {
	return func(o *options) { o.lock = l }
}

// Queue binds one producer and one consumer to a store directory. Both are created on
// first access and closed with the queue.
type Queue[T any] struct {
	mu     sync.Mutex
	id     uuid.UUID
	cfg    config.Config
	codec  types.Codec[T]
	layout disk.Layout
	opts   options

	producer *Producer[T]
	consumer *Consumer[T]
	closed   bool
}

// New validates cfg and creates the store directory.
func New[T any](cfg *config.Config, codec types.Codec[T], opts ...Option) (*Queue[T], error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is required", types.ErrConfiguration)
	}
	if codec == nil {
		return nil, fmt.Errorf("%w: codec is required", types.ErrConfiguration)
	}

	c := *cfg
	c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}

	layout, err := disk.NewLayout(codec.Size(), c.SegmentSize)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(c.StorePath, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create store %s: %v", types.ErrConfiguration, c.StorePath, err)
	}

	o := options{clock: realClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.lock == nil {
		if o.lock, err = lock.New(LockName, c.StorePath); err != nil {
			return nil, err
		}
	}

	q := &Queue[T]{
		id:     uuid.New(),
		cfg:    c,
		codec:  codec,
		layout: layout,
		opts:   o,
	}
	util.Debug("queue %s: store %s, %d-byte records, %d records per segment, %s lock",
		q.id, c.StorePath, layout.Stride(), layout.ItemCount(), o.lock.Kind())
	return q, nil
}

func (q *Queue[T]) ID() uuid.UUID {
	return q.id
}

func (q *Queue[T]) Layout() disk.Layout {
	return q.layout
}

// Config returns the normalized configuration the queue runs with.
func (q *Queue[T]) Config() config.Config {
	return q.cfg
}

// Producer returns the queue's producer, opening it on first use.
func (q *Queue[T]) Producer() (*Producer[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, fmt.Errorf("%w: queue %s", types.ErrDisposed, q.id)
	}
	if q.producer == nil {
		p, err := newProducer(q.cfg.StorePath, q.layout, q.codec, q.cfg.ProducerForceFlushIntervalCount, q.opts.lock)
		if err != nil {
			return nil, err
		}
		q.producer = p
	}
	return q.producer, nil
}

// Consumer returns the queue's consumer, opening it on first use.
func (q *Queue[T]) Consumer() (*Consumer[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, fmt.Errorf("%w: queue %s", types.ErrDisposed, q.id)
	}
	if q.consumer == nil {
		poll := newPoller(q.opts.clock, q.cfg.ConsumerRetryInterval, q.cfg.ConsumerSpinWaitDuration)
		c, err := newConsumer(q.cfg.StorePath, q.layout, q.codec, poll)
		if err != nil {
			return nil, err
		}
		q.consumer = c
	}
	return q.consumer, nil
}

// RecoverProducer rolls the write cursor back to max(confirmed offset, consumer offset)
// after an unclean shutdown and clears the commit markers of the abandoned records so
// the consumer cannot read them before they are overwritten. It must run before the
// first Produce and returns the resulting write offset.
func (q *Queue[T]) RecoverProducer() (int64, error) {
	p, err := q.Producer()
	if err != nil {
		return 0, err
	}
	if err := p.canAdjust(); err != nil {
		return p.Offset(), err
	}

	snap, err := offset.ReadSnapshot(q.cfg.StorePath)
	if err != nil {
		return 0, err
	}
	target := max(p.ConfirmedOffset(), snap.Consumer)
	current := p.Offset()
	if target == current {
		return current, nil
	}

	if target < current {
		cleared, err := disk.ClearMarkers(commitLogDir(q.cfg.StorePath), q.layout, target, current)
		if err != nil {
			return current, fmt.Errorf("clear abandoned records: %w", err)
		}
		util.Warn("queue %s: rolling producer back from %d to %d, %d unconfirmed records dropped",
			q.id, current, target, cleared)
	}
	if err := p.AdjustOffset(target); err != nil {
		return current, err
	}
	return target, nil
}

// Close closes the producer and consumer. Close is idempotent.
func (q *Queue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true

	var errs []error
	if q.producer != nil {
		if err := q.producer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if q.consumer != nil {
		if err := q.consumer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := q.opts.lock.Release(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

var (
	_ types.Producer[[]byte] = (*Producer[[]byte])(nil)
	_ types.Consumer[[]byte] = (*Consumer[[]byte])(nil)
)
