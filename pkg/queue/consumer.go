package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/downfa11-org/mapped-queue/pkg/disk"
	"github.com/downfa11-org/mapped-queue/pkg/metrics"
	"github.com/downfa11-org/mapped-queue/pkg/offset"
	"github.com/downfa11-org/mapped-queue/pkg/types"
	"github.com/downfa11-org/mapped-queue/util"
	"github.com/google/uuid"
)

// Consumer reads records at its read cursor. It only maps segments the producer has
// already published and never creates files. It is not safe for concurrent use.
type Consumer[T any] struct {
	id     string
	store  string
	dir    string
	layout disk.Layout
	codec  types.Codec[T]

	cursor  *offset.Cursor
	segment *disk.Segment
	poll    *poller
	buf     []byte

	pending bool
	closed  bool
}

func newConsumer[T any](store string, layout disk.Layout, codec types.Codec[T], poll *poller) (*Consumer[T], error) {
	cursor, err := offset.Open(offset.ConsumerPath(store))
	if err != nil {
		return nil, err
	}

	c := &Consumer[T]{
		id:     uuid.NewString(),
		store:  store,
		dir:    commitLogDir(store),
		layout: layout,
		codec:  codec,
		cursor: cursor,
		poll:   poll,
		buf:    make([]byte, layout.PayloadSize),
	}
	metrics.ConsumerOffset.WithLabelValues(store).Set(float64(cursor.Offset()))

	util.Info("consumer %s opened %s at offset %d", c.id, store, cursor.Offset())
	return c, nil
}

func (c *Consumer[T]) ID() string {
	return c.id
}

// Offset is the position of the next record to consume.
func (c *Consumer[T]) Offset() int64 {
	return c.cursor.Offset()
}

// AdjustOffset moves the read cursor. It is only allowed while no segment is held.
func (c *Consumer[T]) AdjustOffset(o int64) error {
	if c.closed {
		return fmt.Errorf("%w: consumer %s", types.ErrDisposed, c.id)
	}
	if o < 0 {
		return fmt.Errorf("%w: offset must be greater than or equal to zero, got %d", types.ErrOutOfRange, o)
	}
	if c.segment != nil {
		return fmt.Errorf("%w: cannot adjust offset while segment %d is open", types.ErrInvalidState, c.segment.StartOffset())
	}
	if !c.layout.Aligned(o) {
		util.Warn("consumer %s: offset %d is not a multiple of the record stride %d", c.id, o, c.layout.Stride())
	}

	if err := c.cursor.MoveTo(o, true); err != nil {
		return err
	}
	c.pending = false
	metrics.ConsumerOffset.WithLabelValues(c.store).Set(float64(o))
	util.Info("consumer %s: offset adjusted to %d", c.id, o)
	return nil
}

// Consume blocks until the record at the read cursor is committed and returns it.
// Calling it again without Commit returns the same record.
func (c *Consumer[T]) Consume() (T, error) {
	return c.ConsumeContext(context.Background())
}

// ConsumeContext is Consume that gives up with ctx.Err() when ctx ends while waiting.
func (c *Consumer[T]) ConsumeContext(ctx context.Context) (T, error) {
	var zero T
	if c.closed {
		return zero, fmt.Errorf("%w: consumer %s", types.ErrDisposed, c.id)
	}

	c.poll.locate()
	for c.segment == nil {
		found, err := c.locate()
		if err != nil {
			return zero, err
		}
		if found {
			break
		}
		if err := c.poll.wait(ctx); err != nil {
			return zero, err
		}
	}

	c.poll.found()
	for {
		item, ok, err := c.read()
		if err != nil || ok {
			return item, err
		}
		if err := c.poll.wait(ctx); err != nil {
			return zero, err
		}
	}
}

// TryConsume polls once and reports whether a record was available.
func (c *Consumer[T]) TryConsume() (T, bool, error) {
	var zero T
	if c.closed {
		return zero, false, fmt.Errorf("%w: consumer %s", types.ErrDisposed, c.id)
	}

	if c.segment == nil {
		found, err := c.locate()
		if err != nil || !found {
			return zero, false, err
		}
	}
	return c.read()
}

func (c *Consumer[T]) locate() (bool, error) {
	o := c.cursor.Offset()
	if fit := c.layout.Fit(o); fit != o {
		util.Warn("consumer %s: no whole record fits at %d, moving to segment %d", c.id, o, fit)
		if err := c.cursor.MoveTo(fit, true); err != nil {
			return false, err
		}
		o = fit
	}

	seg, found, err := disk.TryFind(c.dir, c.layout, o)
	if err != nil {
		return false, fmt.Errorf("consumer %s: find segment for offset %d: %w", c.id, o, err)
	}
	if !found {
		return false, nil
	}
	c.segment = seg
	util.Debug("consumer %s: reading segment %s", c.id, seg.Path())
	return true, nil
}

func (c *Consumer[T]) read() (T, bool, error) {
	var zero T
	ok, err := c.segment.TryRead(c.cursor.Offset(), c.buf)
	if err != nil || !ok {
		return zero, false, err
	}

	item, err := c.codec.Decode(c.buf)
	if err != nil {
		return zero, false, err
	}
	c.pending = true
	return item, true, nil
}

// Commit advances the read cursor past the record returned by the last consume.
func (c *Consumer[T]) Commit() error {
	if c.closed {
		return fmt.Errorf("%w: consumer %s", types.ErrDisposed, c.id)
	}
	if c.segment == nil || !c.pending {
		return fmt.Errorf("%w: no consumed record to commit, call Consume before Commit", types.ErrInvalidState)
	}

	if err := c.cursor.Advance(c.layout.Stride()); err != nil {
		return err
	}
	c.pending = false
	metrics.RecordsConsumed.Inc()
	metrics.ConsumerOffset.WithLabelValues(c.store).Set(float64(c.cursor.Offset()))

	if c.cursor.Offset() > c.segment.AllowedLastOffsetToWrite() {
		seg := c.segment
		c.segment = nil
		metrics.SegmentRotations.WithLabelValues("consumer").Inc()
		util.Debug("consumer %s: finished segment %d", c.id, seg.StartOffset())
		return seg.Close()
	}
	return nil
}

// Close releases the held segment and the read cursor. Close is idempotent.
func (c *Consumer[T]) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if c.segment != nil {
		if err := c.segment.Close(); err != nil {
			errs = append(errs, err)
		}
		c.segment = nil
	}
	if err := c.cursor.Close(); err != nil {
		errs = append(errs, err)
	}

	util.Info("consumer %s closed at offset %d", c.id, c.cursor.Offset())
	return errors.Join(errs...)
}
