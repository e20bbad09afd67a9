package queue

import (
	"errors"
	"fmt"
	"time"

	"github.com/downfa11-org/mapped-queue/pkg/disk"
	"github.com/downfa11-org/mapped-queue/pkg/metrics"
	"github.com/downfa11-org/mapped-queue/pkg/offset"
	"github.com/downfa11-org/mapped-queue/pkg/types"
	"github.com/downfa11-org/mapped-queue/util"
	"github.com/google/uuid"
)

// Producer appends records at its write cursor. It is not safe for concurrent use.
type Producer[T any] struct {
	id         string
	store      string
	dir        string
	layout     disk.Layout
	codec      types.Codec[T]
	locker     disk.Locker
	flushEvery int64

	cursor    *offset.Cursor
	confirmed *offset.Cursor
	segment   *disk.Segment
	buf       []byte

	// unsynced counts records in the open segment written since its last msync,
	// unconfirmed those written since confirmed was last published.
	produced    int64
	unsynced    int64
	unconfirmed int64
	closed      bool
}

func newProducer[T any](store string, layout disk.Layout, codec types.Codec[T], flushEvery int, locker disk.Locker) (*Producer[T], error) {
	if flushEvery <= 0 {
		return nil, fmt.Errorf("%w: force flush interval must be greater than zero, got %d", types.ErrConfiguration, flushEvery)
	}
	cursor, err := offset.Open(offset.ProducerPath(store))
	if err != nil {
		return nil, err
	}
	confirmed, err := offset.Open(offset.ConfirmedPath(store))
	if err != nil {
		cursor.Close()
		return nil, err
	}

	p := &Producer[T]{
		id:         uuid.NewString(),
		store:      store,
		dir:        commitLogDir(store),
		layout:     layout,
		codec:      codec,
		locker:     locker,
		flushEvery: int64(flushEvery),
		cursor:     cursor,
		confirmed:  confirmed,
		buf:        make([]byte, layout.PayloadSize),
	}
	p.publishOffsets()

	util.Info("producer %s opened %s at offset %d (confirmed %d)", p.id, store, cursor.Offset(), confirmed.Offset())
	return p, nil
}

func (p *Producer[T]) ID() string {
	return p.id
}

// Offset is where the next record will be written.
func (p *Producer[T]) Offset() int64 {
	return p.cursor.Offset()
}

// ConfirmedOffset is the write offset as of the last forced flush.
func (p *Producer[T]) ConfirmedOffset() int64 {
	return p.confirmed.Offset()
}

// ProducedCount is the number of records produced by this instance.
func (p *Producer[T]) ProducedCount() int64 {
	return p.produced
}

// AdjustOffset moves the write cursor. It is only allowed while no segment is open,
// i.e. before the first Produce or right after a segment was filled.
func (p *Producer[T]) AdjustOffset(o int64) error {
	if err := p.canAdjust(); err != nil {
		return err
	}
	if o < 0 {
		return fmt.Errorf("%w: offset must be greater than or equal to zero, got %d", types.ErrOutOfRange, o)
	}
	if !p.layout.Aligned(o) {
		util.Warn("producer %s: offset %d is not a multiple of the record stride %d", p.id, o, p.layout.Stride())
	}

	if err := p.cursor.MoveTo(o, true); err != nil {
		return err
	}
	p.publishOffsets()
	util.Info("producer %s: offset adjusted to %d", p.id, o)
	return nil
}

// canAdjust reports why the write cursor cannot be moved right now, if it cannot.
func (p *Producer[T]) canAdjust() error {
	if p.closed {
		return fmt.Errorf("%w: producer %s", types.ErrDisposed, p.id)
	}
	if p.segment != nil {
		return fmt.Errorf("%w: cannot adjust offset while segment %d is open", types.ErrInvalidState, p.segment.StartOffset())
	}
	return nil
}

// Produce encodes item and appends it at the write cursor.
func (p *Producer[T]) Produce(item T) error {
	if p.closed {
		return fmt.Errorf("%w: producer %s", types.ErrDisposed, p.id)
	}
	if err := p.codec.Encode(p.buf, item); err != nil {
		return err
	}
	return p.produce(p.buf)
}

func (p *Producer[T]) produce(payload []byte) error {
	if p.segment == nil {
		if err := p.openSegment(); err != nil {
			return err
		}
	}
	for p.cursor.Offset() > p.segment.AllowedLastOffsetToWrite() {
		if err := p.retireSegment(); err != nil {
			return err
		}
		if err := p.openSegment(); err != nil {
			return err
		}
	}

	if err := p.segment.Write(p.cursor.Offset(), payload); err != nil {
		return err
	}
	return p.commit()
}

func (p *Producer[T]) commit() error {
	if p.segment == nil {
		return fmt.Errorf("%w: segment is not initialized", types.ErrInvalidState)
	}

	if err := p.cursor.Advance(p.layout.Stride()); err != nil {
		return err
	}
	p.produced++
	p.unsynced++
	p.unconfirmed++
	metrics.RecordsProduced.Inc()
	metrics.ProducerOffset.WithLabelValues(p.store).Set(float64(p.cursor.Offset()))

	if p.produced%p.flushEvery == 0 {
		if err := p.forceFlush(); err != nil {
			return err
		}
	}

	if p.cursor.Offset() > p.segment.AllowedLastOffsetToWrite() {
		return p.retireSegment()
	}
	return nil
}

// forceFlush syncs the open segment and publishes the write cursor as confirmed.
func (p *Producer[T]) forceFlush() error {
	start := time.Now()
	if p.segment != nil && p.unsynced > 0 {
		if err := p.segment.Flush(); err != nil {
			util.Error("producer %s: flush of segment %d failed: %v", p.id, p.segment.StartOffset(), err)
			return err
		}
	}
	if err := p.confirmed.MoveTo(p.cursor.Offset(), true); err != nil {
		return err
	}
	p.unsynced = 0
	p.unconfirmed = 0
	metrics.ObserveFlush(start)
	metrics.ConfirmedOffset.WithLabelValues(p.store).Set(float64(p.confirmed.Offset()))
	return nil
}

func (p *Producer[T]) openSegment() error {
	o := p.cursor.Offset()
	if fit := p.layout.Fit(o); fit != o {
		util.Warn("producer %s: no whole record fits at %d, moving to segment %d", p.id, o, fit)
		if err := p.cursor.MoveTo(fit, true); err != nil {
			return err
		}
		o = fit
	}

	seg, err := disk.FindOrCreate(p.dir, p.layout, o, p.locker)
	if err != nil {
		return fmt.Errorf("producer %s: open segment for offset %d: %w", p.id, o, err)
	}
	p.segment = seg
	util.Debug("producer %s: writing segment %s", p.id, seg.Path())
	return nil
}

// retireSegment closes the open segment. Pages written since the last forced flush are
// synced first, so a later confirmed offset never covers unsynced data.
func (p *Producer[T]) retireSegment() error {
	seg := p.segment
	p.segment = nil

	var flushErr error
	if p.unsynced > 0 {
		if flushErr = seg.Flush(); flushErr == nil {
			p.unsynced = 0
		}
	}
	closeErr := seg.Close()

	metrics.SegmentRotations.WithLabelValues("producer").Inc()
	util.Debug("producer %s: retired segment %d", p.id, seg.StartOffset())

	if flushErr != nil {
		return fmt.Errorf("flush retired segment %d: %w", seg.StartOffset(), flushErr)
	}
	return closeErr
}

// Close is a flush point: when records were produced since confirmed was last published
// it syncs the open segment and publishes the write cursor as confirmed. Close is idempotent.
func (p *Producer[T]) Close() error {
	if p.closed {
		return nil
	}

	var errs []error
	if p.unconfirmed > 0 {
		if err := p.forceFlush(); err != nil {
			errs = append(errs, err)
		}
	}
	p.closed = true

	if p.segment != nil {
		if err := p.segment.Close(); err != nil {
			errs = append(errs, err)
		}
		p.segment = nil
	}
	if err := p.cursor.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := p.confirmed.Close(); err != nil {
		errs = append(errs, err)
	}

	util.Info("producer %s closed at offset %d (confirmed %d, produced %d)",
		p.id, p.cursor.Offset(), p.confirmed.Offset(), p.produced)
	return errors.Join(errs...)
}

func (p *Producer[T]) publishOffsets() {
	metrics.ProducerOffset.WithLabelValues(p.store).Set(float64(p.cursor.Offset()))
	metrics.ConfirmedOffset.WithLabelValues(p.store).Set(float64(p.confirmed.Offset()))
}
