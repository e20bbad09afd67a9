package disk

import (
	"fmt"
	"math"

	"github.com/downfa11-org/mapped-queue/pkg/types"
)

const (
	// MarkerSize is the width of the commit marker that follows every payload.
	MarkerSize = 1
	// CommittedMarker flags a slot whose payload is completely written.
	CommittedMarker byte = 0xFF

	segmentNameWidth = 20
	tempSuffix       = ".tmp"
)

// Layout derives segment geometry from the payload size and the nominal segment size.
// Producer and consumer compute segment boundaries from a Layout and their own offset
// only, so no segment metadata is ever stored.
type Layout struct {
	PayloadSize int
	SegmentSize int64
}

func NewLayout(payloadSize int, segmentSize int64) (Layout, error) {
	if payloadSize <= 0 {
		return Layout{}, fmt.Errorf("%w: payload size must be greater than zero, got %d", types.ErrConfiguration, payloadSize)
	}
	if segmentSize <= 0 {
		return Layout{}, fmt.Errorf("%w: segment size must be greater than zero, got %d", types.ErrConfiguration, segmentSize)
	}

	l := Layout{PayloadSize: payloadSize, SegmentSize: segmentSize}
	if l.ItemCount() == 0 {
		return Layout{}, fmt.Errorf("%w: segment size %d cannot hold a single %d-byte record",
			types.ErrConfiguration, segmentSize, l.Stride())
	}
	if l.Capacity() > math.MaxInt {
		return Layout{}, fmt.Errorf("%w: segment capacity %d exceeds addressable memory", types.ErrConfiguration, l.Capacity())
	}
	return l, nil
}

// Stride is the on-disk size of one record slot.
func (l Layout) Stride() int64 {
	return int64(l.PayloadSize) + MarkerSize
}

// ItemCount is the number of whole slots a segment holds.
func (l Layout) ItemCount() int64 {
	return l.SegmentSize / l.Stride()
}

// Capacity is the effective segment size, rounded down to a whole number of slots.
func (l Layout) Capacity() int64 {
	return l.ItemCount() * l.Stride()
}

// StartOffset returns the start offset of the segment containing offset.
func (l Layout) StartOffset(offset int64) int64 {
	c := l.Capacity()
	return offset / c * c
}

// AllowedLastOffset is the last slot offset of the segment starting at start.
func (l Layout) AllowedLastOffset(start int64) int64 {
	return start + (l.ItemCount()-1)*l.Stride()
}

// Aligned reports whether offset falls on a slot boundary.
func (l Layout) Aligned(offset int64) bool {
	return offset%l.Stride() == 0
}

// FileName is the zero-padded decimal start offset; it sorts lexically by offset.
func (l Layout) FileName(start int64) string {
	return fmt.Sprintf("%0*d", segmentNameWidth, start)
}

// Fit returns offset when a whole record fits at it, otherwise the start of the next
// segment. A record never straddles two segment files.
func (l Layout) Fit(offset int64) int64 {
	start := l.StartOffset(offset)
	if offset > l.AllowedLastOffset(start) {
		return start + l.Capacity()
	}
	return offset
}
