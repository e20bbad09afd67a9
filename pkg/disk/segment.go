package disk

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/downfa11-org/mapped-queue/pkg/metrics"
	"github.com/downfa11-org/mapped-queue/pkg/types"
	"github.com/downfa11-org/mapped-queue/util"
	"golang.org/x/exp/mmap"
)

// Locker serializes segment file creation across processes.
type Locker interface {
	Acquire() error
	Release() error
}

type region interface {
	io.ReaderAt
	At(i int) byte
	Len() int
	Close() error
}

// fence is touched with a read-modify-write between the payload and marker accesses.
// The atomic operation keeps payload stores ahead of the marker store on the write
// side and the marker load ahead of the payload loads on the read side.
var fence uint32

func memoryFence() {
	atomic.AddUint32(&fence, 1)
}

// Segment is one fixed-capacity mapped file of record slots.
type Segment struct {
	path         string
	layout       Layout
	startOffset  int64
	lastWritable int64

	region   region
	writable *MappedFile // nil for consumer views
	closed   bool
}

func newSegment(path string, layout Layout, start int64, r region, w *MappedFile) *Segment {
	return &Segment{
		path:         path,
		layout:       layout,
		startOffset:  start,
		lastWritable: layout.AllowedLastOffset(start),
		region:       r,
		writable:     w,
	}
}

func (s *Segment) Path() string {
	return s.path
}

func (s *Segment) StartOffset() int64 {
	return s.startOffset
}

// AllowedLastOffsetToWrite is the offset of the last slot in this segment.
func (s *Segment) AllowedLastOffsetToWrite() int64 {
	return s.lastWritable
}

// EndOffset is the first offset past this segment.
func (s *Segment) EndOffset() int64 {
	return s.startOffset + s.layout.Capacity()
}

func (s *Segment) ItemCount() int64 {
	return s.layout.ItemCount()
}

func (s *Segment) ReadOnly() bool {
	return s.writable == nil
}

func (s *Segment) local(offset int64) (int64, error) {
	if s.closed {
		return 0, fmt.Errorf("%w: segment %s", types.ErrDisposed, s.path)
	}
	if offset < s.startOffset {
		return 0, fmt.Errorf("%w: offset %d must be greater than or equal to the start offset %d",
			types.ErrOutOfRange, offset, s.startOffset)
	}
	if offset > s.lastWritable {
		return 0, fmt.Errorf("%w: offset %d must not exceed the allowed last offset %d",
			types.ErrOutOfRange, offset, s.lastWritable)
	}
	return offset - s.startOffset, nil
}

// Write stores payload at offset and then sets the slot's commit marker.
func (s *Segment) Write(offset int64, payload []byte) error {
	if s.writable == nil {
		return fmt.Errorf("%w: segment %s is read-only", types.ErrInvalidState, s.path)
	}
	local, err := s.local(offset)
	if err != nil {
		return err
	}
	size := s.layout.PayloadSize
	if len(payload) != size {
		return fmt.Errorf("%w: payload has %d bytes, want %d", types.ErrOutOfRange, len(payload), size)
	}

	data := s.writable.Bytes()
	copy(data[local:local+int64(size)], payload)
	memoryFence()
	data[local+int64(size)] = CommittedMarker
	return nil
}

// TryRead copies the payload at offset into dst when its marker is set. A slot that is
// not committed yet returns false without error.
func (s *Segment) TryRead(offset int64, dst []byte) (bool, error) {
	local, err := s.local(offset)
	if err != nil {
		return false, err
	}
	size := s.layout.PayloadSize
	if len(dst) != size {
		return false, fmt.Errorf("%w: read buffer has %d bytes, want %d", types.ErrOutOfRange, len(dst), size)
	}

	if s.region.At(int(local)+size) != CommittedMarker {
		return false, nil
	}
	memoryFence()

	if _, err := s.region.ReadAt(dst, local); err != nil {
		return false, fmt.Errorf("read segment %s at %d: %w", s.path, offset, err)
	}
	return true, nil
}

// Committed counts the slots whose commit marker is set.
func (s *Segment) Committed() int64 {
	if s.closed {
		return 0
	}
	var n int64
	stride := int(s.layout.Stride())
	last := int(s.layout.Capacity())
	for pos := s.layout.PayloadSize; pos < last; pos += stride {
		if s.region.At(pos) == CommittedMarker {
			n++
		}
	}
	return n
}

// Flush forces written slots to storage. Read-only views have nothing to flush.
func (s *Segment) Flush() error {
	if s.closed {
		return fmt.Errorf("%w: segment %s", types.ErrDisposed, s.path)
	}
	if s.writable == nil {
		return nil
	}
	return s.writable.Flush()
}

func (s *Segment) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.region.Close()
}

// FindOrCreate opens the segment holding offset for writing, creating the directory and
// a zero-filled file of the layout's capacity when they do not exist yet.
func FindOrCreate(dir string, layout Layout, offset int64, locker Locker) (*Segment, error) {
	if offset < 0 {
		return nil, fmt.Errorf("%w: negative offset %d", types.ErrOutOfRange, offset)
	}

	start := layout.StartOffset(offset)
	path := filepath.Join(dir, layout.FileName(start))

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		if err := createSegmentFile(dir, path, layout.Capacity(), locker); err != nil {
			return nil, err
		}
	}

	mf, err := OpenMappedFile(path, layout.Capacity(), false)
	if err != nil {
		return nil, err
	}
	return newSegment(path, layout, start, mf, mf), nil
}

// createSegmentFile publishes a fully sized file under its final name with a rename, so a
// reader never maps a short segment.
func createSegmentFile(dir, path string, size int64, locker Locker) (err error) {
	if locker != nil {
		if err := locker.Acquire(); err != nil {
			return fmt.Errorf("acquire segment lock: %w", err)
		}
		defer func() {
			if rerr := locker.Release(); rerr != nil && err == nil {
				err = fmt.Errorf("release segment lock: %w", rerr)
			}
		}()
	}

	// Another process may have created it while we waited for the lock.
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create segment directory %s: %w", dir, err)
	}

	tmp := path + tempSuffix
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("truncate %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publish segment %s: %w", path, err)
	}
	if err := syncDir(dir); err != nil {
		util.Warn("fsync of %s after creating %s failed: %v", dir, filepath.Base(path), err)
	}

	metrics.SegmentsCreated.Inc()
	util.Debug("created segment %s (%d bytes)", path, size)
	return nil
}

// TryFind maps the segment holding offset read-only. It never creates anything: a missing
// or not yet fully sized file reports false.
func TryFind(dir string, layout Layout, offset int64) (*Segment, bool, error) {
	if offset < 0 {
		return nil, false, fmt.Errorf("%w: negative offset %d", types.ErrOutOfRange, offset)
	}

	start := layout.StartOffset(offset)
	path := filepath.Join(dir, layout.FileName(start))

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if info.Size() < layout.Capacity() {
		return nil, false, nil
	}

	r, err := mmap.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("mmap open failed: %w", err)
	}
	if int64(r.Len()) < layout.Capacity() {
		r.Close()
		return nil, false, nil
	}

	return newSegment(path, layout, start, r, nil), true, nil
}
