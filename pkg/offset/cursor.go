package offset

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/downfa11-org/mapped-queue/pkg/disk"
	"github.com/downfa11-org/mapped-queue/pkg/types"
)

// cursorFileSize is the width of the persisted little-endian int64.
const cursorFileSize = 8

// Cursor is a durable offset backed by a small mapped file. Exactly one owner mutates it.
type Cursor struct {
	file   *disk.MappedFile
	value  int64
	closed bool
}

// Open maps the cursor file at path, creating it (and its directory) with value 0.
func Open(path string) (*Cursor, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create offset directory: %w", err)
	}

	f, err := disk.OpenMappedFile(path, cursorFileSize, true)
	if err != nil {
		return nil, fmt.Errorf("open cursor %s: %w", path, err)
	}

	v := int64(binary.LittleEndian.Uint64(f.Bytes()))
	if v < 0 {
		f.Close()
		return nil, fmt.Errorf("%w: cursor %s holds negative offset %d", types.ErrOutOfRange, path, v)
	}
	return &Cursor{file: f, value: v}, nil
}

func (c *Cursor) Path() string {
	return c.file.Path()
}

// Offset returns the current value. It stays readable after Close.
func (c *Cursor) Offset() int64 {
	return c.value
}

// Advance adds delta and writes the result through to the mapping.
func (c *Cursor) Advance(delta int64) error {
	if c.closed {
		return fmt.Errorf("%w: cursor %s", types.ErrDisposed, c.file.Path())
	}
	if delta < 0 {
		return fmt.Errorf("%w: cursor cannot move backwards by %d", types.ErrOutOfRange, delta)
	}
	c.store(c.value + delta)
	return nil
}

// MoveTo overwrites the stored value, optionally forcing it to storage.
func (c *Cursor) MoveTo(v int64, flush bool) error {
	if c.closed {
		return fmt.Errorf("%w: cursor %s", types.ErrDisposed, c.file.Path())
	}
	if v < 0 {
		return fmt.Errorf("%w: negative offset %d", types.ErrOutOfRange, v)
	}
	c.store(v)
	if flush {
		return c.file.Flush()
	}
	return nil
}

func (c *Cursor) Flush() error {
	if c.closed {
		return fmt.Errorf("%w: cursor %s", types.ErrDisposed, c.file.Path())
	}
	return c.file.Flush()
}

func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.file.Close()
}

func (c *Cursor) store(v int64) {
	binary.LittleEndian.PutUint64(c.file.Bytes(), uint64(v))
	c.value = v
}
