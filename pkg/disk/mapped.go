package disk

import (
	"fmt"
	"io"
	"os"

	"github.com/downfa11-org/mapped-queue/pkg/types"
)

// MappedFile owns an open file and a shared read-write mapping of its first Len() bytes.
// Close unmaps and closes the file on every path and may be called more than once.
type MappedFile struct {
	path   string
	file   *os.File
	m      *mapping
	closed bool
}

// OpenMappedFile opens path read-write, grows it to size when it is shorter and maps
// size bytes. With create set a missing file is created zero-filled.
func OpenMappedFile(path string, size int64, create bool) (*MappedFile, error) {
	if size <= 0 || int64(int(size)) != size {
		return nil, fmt.Errorf("%w: cannot map %d bytes of %s", types.ErrConfiguration, size, path)
	}

	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	// Pre-allocation
	if info.Size() < size {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, fmt.Errorf("truncate %s: %w", path, err)
		}
	}

	m, err := mapFile(f, int(size))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	return &MappedFile{path: path, file: f, m: m}, nil
}

func (f *MappedFile) Path() string {
	return f.path
}

// Bytes exposes the mapping. The slice is invalid after Close.
func (f *MappedFile) Bytes() []byte {
	if f.closed {
		return nil
	}
	return f.m.bytes()
}

func (f *MappedFile) Len() int {
	if f.closed {
		return 0
	}
	return len(f.m.bytes())
}

func (f *MappedFile) At(i int) byte {
	return f.m.bytes()[i]
}

func (f *MappedFile) ReadAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, fmt.Errorf("%w: mapped file %s", types.ErrDisposed, f.path)
	}
	data := f.m.bytes()
	if off < 0 || off > int64(len(data)) {
		return 0, fmt.Errorf("%w: read at %d of %d-byte mapping", types.ErrOutOfRange, off, len(data))
	}
	n := copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *MappedFile) WriteAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, fmt.Errorf("%w: mapped file %s", types.ErrDisposed, f.path)
	}
	data := f.m.bytes()
	if off < 0 || off+int64(len(p)) > int64(len(data)) {
		return 0, fmt.Errorf("%w: write of %d bytes at %d of %d-byte mapping", types.ErrOutOfRange, len(p), off, len(data))
	}
	return copy(data[off:], p), nil
}

// Flush forces dirty pages of the mapping to storage.
func (f *MappedFile) Flush() error {
	if f.closed {
		return fmt.Errorf("%w: mapped file %s", types.ErrDisposed, f.path)
	}
	if err := f.m.flush(); err != nil {
		return fmt.Errorf("flush %s: %w", f.path, err)
	}
	return nil
}

func (f *MappedFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true

	unmapErr := f.m.unmap()
	closeErr := f.file.Close()
	if unmapErr != nil {
		return fmt.Errorf("munmap %s: %w", f.path, unmapErr)
	}
	return closeErr
}
