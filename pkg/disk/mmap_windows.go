//go:build windows

package disk

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

type mapping struct {
	file   windows.Handle
	handle windows.Handle
	addr   uintptr
	data   []byte
}

func mapFile(f *os.File, size int) (*mapping, error) {
	fh := windows.Handle(f.Fd())
	hi := uint32(uint64(size) >> 32)
	lo := uint32(uint64(size) & 0xFFFFFFFF)

	h, err := windows.CreateFileMapping(fh, nil, windows.PAGE_READWRITE, hi, lo, nil)
	if err != nil {
		return nil, os.NewSyscallError("CreateFileMapping", err)
	}

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(h)
		return nil, os.NewSyscallError("MapViewOfFile", err)
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	return &mapping{file: fh, handle: h, addr: addr, data: data}, nil
}

func (m *mapping) bytes() []byte {
	return m.data
}

func (m *mapping) flush() error {
	if err := windows.FlushViewOfFile(m.addr, uintptr(len(m.data))); err != nil {
		return os.NewSyscallError("FlushViewOfFile", err)
	}
	if err := windows.FlushFileBuffers(m.file); err != nil {
		return os.NewSyscallError("FlushFileBuffers", err)
	}
	return nil
}

func (m *mapping) unmap() error {
	m.data = nil
	if err := windows.UnmapViewOfFile(m.addr); err != nil {
		windows.CloseHandle(m.handle)
		return os.NewSyscallError("UnmapViewOfFile", err)
	}
	return windows.CloseHandle(m.handle)
}

// Directories cannot be fsynced on Windows; renames are durable once MoveFileEx returns.
func syncDir(string) error {
	return nil
}
