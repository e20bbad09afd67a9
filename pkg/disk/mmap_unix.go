//go:build unix

package disk

import (
	"os"

	"golang.org/x/sys/unix"
)

type mapping struct {
	data []byte
}

func mapFile(f *os.File, size int) (*mapping, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	adviseSequential(data)
	return &mapping{data: data}, nil
}

func (m *mapping) bytes() []byte {
	return m.data
}

func (m *mapping) flush() error {
	return unix.Msync(m.data, unix.MS_SYNC)
}

func (m *mapping) unmap() error {
	data := m.data
	m.data = nil
	return unix.Munmap(data)
}

// syncDir makes a rename inside dir durable.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
