//go:build linux

package disk

import "golang.org/x/sys/unix"

// Linux: sequential access hint
func adviseSequential(data []byte) {
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
}
