//go:build unix && !linux

package disk

func adviseSequential([]byte) {}
