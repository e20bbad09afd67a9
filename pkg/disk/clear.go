package disk

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ClearMarkers resets the commit marker of every slot in [from, to) that lives in an
// existing segment and flushes the touched segments. It returns the number of markers
// that were set. Missing segments are skipped; nothing is created.
func ClearMarkers(dir string, layout Layout, from, to int64) (int64, error) {
	if from < 0 || to < from {
		return 0, fmt.Errorf("invalid marker range [%d, %d)", from, to)
	}

	var cleared int64
	for start := layout.StartOffset(from); start < to; start += layout.Capacity() {
		path := filepath.Join(dir, layout.FileName(start))
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return cleared, err
		}

		n, err := clearSegment(path, layout, start, max(from, start), min(to, start+layout.Capacity()))
		cleared += n
		if err != nil {
			return cleared, err
		}
	}
	return cleared, nil
}

func clearSegment(path string, layout Layout, start, from, to int64) (int64, error) {
	mf, err := OpenMappedFile(path, layout.Capacity(), false)
	if err != nil {
		return 0, err
	}
	defer mf.Close()

	data := mf.Bytes()
	stride := layout.Stride()
	last := layout.AllowedLastOffset(start)

	var n int64
	for off := from; off < to && off <= last; off += stride {
		pos := off - start + int64(layout.PayloadSize)
		if data[pos] == CommittedMarker {
			data[pos] = 0
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, mf.Flush()
}
