package disk

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

// SegmentInfo describes one segment file found on disk.
type SegmentInfo struct {
	Name        string
	Path        string
	StartOffset int64
	Size        int64
}

// ListSegments returns the segment files of dir in start-offset order. Temporary files of
// an interrupted creation are skipped. A missing directory yields no segments.
func ListSegments(dir string) ([]SegmentInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	segments := make([]SegmentInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || len(e.Name()) != segmentNameWidth {
			continue
		}
		start, err := strconv.ParseInt(e.Name(), 10, 64)
		if err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		segments = append(segments, SegmentInfo{
			Name:        e.Name(),
			Path:        filepath.Join(dir, e.Name()),
			StartOffset: start,
			Size:        info.Size(),
		})
	}
	return segments, nil
}
