package offset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	Dir           = "offset"
	ProducerFile  = "producer.offset"
	ConfirmedFile = "producer.confirmed.offset"
	ConsumerFile  = "consumer.offset"
)

// Snapshot holds the three cursors of a store as last persisted.
type Snapshot struct {
	Producer  int64 `json:"producer" yaml:"producer"`
	Confirmed int64 `json:"confirmed" yaml:"confirmed"`
	Consumer  int64 `json:"consumer" yaml:"consumer"`
}

// Lag is the number of bytes written but not yet consumed.
func (s Snapshot) Lag() int64 {
	if s.Producer < s.Consumer {
		return 0
	}
	return s.Producer - s.Consumer
}

// Unconfirmed is the number of bytes written since the last durable flush.
func (s Snapshot) Unconfirmed() int64 {
	if s.Producer < s.Confirmed {
		return 0
	}
	return s.Producer - s.Confirmed
}

// ProducerPath, ConfirmedPath and ConsumerPath locate the cursor files under a store.
func ProducerPath(storePath string) string {
	return filepath.Join(storePath, Dir, ProducerFile)
}

func ConfirmedPath(storePath string) string {
	return filepath.Join(storePath, Dir, ConfirmedFile)
}

func ConsumerPath(storePath string) string {
	return filepath.Join(storePath, Dir, ConsumerFile)
}

// ReadSnapshot reads the cursor files with plain file I/O. Missing files read as 0, so
// inspecting a store never creates anything in it.
func ReadSnapshot(storePath string) (Snapshot, error) {
	var s Snapshot
	var err error

	if s.Producer, err = readCursorFile(ProducerPath(storePath)); err != nil {
		return Snapshot{}, err
	}
	if s.Confirmed, err = readCursorFile(ConfirmedPath(storePath)); err != nil {
		return Snapshot{}, err
	}
	if s.Consumer, err = readCursorFile(ConsumerPath(storePath)); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

func readCursorFile(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	if len(data) < cursorFileSize {
		return 0, fmt.Errorf("cursor file %s is truncated: %d bytes", path, len(data))
	}
	return int64(binary.LittleEndian.Uint64(data[:cursorFileSize])), nil
}
