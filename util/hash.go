package util

import (
	"fmt"
	"hash/fnv"
)

// HashHex returns the 64-bit FNV-1a hash of key as 16 upper-case hex digits.
// Used to derive OS object names from store paths.
func HashHex(key string) string {
	h := fnv.New64a()
	h.Write([]byte(key))
	return fmt.Sprintf("%016X", h.Sum64())
}
