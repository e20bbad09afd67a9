package types

import "errors"

// Error taxonomy shared by every queue component. Callers match with errors.Is;
// concrete errors wrap one of these with context.
var (
	// ErrConfiguration reports an invalid store path, segment size or payload size.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrOutOfRange reports an offset outside a segment window or a negative offset.
	ErrOutOfRange = errors.New("offset out of range")
	// ErrInvalidState reports an operation that is not allowed in the current state,
	// e.g. Commit without Consume or AdjustOffset while a segment is open.
	ErrInvalidState = errors.New("invalid state")
	// ErrDisposed reports use of a closed producer, consumer, queue or cursor.
	ErrDisposed = errors.New("object disposed")
)
