package types

import "context"

// Producer appends fixed-size records to a queue.
type Producer[T any] interface {
	// Offset is the byte offset the next record will be written at.
	Offset() int64
	// ConfirmedOffset is the last offset known to be flushed to storage.
	ConfirmedOffset() int64
	AdjustOffset(offset int64) error
	Produce(item T) error
	Close() error
}

// Consumer reads records in offset order. Consume blocks until a committed record is
// available; Commit advances past it.
type Consumer[T any] interface {
	// Offset is the byte offset of the next record to consume.
	Offset() int64
	AdjustOffset(offset int64) error
	Consume() (T, error)
	ConsumeContext(ctx context.Context) (T, error)
	TryConsume() (T, bool, error)
	Commit() error
	Close() error
}
