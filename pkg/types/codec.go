package types

import (
	"encoding/binary"
	"fmt"
)

// Codec converts an item to and from its fixed-size binary form. The engine never
// looks inside the payload; it only stores Size() bytes per record.
type Codec[T any] interface {
	Size() int
	Encode(dst []byte, v T) error
	Decode(src []byte) (T, error)
}

// BinaryCodec encodes fixed-size values (numbers, arrays and structs of them) with
// encoding/binary.
type BinaryCodec[T any] struct {
	size  int
	order binary.ByteOrder
}

// NewBinaryCodec returns a little-endian codec for T. T must have a fixed binary size.
func NewBinaryCodec[T any]() (*BinaryCodec[T], error) {
	return NewBinaryCodecWithOrder[T](binary.LittleEndian)
}

func NewBinaryCodecWithOrder[T any](order binary.ByteOrder) (*BinaryCodec[T], error) {
	var zero T
	n := binary.Size(zero)
	if n <= 0 {
		return nil, fmt.Errorf("%w: %T has no fixed binary size", ErrConfiguration, zero)
	}
	return &BinaryCodec[T]{size: n, order: order}, nil
}

func (c *BinaryCodec[T]) Size() int {
	return c.size
}

func (c *BinaryCodec[T]) Encode(dst []byte, v T) error {
	if len(dst) != c.size {
		return fmt.Errorf("%w: encode buffer has %d bytes, want %d", ErrOutOfRange, len(dst), c.size)
	}
	if _, err := binary.Encode(dst, c.order, v); err != nil {
		return fmt.Errorf("encode %T: %w", v, err)
	}
	return nil
}

func (c *BinaryCodec[T]) Decode(src []byte) (T, error) {
	var v T
	if len(src) != c.size {
		return v, fmt.Errorf("%w: decode buffer has %d bytes, want %d", ErrOutOfRange, len(src), c.size)
	}
	if _, err := binary.Decode(src, c.order, &v); err != nil {
		return v, fmt.Errorf("decode %T: %w", v, err)
	}
	return v, nil
}

// BytesCodec stores raw payloads of exactly Size() bytes.
type BytesCodec struct {
	size int
}

func NewBytesCodec(size int) (BytesCodec, error) {
	if size <= 0 {
		return BytesCodec{}, fmt.Errorf("%w: payload size must be greater than zero, got %d", ErrConfiguration, size)
	}
	return BytesCodec{size: size}, nil
}

func (c BytesCodec) Size() int {
	return c.size
}

func (c BytesCodec) Encode(dst []byte, v []byte) error {
	if len(v) != c.size || len(dst) != c.size {
		return fmt.Errorf("%w: payload has %d bytes, want %d", ErrOutOfRange, len(v), c.size)
	}
	copy(dst, v)
	return nil
}

func (c BytesCodec) Decode(src []byte) ([]byte, error) {
	if len(src) != c.size {
		return nil, fmt.Errorf("%w: payload has %d bytes, want %d", ErrOutOfRange, len(src), c.size)
	}
	out := make([]byte, c.size)
	copy(out, src)
	return out, nil
}
