package gbin

import (
	"fmt"
	"io"
)

// Value wraps any encodable T as a Codec, so plain structs can be used
// wherever a Sizer, Marshaler or Unmarshaler is expected.
type Value[T any] struct {
	V T
}

// Statically assert that Value implements Codec.
var _ Codec = (*Value[struct{}])(nil)

// Size returns the encoded size of V, or -1 if T cannot be encoded.
func (c *Value[T]) Size() int {
	n, err := Size(&c.V)
	if err != nil {
		return -1
	}
	return n
}

// MarshalBinary implements the encoding.BinaryMarshaler interface.
func (c *Value[T]) MarshalBinary() ([]byte, error) {
	return Marshal(&c.V)
}

// MarshalTo encodes V into p, returning io.ErrShortWrite if p is too small.
func (c *Value[T]) MarshalTo(p []byte) (int, error) {
	if size := c.Size(); size > len(p) {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", io.ErrShortWrite, size, len(p))
	}
	return MarshalTo(p, &c.V)
}

// WriteTo implements io.WriterTo.
func (c *Value[T]) WriteTo(w io.Writer) (int64, error) {
	return WriteTo(w, &c.V)
}

// UnmarshalBinary implements the encoding.BinaryUnmarshaler interface. The
// result owns its memory and trailing bytes must be zero padding.
func (c *Value[T]) UnmarshalBinary(data []byte) error {
	return Unmarshal(data, &c.V)
}

// ReadFrom implements io.ReaderFrom.
func (c *Value[T]) ReadFrom(r io.Reader) (int64, error) {
	return ReadFrom(r, &c.V)
}
