// Package gbin encodes reflected Go values into a flat, untagged binary form
// and decodes them back, either into owned values or as zero-copy views over
// the source bytes.
//
// The format carries no field names and no type tags. Scalars are written as
// their native bytes, strings and slices as a 4-byte little-endian count
// followed by the elements, fixed arrays as their elements only, and structs
// as their exported fields in declaration order.
package gbin

import (
	"encoding"
	"io"
)

// Sizer reports the exact encoded size, so callers can allocate once.
type Sizer interface {
	Size() int
}

// Marshaler produces the encoding into a new slice, a stream, or a
// caller-owned buffer. MarshalTo reports io.ErrShortWrite when buf is too
// small.
type Marshaler interface {
	encoding.BinaryMarshaler
	io.WriterTo
	MarshalTo(buf []byte) (int, error)
}

// Unmarshaler decodes from a complete slice or from a stream.
type Unmarshaler interface {
	encoding.BinaryUnmarshaler
	io.ReaderFrom
}

// Codec is implemented by Value and List.
type Codec interface {
	Sizer
	Marshaler
	Unmarshaler
}
