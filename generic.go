package gbin

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"slices"
)

// Marshal returns the encoding of v in a newly allocated slice.
func Marshal(v any) ([]byte, error) {
	return Append(nil, v)
}

// Append appends the encoding of v to dst and returns the extended slice.
// dst grows as needed, so capacity is never exceeded.
func Append(dst []byte, v any) ([]byte, error) {
	size, err := Size(v)
	if err != nil {
		return dst, err
	}
	dst = slices.Grow(dst, size)
	w := NewBytesWriter(dst[len(dst) : len(dst)+size : len(dst)+size])
	n, err := encodeTo(w, v)
	if err != nil {
		return dst, err
	}
	if n != int64(size) {
		return dst, fmt.Errorf("%w: expected %d bytes, wrote %d", io.ErrShortWrite, size, n)
	}
	return dst[:len(dst)+size], nil
}

// MarshalTo encodes v into the fixed-capacity buffer p and returns the number
// of bytes written. A buffer that is too small yields io.ErrShortWrite.
func MarshalTo(p []byte, v any) (int, error) {
	n, err := encodeTo(NewBytesWriter(p[:len(p):len(p)]), v)
	return int(n), err
}

// WriteTo encodes v to w. Values are built up in a pooled buffer and handed
// to w in a single Write.
func WriteTo(w io.Writer, v any) (int64, error) {
	if w == nil {
		return 0, ErrWriteToNil
	}
	buf := bytesBufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bytesBufPool.Put(buf)

	if _, err := encodeTo(buf, v); err != nil {
		return 0, err
	}
	n, err := w.Write(buf.Bytes())
	if err == nil && n < buf.Len() {
		err = io.ErrShortWrite
	}
	return int64(n), err
}

func encodeTo(w io.Writer, v any) (int64, error) {
	enc, err := NewEncoder(w)
	if err != nil {
		return 0, err
	}
	err = enc.Encode(v)
	return enc.Count(), err
}

// Unmarshal decodes data into the value ptr points to. Every string and
// slice in the result owns its memory. Bytes left after the value must be
// zero padding, otherwise ErrTrailingData is returned.
func Unmarshal(data []byte, ptr any) error {
	span := NewBytesReader(data)
	dec, _ := NewDecoder(span)
	if err := dec.Decode(ptr); err != nil {
		return err
	}
	return CheckBufferNotZeros(span.Bytes())
}

// UnmarshalView is Unmarshal in zero-copy mode: strings and fixed-layout
// slices in the result alias data.
func UnmarshalView(data []byte, ptr any) error {
	span := NewBytesReader(data)
	if err := NewViewDecoder(span).Decode(ptr); err != nil {
		return err
	}
	return CheckBufferNotZeros(span.Bytes())
}

// Decode is the generic form of Unmarshal.
func Decode[T any](data []byte) (T, error) {
	var v T
	err := Unmarshal(data, &v)
	return v, err
}

// View is the generic form of UnmarshalView. The result must not outlive data.
func View[T any](data []byte) (T, error) {
	var v T
	err := UnmarshalView(data, &v)
	return v, err
}

// ReadFrom decodes one value from r into the value ptr points to.
//
// Readers that can be consumed exactly (*BytesReader, *Reader,
// *bufio.Reader) are decoded in place and left positioned after the value.
// Any other reader is drained after the value, and what follows must be zero
// padding, as with Unmarshal.
func ReadFrom(r io.Reader, ptr any) (int64, error) {
	if src, ok := r.(*BytesReader); ok {
		start := src.N
		dec, _ := NewDecoder(src)
		err := dec.Decode(ptr)
		return int64(src.N - start), err
	}

	rd, err := NewReader(r)
	if err != nil {
		return 0, err
	}
	dec, _ := NewDecoder(rd)
	if err := dec.Decode(ptr); err != nil {
		return rd.Count(), err
	}
	switch r.(type) {
	case *Reader, *bufio.Reader:
		return rd.Count(), nil
	}
	n := rd.Count()
	return n, CheckTrailingNotZeros(rd)
}
