package gbin

import (
	"fmt"
	"io"
	"math"
	"unsafe"
)

// BytesReader is the input span: an immutable, bounds-checked view over a
// byte slice with a read cursor. Next hands out sub-slices of B, never
// copies, which is what lets the view decoder alias the source.
//
// A BytesReader and everything decoded from it in view mode must not
// outlive B (for example a memory-mapped file region).
type BytesReader struct {
	B []byte // source slice
	N int    // current read position
}

func NewBytesReader(b []byte) *BytesReader {
	return &BytesReader{B: b}
}

// Close is a no-op; the span does not own B.
func (r *BytesReader) Close() error { return nil }

func (r *BytesReader) Read(p []byte) (int, error) {
	if r.N >= len(r.B) {
		return 0, io.EOF
	}
	n := copy(p, r.B[r.N:])
	r.N += n
	return n, nil
}

func (r *BytesReader) ReadByte() (byte, error) {
	if r.N >= len(r.B) {
		return 0, io.EOF
	}
	b := r.B[r.N]
	r.N++
	return b, nil
}

// WriteTo hands the unread part of the span to w in one Write.
func (r *BytesReader) WriteTo(w io.Writer) (int64, error) {
	if r.N >= len(r.B) {
		return 0, nil
	}

	b := r.B[r.N:]
	n, err := w.Write(b)
	if n < 0 || n > len(b) {
		return int64(n), ErrInvalidRead
	}
	r.N += n
	return int64(n), err
}

// Seek moves the cursor. Positions past the end are allowed and read as EOF.
func (r *BytesReader) Seek(offset int64, whence int) (int64, error) {
	base := int64(0)
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(r.N)
	case io.SeekEnd:
		base = int64(len(r.B))
	default:
		return 0, ErrInvalidWhence
	}
	pos := base + offset
	if pos < 0 || pos > math.MaxInt {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSeek, pos)
	}
	r.N = int(pos)
	return pos, nil
}

// Next returns the next n bytes as a sub-slice of B and advances the
// cursor. The result's capacity is clamped to n so appends cannot
// overwrite the bytes that follow.
func (r *BytesReader) Next(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrTruncatedData, n)
	}
	if n == 0 {
		return nil, nil
	}
	if n > r.Available() {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncatedData, n, r.N, r.Available())
	}
	b := r.B[r.N : r.N+n : r.N+n]
	r.N += n
	return b, nil
}

// ReadCount reads a little-endian uint32 length prefix.
func (r *BytesReader) ReadCount() (int, error) {
	b, err := r.Next(CountSize)
	if err != nil {
		return 0, err
	}
	return countToInt(LE.Uint32(b))
}

// countToInt converts a count prefix, rejecting values int cannot hold on
// 32-bit platforms.
func countToInt(c uint32) (int, error) {
	if uint64(c) > math.MaxInt {
		return 0, fmt.Errorf("%w: count %d exceeds the platform int", ErrTruncatedData, c)
	}
	return int(c), nil
}

// Align advances the cursor to the next multiple of n, measured from the
// start of B.
func (r *BytesReader) Align(n int) {
	if n > 1 {
		r.N = min(Roundup(r.N, n), len(r.B))
	}
}

// Contains reports whether p points into B. It is how callers check that a
// decoded view aliases this span.
func (r *BytesReader) Contains(p unsafe.Pointer) bool {
	if len(r.B) == 0 || p == nil {
		return false
	}
	base := uintptr(unsafe.Pointer(unsafe.SliceData(r.B)))
	addr := uintptr(p)
	return addr >= base && addr < base+uintptr(len(r.B))
}

func (r *BytesReader) remaining() int { return r.Available() }

// Reset rewinds the cursor to the start of the span.
func (r *BytesReader) Reset() { r.N = 0 }

// Len returns the number of bytes consumed.
func (r *BytesReader) Len() int { return r.N }

// Size returns the length of the span.
func (r *BytesReader) Size() int { return len(r.B) }

// Bytes returns the unread part of the span without advancing.
func (r *BytesReader) Bytes() []byte {
	return r.B[min(r.N, len(r.B)):]
}

// Available returns the number of unread bytes.
func (r *BytesReader) Available() int { return max(len(r.B)-r.N, 0) }
