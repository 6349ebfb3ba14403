package gbin

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"slices"
)

// Source is what a Reader pulls from once buffering has been decided: a
// *BytesReader, an adapted *bytes.Reader, *bytes.Buffer or *bufio.Reader.
type Source interface {
	io.Reader
	io.ByteReader
	io.WriterTo
	io.Closer
	Size() int
}

// Reader is the streaming input of the copying decoder. It counts consumed
// bytes and latches the first error; later reads are no-ops that report it.
// A read that finds no bytes at all latches io.EOF, a partial one
// io.ErrUnexpectedEOF.
//
// Every slice a Reader returns is freshly allocated and never aliases the
// source. Use a *BytesReader span for zero-copy decoding.
type Reader struct {
	r     Source
	count int64
	err   error
	order binary.ByteOrder
}

var _ Source = (*Reader)(nil)

// NewReaderSize returns a Reader over r whose buffer, if one is needed, is at
// least size bytes. In-memory sources are used directly; a *bufio.Reader
// smaller than size is rejected with ErrAlreadyBuffered.
func NewReaderSize(r io.Reader, size int) (*Reader, error) {
	if r == nil {
		return nil, ErrNilIO
	}

	switch src := r.(type) {
	case *Reader:
		if src.r.Size() >= size {
			return &Reader{r: src.r, order: src.order}, nil
		}
	case *bufio.Reader:
		if src.Size() < size {
			return nil, ErrAlreadyBuffered
		}
		return &Reader{r: &bufioReaderAdapter{Reader: src}, order: Order}, nil
	case *BytesReader:
		return &Reader{r: src, order: Order}, nil
	case *bytes.Reader:
		return &Reader{r: &bytesReaderAdapter{src}, order: Order}, nil
	case *bytes.Buffer:
		return &Reader{r: &bytesBufferReaderAdapter{Buffer: src}, order: Order}, nil
	}

	if size < 16 && size != 0 {
		return nil, ErrSizeTooSmall
	}
	return &Reader{r: &bufioReaderAdapter{Reader: bufio.NewReaderSize(r, size)}, order: Order}, nil
}

// NewReader is NewReaderSize with the default buffer size.
func NewReader(r io.Reader) (*Reader, error) {
	return NewReaderSize(r, 0)
}

// WithByteOrder sets the byte order used for scalars and returns r.
func (r *Reader) WithByteOrder(order binary.ByteOrder) *Reader {
	r.order = order
	return r
}

func (r *Reader) ByteOrder() binary.ByteOrder { return r.order }

func (r *Reader) Close() error { return r.r.Close() }

func (r *Reader) Size() int    { return r.r.Size() }
func (r *Reader) Count() int64 { return r.count }
func (r *Reader) Err() error   { return r.err }
func (r *Reader) IsEOF() bool  { return r.err == io.EOF }

// Result returns the byte count and latched error.
func (r *Reader) Result() (int64, error) {
	return r.count, r.err
}

func (r *Reader) latch(n int64, err error) {
	r.count += n
	if r.err == nil && err != nil {
		r.err = err
	}
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	n, err := r.r.Read(p)
	r.latch(int64(n), err)
	return n, r.err
}

// ReadByte implements io.ByteReader.
func (r *Reader) ReadByte() (byte, error) {
	if r.err != nil {
		return 0, r.err
	}
	b, err := r.r.ReadByte()
	if err != nil {
		r.latch(0, err)
		return 0, err
	}
	r.latch(1, nil)
	return b, nil
}

// WriteTo implements io.WriterTo.
func (r *Reader) WriteTo(w io.Writer) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	if w == nil {
		r.latch(0, ErrWriteToNil)
		return 0, r.err
	}
	n, err := r.r.WriteTo(w)
	r.latch(n, err)
	return n, r.err
}

// ReadBytesTo fills dest completely.
func (r *Reader) ReadBytesTo(dest []byte) {
	if r.err != nil || len(dest) == 0 {
		return
	}
	n, err := io.ReadFull(r.r, dest)
	r.latch(int64(n), err)
}

// ReadBytes reads n bytes into a new slice, or returns nil on error. The
// slice grows at most maxPrealloc bytes ahead of the data read.
func (r *Reader) ReadBytes(n int) []byte {
	if n <= 0 || r.err != nil {
		return nil
	}
	buf := make([]byte, 0, min(n, maxPrealloc))
	for len(buf) < n {
		k := min(n-len(buf), maxPrealloc)
		buf = slices.Grow(buf, k)
		r.ReadBytesTo(buf[len(buf) : len(buf)+k])
		if r.err != nil {
			if r.err == io.EOF && len(buf) > 0 {
				r.err = io.ErrUnexpectedEOF
			}
			return nil
		}
		buf = buf[:len(buf)+k]
	}
	return buf
}

// Next returns the next n bytes as a new slice. It is the streaming
// counterpart of BytesReader.Next.
func (r *Reader) Next(n int) ([]byte, error) {
	if n == 0 {
		return nil, r.err
	}
	b := r.ReadBytes(n)
	return b, r.truncated()
}

// truncated maps a short read onto ErrTruncatedData.
func (r *Reader) truncated() error {
	if r.err == io.ErrUnexpectedEOF || r.err == io.EOF {
		return errors.Join(ErrTruncatedData, r.err)
	}
	return r.err
}

// Align discards bytes until Count is a multiple of n.
func (r *Reader) Align(n int) {
	if n > 1 && r.err == nil {
		r.latch(Discard(r.r, Roundup(r.count, int64(n))-r.count))
	}
}

// ReadCount reads a little-endian uint32 length prefix.
func (r *Reader) ReadCount() (int, error) {
	var buf [CountSize]byte
	r.ReadBytesTo(buf[:])
	if r.err != nil {
		return 0, r.truncated()
	}
	return countToInt(LE.Uint32(buf[:]))
}

// remaining is unknown for a stream.
func (r *Reader) remaining() int { return -1 }

// ReadScalar reads size bytes (1, 2, 4 or 8) in the Reader's byte order.
// ok is false once an error is latched.
func (r *Reader) ReadScalar(size int) (v uint64, ok bool) {
	var buf [8]byte
	switch size {
	case 1, 2, 4:
	default:
		size = 8
	}
	r.ReadBytesTo(buf[:size])
	if r.err != nil {
		return 0, false
	}
	switch size {
	case 1:
		return uint64(buf[0]), true
	case 2:
		return uint64(r.order.Uint16(buf[:])), true
	case 4:
		return uint64(r.order.Uint32(buf[:])), true
	}
	return r.order.Uint64(buf[:]), true
}

func (r *Reader) ReadBool(dest *bool) {
	if v, ok := r.ReadScalar(1); ok {
		*dest = v != 0
	}
}

func (r *Reader) ReadUint8(dest *uint8) {
	if v, ok := r.ReadScalar(1); ok {
		*dest = uint8(v)
	}
}

func (r *Reader) ReadUint16(dest *uint16) {
	if v, ok := r.ReadScalar(2); ok {
		*dest = uint16(v)
	}
}

func (r *Reader) ReadUint32(dest *uint32) {
	if v, ok := r.ReadScalar(4); ok {
		*dest = uint32(v)
	}
}

func (r *Reader) ReadUint64(dest *uint64) {
	if v, ok := r.ReadScalar(8); ok {
		*dest = v
	}
}

func (r *Reader) ReadInt8(dest *int8) {
	if v, ok := r.ReadScalar(1); ok {
		*dest = int8(v)
	}
}

func (r *Reader) ReadInt16(dest *int16) {
	if v, ok := r.ReadScalar(2); ok {
		*dest = int16(v)
	}
}

func (r *Reader) ReadInt32(dest *int32) {
	if v, ok := r.ReadScalar(4); ok {
		*dest = int32(v)
	}
}

func (r *Reader) ReadInt64(dest *int64) {
	if v, ok := r.ReadScalar(8); ok {
		*dest = int64(v)
	}
}

func (r *Reader) ReadFloat32(dest *float32) {
	if v, ok := r.ReadScalar(4); ok {
		*dest = math.Float32frombits(uint32(v))
	}
}

func (r *Reader) ReadFloat64(dest *float64) {
	if v, ok := r.ReadScalar(8); ok {
		*dest = math.Float64frombits(v)
	}
}
