package gbin

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Sink is the destination a Writer appends to once buffering has been
// decided: a *BytesWriter, an adapted *bytes.Buffer or *bufio.Writer.
type Sink interface {
	io.Writer
	io.ReaderFrom
	io.Closer
	io.ByteWriter
	io.StringWriter
	Size() int
	Flush() error
}

// Writer is the output buffer the encoder appends to. It tracks the write
// cursor and latches the first error; once an error is latched every
// further write is a no-op and reports it.
//
// Capacity follows the destination: a *BytesWriter has a fixed capacity and
// reports io.ErrShortWrite when it is exceeded, a *bytes.Buffer grows, and
// any other io.Writer is wrapped in a bufio.Writer.
type Writer struct {
	w     Sink
	count int64
	err   error
	// depth > 0 marks a Writer stacked on another one's sink; only depth 0 flushes.
	depth int
	order binary.ByteOrder
}

var _ Sink = (*Writer)(nil)

// NewWriterSize returns a Writer over w whose buffer, if one is needed, is at
// least size bytes. A *bufio.Writer smaller than size is rejected with
// ErrAlreadyBuffered rather than buffered twice.
func NewWriterSize(w io.Writer, size int) (*Writer, error) {
	if w == nil {
		return nil, ErrNilIO
	}

	switch dst := w.(type) {
	case *Writer:
		if dst.w.Size() >= size {
			return &Writer{w: dst.w, depth: dst.depth + 1, order: dst.order}, nil
		}
	case *bufio.Writer:
		if dst.Size() < size {
			return nil, ErrAlreadyBuffered
		}
		return &Writer{w: &bufioWriterAdapter{dst}, depth: 1, order: Order}, nil
	case *BytesWriter:
		return &Writer{w: dst, order: Order}, nil
	case *bytes.Buffer:
		return &Writer{w: &bytesBufferWriterAdapter{dst}, order: Order}, nil
	}
	return &Writer{w: &bufioWriterAdapter{bufio.NewWriterSize(w, size)}, order: Order}, nil
}

// NewWriter is NewWriterSize with the default buffer size.
func NewWriter(w io.Writer) (*Writer, error) {
	return NewWriterSize(w, 0)
}

// WithByteOrder sets the byte order used for scalars and returns w.
// Count prefixes are always little-endian.
func (w *Writer) WithByteOrder(order binary.ByteOrder) *Writer {
	w.order = order
	return w
}

func (w *Writer) ByteOrder() binary.ByteOrder { return w.order }

func (w *Writer) Close() error { return w.w.Close() }

func (w *Writer) Size() int    { return w.w.Size() }
func (w *Writer) Count() int64 { return w.count }
func (w *Writer) Err() error   { return w.err }

func (w *Writer) latch(n int64, err error) {
	w.count += n
	if w.err == nil && err != nil {
		w.err = err
	}
}

// Write implements io.Writer.
func (w *Writer) Write(buf []byte) (int, error) {
	if len(buf) == 0 || w.err != nil {
		return 0, w.err
	}
	n, err := w.w.Write(buf)
	w.latch(int64(n), err)
	return n, w.err
}

// WriteString implements io.StringWriter.
func (w *Writer) WriteString(str string) (int, error) {
	if str == "" || w.err != nil {
		return 0, w.err
	}
	n, err := w.w.WriteString(str)
	w.latch(int64(n), err)
	return n, w.err
}

// WriteByte implements io.ByteWriter.
func (w *Writer) WriteByte(v byte) error {
	if w.err != nil {
		return w.err
	}
	err := w.w.WriteByte(v)
	if err == nil {
		w.latch(1, nil)
	} else {
		w.latch(0, err)
	}
	return err
}

// ReadFrom implements io.ReaderFrom.
func (w *Writer) ReadFrom(r io.Reader) (int64, error) {
	if r == nil || w.err != nil {
		return 0, w.err
	}
	n, err := w.w.ReadFrom(r)
	w.latch(n, err)
	return n, w.err
}

// WriteFrom appends everything wt produces.
func (w *Writer) WriteFrom(wt io.WriterTo) {
	if wt == nil || w.err != nil {
		return
	}
	w.latch(wt.WriteTo(w.w))
}

// Flush pushes buffered bytes to the destination. Stacked Writers leave
// flushing to the outermost one.
func (w *Writer) Flush() error {
	if w.depth > 0 || w.err != nil {
		return w.err
	}
	err := w.w.Flush()
	w.latch(0, err)
	return err
}

// Result flushes and returns the byte count and latched error.
func (w *Writer) Result() (int64, error) {
	w.Flush()
	return w.count, w.err
}

func (w *Writer) WriteBytes(buf []byte) { _, _ = w.Write(buf) }

// WriteZeros writes n zero bytes of padding.
func (w *Writer) WriteZeros(n int64) {
	if n <= 0 || w.err != nil {
		return
	}
	if bw, ok := w.w.(*BytesWriter); ok && n <= math.MaxInt32 {
		k, err := bw.WriteZeros(int(n))
		w.latch(int64(k), err)
		return
	}
	for n > 0 && w.err == nil {
		k := min(n, BUFFER_SIZE)
		w.Write(empty[:k])
		n -= k
	}
}

// Align pads with zero bytes until Count is a multiple of n.
func (w *Writer) Align(n int) {
	if n > 1 {
		w.WriteZeros(Roundup(w.count, int64(n)) - w.count)
	}
}

// WriteCount writes the little-endian uint32 length prefix of a string or slice.
func (w *Writer) WriteCount(n int) {
	if w.err != nil {
		return
	}
	if n < 0 || uint64(n) > math.MaxUint32 {
		w.latch(0, fmt.Errorf("%w: %d", ErrCountOverflow, n))
		return
	}
	var buf [CountSize]byte
	LE.PutUint32(buf[:], uint32(n))
	w.Write(buf[:])
}

// WriteScalar writes the low size bytes of v (1, 2, 4 or 8) in the
// Writer's byte order.
func (w *Writer) WriteScalar(size int, v uint64) {
	if w.err != nil {
		return
	}
	var buf [8]byte
	switch size {
	case 1:
		buf[0] = byte(v)
	case 2:
		w.order.PutUint16(buf[:], uint16(v))
	case 4:
		w.order.PutUint32(buf[:], uint32(v))
	default:
		size = 8
		w.order.PutUint64(buf[:], v)
	}
	w.Write(buf[:size])
}

func (w *Writer) WriteBool(v bool) {
	var b uint64
	if v {
		b = 1
	}
	w.WriteScalar(1, b)
}

func (w *Writer) WriteUint8(v uint8)   { w.WriteScalar(1, uint64(v)) }
func (w *Writer) WriteUint16(v uint16) { w.WriteScalar(2, uint64(v)) }
func (w *Writer) WriteUint32(v uint32) { w.WriteScalar(4, uint64(v)) }
func (w *Writer) WriteUint64(v uint64) { w.WriteScalar(8, v) }

func (w *Writer) WriteInt8(v int8)   { w.WriteScalar(1, uint64(v)) }
func (w *Writer) WriteInt16(v int16) { w.WriteScalar(2, uint64(v)) }
func (w *Writer) WriteInt32(v int32) { w.WriteScalar(4, uint64(v)) }
func (w *Writer) WriteInt64(v int64) { w.WriteScalar(8, uint64(v)) }

func (w *Writer) WriteFloat32(v float32) { w.WriteScalar(4, uint64(math.Float32bits(v))) }
func (w *Writer) WriteFloat64(v float64) { w.WriteScalar(8, math.Float64bits(v)) }
