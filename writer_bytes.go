package gbin

import "io"

// BytesWriter is the fixed-capacity output buffer: it writes into a
// caller-provided slice and never grows it. A write that does not fit is
// truncated at the end of the slice and reports io.ErrShortWrite.
type BytesWriter struct {
	B []byte // destination, full capacity
	N int    // write position
}

// NewBytesWriter returns a BytesWriter over the full capacity of p.
func NewBytesWriter(p []byte) *BytesWriter {
	return &BytesWriter{B: p[:cap(p)]}
}

// fit returns how many of n bytes fit and the error to report if not all do.
func (w *BytesWriter) fit(n int) (int, error) {
	if avail := len(w.B) - w.N; n > avail {
		return avail, io.ErrShortWrite
	}
	return n, nil
}

func (w *BytesWriter) Write(p []byte) (int, error) {
	n, err := w.fit(len(p))
	w.N += copy(w.B[w.N:], p[:n])
	return n, err
}

func (w *BytesWriter) WriteString(s string) (int, error) {
	n, err := w.fit(len(s))
	w.N += copy(w.B[w.N:], s[:n])
	return n, err
}

func (w *BytesWriter) WriteByte(c byte) error {
	if _, err := w.fit(1); err != nil {
		return err
	}
	w.B[w.N] = c
	w.N++
	return nil
}

// WriteZeros writes n zero bytes, clearing whatever the slice held there.
func (w *BytesWriter) WriteZeros(n int) (int, error) {
	n, err := w.fit(n)
	clear(w.B[w.N : w.N+n])
	w.N += n
	return n, err
}

// ReadFrom reads from r until EOF. Running out of room before EOF is
// io.ErrShortWrite.
func (w *BytesWriter) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	for {
		if w.N >= len(w.B) {
			return total, io.ErrShortWrite
		}
		n, err := r.Read(w.B[w.N:])
		if n < 0 {
			return total, ErrInvalidWrite
		}
		w.N += n
		total += int64(n)
		switch {
		case err == io.EOF:
			return total, nil
		case err != nil:
			return total, err
		}
	}
}

func (w *BytesWriter) Close() error { return nil }
func (w *BytesWriter) Flush() error { return nil }

// Reset rewinds the write position so the slice can be reused.
func (w *BytesWriter) Reset() { w.N = 0 }

// Len returns the number of bytes written.
func (w *BytesWriter) Len() int { return w.N }

// Size returns the capacity of the destination.
func (w *BytesWriter) Size() int { return len(w.B) }

func (w *BytesWriter) Available() int { return len(w.B) - w.N }

// Bytes returns the written prefix of the destination.
func (w *BytesWriter) Bytes() []byte { return w.B[:w.N] }
