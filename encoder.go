package gbin

import (
	"encoding/binary"
	"fmt"
	"io"
	"reflect"
	"unsafe"
)

// Encoder writes values in the gbin wire format to an output buffer.
type Encoder struct {
	w      *Writer
	native bool
}

// NewEncoder returns an Encoder appending to w. A *BytesWriter destination
// has fixed capacity, a *bytes.Buffer grows, anything else is buffered and
// flushed after every Encode.
func NewEncoder(w io.Writer) (*Encoder, error) {
	bw, err := NewWriter(w)
	if err != nil {
		return nil, err
	}
	return &Encoder{w: bw, native: isNative(bw.ByteOrder())}, nil
}

// WithByteOrder changes the scalar byte order. Count prefixes stay little-endian.
func (e *Encoder) WithByteOrder(order binary.ByteOrder) *Encoder {
	e.w.WithByteOrder(order)
	e.native = isNative(order)
	return e
}

// Count returns the number of bytes written so far.
func (e *Encoder) Count() int64 { return e.w.Count() }

// Align pads the output with zero bytes to a multiple of n.
func (e *Encoder) Align(n int) error {
	e.w.Align(n)
	return e.w.Err()
}

// Encode appends the encoding of v. A pointer is followed to the value it
// points to. Unsupported types are rejected before anything is written.
func (e *Encoder) Encode(v any) error {
	rv, p, err := valueOf(v)
	if err != nil {
		return err
	}
	if err := e.w.Err(); err != nil {
		return err
	}
	e.encode(p, rv)
	if err := e.w.Flush(); err != nil {
		return err
	}
	return e.w.Err()
}

// valueOf resolves the value to encode and its plan.
func valueOf(v any) (reflect.Value, *plan, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return rv, nil, fmt.Errorf("%w: nil", ErrUnsupportedType)
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return rv, nil, fmt.Errorf("%w: nil %s", ErrUnsupportedType, rv.Type())
		}
		rv = rv.Elem()
	}
	p, err := planOf(rv.Type())
	return rv, p, err
}

func (e *Encoder) encode(p *plan, v reflect.Value) {
	w := e.w
	if w.Err() != nil {
		return
	}
	switch p.shape {
	case shapeScalar:
		e.encodeScalar(p, v)

	case shapeString:
		s := v.String()
		w.WriteCount(len(s))
		w.WriteString(s)

	case shapeSlice:
		n := v.Len()
		w.WriteCount(n)
		if n == 0 {
			return
		}
		if p.elem.pod && e.native {
			w.WriteBytes(unsafe.Slice((*byte)(v.UnsafePointer()), n*p.elem.size))
			return
		}
		for i := 0; i < n; i++ {
			e.encode(p.elem, v.Index(i))
		}

	case shapeArray:
		if p.pod && e.native && v.CanAddr() {
			w.WriteBytes(unsafe.Slice((*byte)(v.Addr().UnsafePointer()), p.size))
			return
		}
		for i := 0; i < p.length; i++ {
			e.encode(p.elem, v.Index(i))
		}

	case shapeStruct:
		if p.pod && e.native && v.CanAddr() {
			w.WriteBytes(unsafe.Slice((*byte)(v.Addr().UnsafePointer()), p.size))
			return
		}
		for _, f := range p.fields {
			e.encode(f.plan, v.Field(f.index))
		}
	}
}

func (e *Encoder) encodeScalar(p *plan, v reflect.Value) {
	w := e.w
	switch p.kind {
	case reflect.Bool:
		w.WriteBool(v.Bool())
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		w.WriteScalar(p.size, uint64(v.Int()))
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint, reflect.Uintptr:
		w.WriteScalar(p.size, v.Uint())
	case reflect.Float32:
		w.WriteFloat32(float32(v.Float()))
	case reflect.Float64:
		w.WriteFloat64(v.Float())
	case reflect.Complex64:
		c := v.Complex()
		w.WriteFloat32(float32(real(c)))
		w.WriteFloat32(float32(imag(c)))
	case reflect.Complex128:
		c := v.Complex()
		w.WriteFloat64(real(c))
		w.WriteFloat64(imag(c))
	}
}

// Size returns the exact number of bytes Encode would write for v.
func Size(v any) (int, error) {
	rv, p, err := valueOf(v)
	if err != nil {
		return 0, err
	}
	return sizeOf(p, rv), nil
}

func sizeOf(p *plan, v reflect.Value) int {
	if p.fixed() {
		return p.size
	}
	switch p.shape {
	case shapeString:
		return CountSize + v.Len()
	case shapeSlice:
		n := v.Len()
		if p.elem.fixed() {
			return CountSize + n*p.elem.size
		}
		total := CountSize
		for i := 0; i < n; i++ {
			total += sizeOf(p.elem, v.Index(i))
		}
		return total
	case shapeArray:
		total := 0
		for i := 0; i < p.length; i++ {
			total += sizeOf(p.elem, v.Index(i))
		}
		return total
	case shapeStruct:
		total := 0
		for _, f := range p.fields {
			total += sizeOf(f.plan, v.Field(f.index))
		}
		return total
	}
	return 0
}
