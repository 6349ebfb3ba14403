package gbin

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"reflect"
	"unsafe"
)

// maxPrealloc bounds the bytes reserved up front for a slice read from a
// stream, whose remaining length is unknown. Larger slices grow as data
// actually arrives.
const maxPrealloc = 1 << 20

// input is what the decoder reads from: a *BytesReader span or a *Reader stream.
type input interface {
	Next(n int) ([]byte, error)
	ReadCount() (int, error)
	Align(n int)
	// remaining returns the bytes left, or -1 when unknown.
	remaining() int
}

// Decoder reads values in the gbin wire format.
//
// A copying Decoder produces values that own all their memory. A view
// Decoder (NewViewDecoder) produces strings and slices that alias the span
// it reads from; those values are valid only while the span's backing
// buffer is.
type Decoder struct {
	src    input
	view   bool
	strict bool
	order  binary.ByteOrder
	native bool
}

// NewDecoder returns a copying Decoder reading from r. Streams are buffered,
// so bytes after the last decoded value may already have been consumed from r.
func NewDecoder(r io.Reader) (*Decoder, error) {
	var src input
	switch r := r.(type) {
	case *BytesReader:
		src = r
	case *Reader:
		src = r
	default:
		rd, err := NewReader(r)
		if err != nil {
			return nil, err
		}
		src = rd
	}
	return &Decoder{src: src, order: Order, native: isNative(Order)}, nil
}

// NewViewDecoder returns a zero-copy Decoder over span.
//
// Strings, []byte and slices of fixed-layout numeric elements alias the
// span's bytes. Fixed arrays are copied inline. A numeric slice whose bytes
// are not aligned for its element type, or that is read in a non-native byte
// order, is copied instead. Aliased data must be treated as read-only when the
// span covers a read-only mapping.
func NewViewDecoder(span *BytesReader) *Decoder {
	return &Decoder{src: span, view: true, order: Order, native: isNative(Order)}
}

// Strict makes the decoder reject bool bytes other than 0 and 1.
func (d *Decoder) Strict() *Decoder {
	d.strict = true
	return d
}

// WithByteOrder sets the scalar byte order. Count prefixes stay little-endian.
func (d *Decoder) WithByteOrder(order binary.ByteOrder) *Decoder {
	d.order = order
	d.native = isNative(order)
	return d
}

// Align skips input up to the next multiple of n.
func (d *Decoder) Align(n int) {
	d.src.Align(n)
}

// Decode reads one value into the value ptr points to.
func (d *Decoder) Decode(ptr any) error {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return ErrNotPointer
	}
	v := rv.Elem()
	p, err := planOf(v.Type())
	if err != nil {
		return err
	}
	return d.decode(p, v)
}

func (d *Decoder) decode(p *plan, v reflect.Value) error {
	switch p.shape {
	case shapeScalar:
		b, err := d.src.Next(p.size)
		if err != nil {
			return err
		}
		return d.setScalar(p, v, b)

	case shapeString:
		n, err := d.src.ReadCount()
		if err != nil {
			return err
		}
		b, err := d.src.Next(n)
		if err != nil {
			return err
		}
		if d.view && n > 0 {
			v.SetString(unsafe.String(unsafe.SliceData(b), n))
		} else {
			v.SetString(string(b))
		}
		return nil

	case shapeSlice:
		return d.decodeSlice(p, v)

	case shapeArray:
		if p.pod && d.native {
			return d.copyInto(v.Addr().UnsafePointer(), p.size)
		}
		for i := 0; i < p.length; i++ {
			if err := d.decode(p.elem, v.Index(i)); err != nil {
				return err
			}
		}
		return nil

	case shapeStruct:
		if p.pod && d.native {
			return d.copyInto(v.Addr().UnsafePointer(), p.size)
		}
		for _, f := range p.fields {
			if err := d.decode(f.plan, v.Field(f.index)); err != nil {
				return fmt.Errorf("%s.%s: %w", p.typ, f.name, err)
			}
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedType, p.typ)
}

// copyInto fills size bytes at dst straight from the input.
func (d *Decoder) copyInto(dst unsafe.Pointer, size int) error {
	if size == 0 {
		return nil
	}
	return d.readInto(unsafe.Slice((*byte)(dst), size))
}

func (d *Decoder) readInto(dst []byte) error {
	if rd, ok := d.src.(*Reader); ok {
		rd.ReadBytesTo(dst)
		return rd.truncated()
	}
	b, err := d.src.Next(len(dst))
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}

func (d *Decoder) decodeSlice(p *plan, v reflect.Value) error {
	n, err := d.src.ReadCount()
	if err != nil {
		return err
	}
	if n == 0 {
		v.SetZero()
		return nil
	}
	// A count the input cannot possibly satisfy is rejected before allocating.
	if rem := d.src.remaining(); rem >= 0 && p.elem.minSize > 0 && n > rem/p.elem.minSize {
		return fmt.Errorf("%w: %d elements of %s need at least %d bytes, have %d",
			ErrTruncatedData, n, p.elem.typ, int64(n)*int64(p.elem.minSize), rem)
	}

	// Elements with an empty encoding take nothing from the input, so the
	// count alone decides the length.
	if p.elem.minSize == 0 {
		if sz := p.elem.typ.Size(); sz > 0 && uint64(n) > uint64(maxPrealloc/sz) {
			return fmt.Errorf("%w: %d elements of zero-width %s are not backed by input",
				ErrTruncatedData, n, p.elem.typ)
		}
		v.Set(reflect.MakeSlice(p.typ, n, n))
		return nil
	}

	if p.elem.pod && d.native {
		size := p.elem.size
		if d.src.remaining() < 0 {
			return d.streamPOD(p, v, n)
		}
		b, err := d.src.Next(n * size)
		if err != nil {
			return err
		}
		data := unsafe.Pointer(unsafe.SliceData(b))
		if d.view && aligned(data, p.elem.typ.Align()) {
			v.Set(reflect.SliceAt(p.elem.typ, data, n))
			return nil
		}
		s := reflect.MakeSlice(p.typ, n, n)
		copy(unsafe.Slice((*byte)(s.UnsafePointer()), n*size), b)
		v.Set(s)
		return nil
	}

	prealloc := n
	if d.src.remaining() < 0 && p.elem.typ.Size() > 0 {
		prealloc = min(n, max(1, maxPrealloc/int(p.elem.typ.Size())))
	}
	v.Set(reflect.MakeSlice(p.typ, 0, prealloc))
	for i := 0; i < n; i++ {
		if v.Len() == v.Cap() {
			v.Grow(min(n-i, v.Cap()))
		}
		v.SetLen(i + 1)
		if err := d.decode(p.elem, v.Index(i)); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	return nil
}

// streamPOD reads a fixed-layout slice from a stream in bounded chunks.
func (d *Decoder) streamPOD(p *plan, v reflect.Value, n int) error {
	size := p.elem.size
	chunk := max(1, maxPrealloc/size)
	v.Set(reflect.MakeSlice(p.typ, 0, min(n, chunk)))
	for done := 0; done < n; {
		k := min(n-done, chunk)
		if v.Cap()-v.Len() < k {
			v.Grow(k)
		}
		v.SetLen(done + k)
		dst := unsafe.Add(v.UnsafePointer(), done*size)
		if err := d.readInto(unsafe.Slice((*byte)(dst), k*size)); err != nil {
			return err
		}
		done += k
	}
	return nil
}

func (d *Decoder) setScalar(p *plan, v reflect.Value, b []byte) error {
	switch p.kind {
	case reflect.Bool:
		if d.strict && b[0] > 1 {
			return fmt.Errorf("%w: 0x%02x", ErrInvalidBool, b[0])
		}
		v.SetBool(b[0] != 0)
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		u := d.uint(b)
		switch p.size {
		case 1:
			v.SetInt(int64(int8(u)))
		case 2:
			v.SetInt(int64(int16(u)))
		case 4:
			v.SetInt(int64(int32(u)))
		default:
			v.SetInt(int64(u))
		}
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint, reflect.Uintptr:
		v.SetUint(d.uint(b))
	case reflect.Float32:
		v.SetFloat(float64(math.Float32frombits(uint32(d.uint(b)))))
	case reflect.Float64:
		v.SetFloat(math.Float64frombits(d.uint(b)))
	case reflect.Complex64:
		re := math.Float32frombits(d.order.Uint32(b[:4]))
		im := math.Float32frombits(d.order.Uint32(b[4:]))
		v.SetComplex(complex(float64(re), float64(im)))
	case reflect.Complex128:
		re := math.Float64frombits(d.order.Uint64(b[:8]))
		im := math.Float64frombits(d.order.Uint64(b[8:]))
		v.SetComplex(complex(re, im))
	}
	return nil
}

func (d *Decoder) uint(b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(d.order.Uint16(b))
	case 4:
		return uint64(d.order.Uint32(b))
	default:
		return d.order.Uint64(b)
	}
}
