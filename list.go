package gbin

import (
	"errors"
	"fmt"
	"io"
	"reflect"
)

// List is a sequence of T encoded back to back without a count prefix.
// When Alignment is above 1, every item except the last is followed by zero
// padding up to a multiple of Alignment, measured from the start of the list.
type List[T any] struct {
	Items     []T
	Alignment int
}

// Statically ensure that List implements Codec.
var _ Codec = (*List[struct{}])(nil)

// NewList creates a new List with the given items and alignment.
func NewList[T any](items []T, alignment int) *List[T] {
	return &List[T]{Items: items, Alignment: alignment}
}

// NewList0 creates an unaligned List.
func NewList0[T any](items []T) *List[T] { return NewList(items, 0) }

// NewList4 creates a List aligned to 4 bytes.
func NewList4[T any](items []T) *List[T] { return NewList(items, 4) }

// NewList8 creates a List aligned to 8 bytes.
func NewList8[T any](items []T) *List[T] { return NewList(items, 8) }

func (l *List[T]) Len() int {
	return len(l.Items)
}

// Size calculates the total binary size of the list, including alignment
// padding, or -1 if T cannot be encoded.
func (l *List[T]) Size() int {
	p, err := planOf(reflect.TypeFor[T]())
	if err != nil {
		return -1
	}
	total := 0
	for i := range l.Items {
		if i > 0 && l.Alignment > 1 {
			total = Roundup(total, l.Alignment)
		}
		total += sizeOf(p, reflect.ValueOf(&l.Items[i]).Elem())
	}
	return total
}

// WriteTo efficiently writes the entire list to a writer, handling alignment.
func (l *List[T]) WriteTo(writer io.Writer) (int64, error) {
	if len(l.Items) == 0 {
		return 0, nil
	}
	if _, err := planOf(reflect.TypeFor[T]()); err != nil {
		return 0, err
	}
	enc, err := NewEncoder(writer)
	if err != nil {
		return 0, err
	}
	for i := range l.Items {
		if i > 0 && l.Alignment > 1 {
			if err := enc.Align(l.Alignment); err != nil {
				return enc.Count(), err
			}
		}
		if err := enc.Encode(&l.Items[i]); err != nil {
			return enc.Count(), err
		}
	}
	return enc.Count(), nil
}

// ReadFrom reads and decodes items into the list from a reader.
// The read behavior is determined by the capacity of the `l.Items` slice:
// - If cap(l.Items) > 0, it reads exactly that many items.
// - If cap(l.Items) == 0, it reads items until the reader returns io.EOF.
func (l *List[T]) ReadFrom(reader io.Reader) (int64, error) {
	rd, err := NewReader(reader)
	if err != nil {
		return 0, err
	}
	dec, _ := NewDecoder(rd)
	count := cap(l.Items)
	readEOF := count == 0
	l.Items = l.Items[:0]

	for i := 0; readEOF || i < count; i++ {
		if i > 0 && l.Alignment > 1 {
			dec.Align(l.Alignment)
		}
		start := rd.Count()
		var item T
		if err := dec.Decode(&item); err != nil {
			if readEOF && rd.Count() == start && errors.Is(err, io.EOF) {
				// Clean EOF when reading indefinitely: this is the success termination condition.
				break
			}
			return rd.Count(), fmt.Errorf("item %d: %w", i, err)
		}
		if readEOF && rd.Count() == start {
			return rd.Count(), fmt.Errorf("%w: zero-width %s cannot be read until EOF", ErrUnsupportedType, reflect.TypeFor[T]())
		}
		l.Items = append(l.Items, item)
	}
	return rd.Count(), nil
}

// MarshalBinary implements the encoding.BinaryMarshaler interface.
func (l *List[T]) MarshalBinary() ([]byte, error) {
	size := l.Size()
	if size < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, reflect.TypeFor[T]())
	}
	w := NewBytesWriter(make([]byte, size))
	if _, err := l.WriteTo(w); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// MarshalTo encodes the list into buf.
func (l *List[T]) MarshalTo(buf []byte) (int, error) {
	n, err := l.WriteTo(NewBytesWriter(buf[:len(buf):len(buf)]))
	return int(n), err
}

// UnmarshalBinary decodes every item in data; the result owns its memory.
func (l *List[T]) UnmarshalBinary(data []byte) error {
	l.Items = l.Items[:0:0]
	_, err := l.ReadFrom(NewBytesReader(data))
	return err
}

// ViewList decodes n items from data in zero-copy mode. Items must not
// outlive data.
func ViewList[T any](data []byte, n, alignment int) ([]T, error) {
	span := NewBytesReader(data)
	dec := NewViewDecoder(span)
	items := make([]T, n)
	for i := range items {
		if i > 0 {
			span.Align(alignment)
		}
		if err := dec.Decode(&items[i]); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return items, nil
}
