package gbin

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/zeebo/blake3"
)

// Field is one serialized field of a struct, as seen by ForEachField.
type Field struct {
	Name  string
	Index int // index in reflect.Type.Field
	Value reflect.Value
}

// ForEachField calls fn once per serialized field of the struct v (or of the
// struct v points to), in declaration order. This is the same order the
// encoder and decoders use. A non-nil error from fn stops the walk.
func ForEachField(v any, fn func(Field) error) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ErrNotPointer
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("%w: ForEachField needs a struct, got %s", ErrUnsupportedType, rv.Type())
	}
	p, err := planOf(rv.Type())
	if err != nil {
		return err
	}
	for _, f := range p.fields {
		if err := fn(Field{Name: f.name, Index: f.index, Value: rv.Field(f.index)}); err != nil {
			return err
		}
	}
	return nil
}

// Fingerprint returns a 64-bit hash of T's positional wire shape. Two types
// with equal fingerprints decode each other's bytes; field names and Go type
// names do not participate.
func Fingerprint[T any]() (uint64, error) {
	return FingerprintOf(reflect.TypeFor[T]())
}

// FingerprintOf is Fingerprint for a reflect.Type.
func FingerprintOf(t reflect.Type) (uint64, error) {
	p, err := planOf(t)
	if err != nil {
		return 0, err
	}
	sum := blake3.Sum256([]byte(p.fingerprint))
	return binary.LittleEndian.Uint64(sum[:8]), nil
}

// Shape returns the readable shape string that Fingerprint hashes,
// e.g. "{[]i32,[3]i32,b,f32,[]s}".
func Shape(t reflect.Type) (string, error) {
	p, err := planOf(t)
	if err != nil {
		return "", err
	}
	return p.fingerprint, nil
}
