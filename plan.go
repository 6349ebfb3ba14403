package gbin

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/puzpuzpuz/xsync/v4"
)

// planCache avoids re-walking a type's structure with reflection on every
// Encode/Decode call.
var planCache = xsync.NewMap[reflect.Type, *plan]()

type shape uint8

const (
	shapeScalar shape = iota
	shapeString
	shapeSlice
	shapeArray
	shapeStruct
)

// plan is the compiled wire layout of one Go type.
type plan struct {
	typ   reflect.Type
	shape shape
	kind  reflect.Kind

	// size is the encoded width for fixed plans, -1 otherwise.
	size int
	// minSize is the smallest possible encoding, used to reject absurd counts early.
	minSize int
	// pod marks types whose memory layout equals their native-order wire layout
	// and whose every byte pattern is a valid value (so bool is excluded).
	pod bool

	elem   *plan
	length int
	fields []fieldPlan

	// fingerprint is only set on plans returned by planOf.
	fingerprint string
}

type fieldPlan struct {
	index int
	name  string
	plan  *plan
}

func (p *plan) fixed() bool { return p.size >= 0 }

// planOf returns the cached plan for t, compiling it on first use.
func planOf(t reflect.Type) (*plan, error) {
	if p, ok := planCache.Load(t); ok {
		return p, nil
	}
	p, err := compile(t, make(map[reflect.Type]*plan))
	if err != nil {
		return nil, err
	}
	p.fingerprint = fingerprintOf(p, make(map[*plan]int))
	actual, _ := planCache.LoadOrStore(t, p)
	return actual, nil
}

func compile(t reflect.Type, building map[reflect.Type]*plan) (*plan, error) {
	if p, ok := building[t]; ok {
		return p, nil
	}
	if p, ok := planCache.Load(t); ok {
		return p, nil
	}

	p := &plan{typ: t, kind: t.Kind(), size: -1}
	building[t] = p

	switch t.Kind() {
	case reflect.Bool:
		p.shape, p.size = shapeScalar, 1
	case reflect.Int8, reflect.Uint8,
		reflect.Int16, reflect.Uint16,
		reflect.Int32, reflect.Uint32, reflect.Float32,
		reflect.Int64, reflect.Uint64, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.Int, reflect.Uint, reflect.Uintptr:
		p.shape, p.size, p.pod = shapeScalar, int(t.Size()), true

	case reflect.String:
		p.shape = shapeString

	case reflect.Slice:
		elem, err := compile(t.Elem(), building)
		if err != nil {
			return nil, err
		}
		p.shape, p.elem = shapeSlice, elem

	case reflect.Array:
		elem, err := compile(t.Elem(), building)
		if err != nil {
			return nil, err
		}
		p.shape, p.elem, p.length = shapeArray, elem, t.Len()
		if elem.fixed() {
			p.size = elem.size * t.Len()
		}
		p.pod = elem.pod

	case reflect.Struct:
		p.shape = shapeStruct
		size, pod := 0, true
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if !sf.IsExported() || sf.Tag.Get("gbin") == "-" {
				pod = false
				continue
			}
			fp, err := compile(sf.Type, building)
			if err != nil {
				return nil, fmt.Errorf("%w (field %s.%s)", err, t, sf.Name)
			}
			p.fields = append(p.fields, fieldPlan{index: i, name: sf.Name, plan: fp})
			if size >= 0 && fp.fixed() {
				size += fp.size
			} else {
				size = -1
			}
			pod = pod && fp.pod
		}
		p.size = size
		// Padding bytes would be written as part of the block.
		p.pod = pod && size == int(t.Size())

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}

	p.minSize = minSizeOf(p, make(map[*plan]bool))
	return p, nil
}

func minSizeOf(p *plan, visiting map[*plan]bool) int {
	if p.fixed() {
		return p.size
	}
	switch p.shape {
	case shapeString, shapeSlice:
		return CountSize
	case shapeArray:
		if visiting[p] {
			return 0
		}
		visiting[p] = true
		defer delete(visiting, p)
		return minSizeOf(p.elem, visiting) * p.length
	case shapeStruct:
		if visiting[p] {
			return 0
		}
		visiting[p] = true
		defer delete(visiting, p)
		total := 0
		for _, f := range p.fields {
			total += minSizeOf(f.plan, visiting)
		}
		return total
	}
	return 0
}

// fingerprintOf renders the positional wire shape of p. Field names are left
// out because the format does not carry them.
func fingerprintOf(p *plan, visiting map[*plan]int) string {
	if depth, ok := visiting[p]; ok {
		return "^" + strconv.Itoa(len(visiting)-depth)
	}
	switch p.shape {
	case shapeScalar:
		return scalarCode(p.kind, p.size)
	case shapeString:
		return "s"
	}

	visiting[p] = len(visiting)
	defer delete(visiting, p)
	switch p.shape {
	case shapeSlice:
		return "[]" + fingerprintOf(p.elem, visiting)
	case shapeArray:
		return "[" + strconv.Itoa(p.length) + "]" + fingerprintOf(p.elem, visiting)
	}
	parts := make([]string, len(p.fields))
	for i, f := range p.fields {
		parts[i] = fingerprintOf(f.plan, visiting)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func scalarCode(k reflect.Kind, size int) string {
	switch k {
	case reflect.Bool:
		return "b"
	case reflect.Float32, reflect.Float64:
		return "f" + strconv.Itoa(size*8)
	case reflect.Complex64, reflect.Complex128:
		return "c" + strconv.Itoa(size*8)
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		return "i" + strconv.Itoa(size*8)
	}
	return "u" + strconv.Itoa(size*8)
}
