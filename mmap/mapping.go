package mmap

import (
	"fmt"
	"io"
	"math"
	"runtime"
	"runtime/debug"
)

// ToEnd as a range count maps everything from the start offset to the end of the file.
const ToEnd = math.MaxUint64

// Backend selects how a file range is brought into memory.
type Backend uint8

const (
	// BackendOS maps the file with the operating system's virtual memory.
	BackendOS Backend = iota + 1
	// BackendHeap copies the range into a heap buffer. Writes to a writable
	// heap mapping are not persisted and Flush does nothing.
	BackendHeap
)

func (b Backend) String() string {
	switch b {
	case BackendOS:
		return "os"
	case BackendHeap:
		return "heap"
	}
	return fmt.Sprintf("Backend(%d)", uint8(b))
}

// view is one backend's mapped region.
type view interface {
	bytes() []byte
	flush() error
	unmap() error
}

type options struct {
	start    uint64
	count    uint64
	writable bool
	backend  Backend
	reporter Reporter
}

// Option configures Open.
type Option func(*options)

// WithRange maps count bytes starting at byte start. count may be ToEnd.
func WithRange(start, count uint64) Option {
	return func(o *options) {
		o.start, o.count = start, count
	}
}

// Writable maps the range read-write. A missing file is created, and then
// fails to map because it is empty.
func Writable() Option {
	return func(o *options) { o.writable = true }
}

// WithBackend forces a backend instead of the platform default.
func WithBackend(b Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithReporter sets the collaborator that receives failure diagnostics.
func WithReporter(r Reporter) Option {
	return func(o *options) { o.reporter = r }
}

// noCopy may be embedded into structs which must not be copied after first
// use. See https://golang.org/issues/8005#issuecomment-190753527.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Mapping owns a mapped byte range of a file.
//
// A Mapping is not safe for concurrent Close, Move or Flush; concurrent
// reads of Bytes are fine while it is open.
type Mapping struct {
	noCopy noCopy

	v        view
	data     []byte
	path     string
	start    uint64
	writable bool
	backend  Backend
	reporter Reporter
}

// Open maps a range of fileName into memory. By default the whole file is
// mapped read-only with the platform's default backend.
//
// On failure Open returns an empty Mapping and an *Error; nothing is leaked.
func Open(fileName string, opts ...Option) (*Mapping, error) {
	o := options{count: ToEnd, backend: defaultBackend}
	for _, opt := range opts {
		opt(&o)
	}
	m := &Mapping{}

	path, err := fullFileName(fileName)
	if err != nil {
		return m, report(o.reporter, "resolve", fileName, err)
	}
	if o.writable {
		if err := createIfMissing(path); err != nil {
			return m, report(o.reporter, "create", path, err)
		}
	}
	size, err := fileSize(path)
	if err != nil {
		return m, report(o.reporter, "stat", path, err)
	}
	count, err := checkRange(size, o.start, o.count)
	if err != nil {
		return m, report(o.reporter, "open", path, err)
	}

	var v view
	switch o.backend {
	case BackendOS:
		v, err = mapOS(path, o.start, count, o.writable)
	case BackendHeap:
		v, err = mapHeap(path, o.start, count)
	default:
		err = fmt.Errorf("unknown backend %s", o.backend)
	}
	if err != nil {
		return m, report(o.reporter, "map", path, err)
	}

	m.v = v
	m.data = v.bytes()
	m.path = path
	m.start = o.start
	m.writable = o.writable
	m.backend = o.backend
	m.reporter = o.reporter
	runtime.SetFinalizer(m, (*Mapping).release)
	return m, nil
}

// checkRange validates [start, start+count) against a file of size bytes and
// resolves ToEnd.
func checkRange(size, start, count uint64) (uint64, error) {
	if size == 0 {
		return 0, ErrEmptyFile
	}
	if start > size {
		return 0, fmt.Errorf("%w: start %d beyond file size %d", ErrInvalidRange, start, size)
	}
	if count == ToEnd {
		count = size - start
	}
	switch {
	case count == 0:
		return 0, fmt.Errorf("%w: empty range at %d", ErrInvalidRange, start)
	case start+count < start:
		return 0, fmt.Errorf("%w: start %d + count %d overflows", ErrInvalidRange, start, count)
	case start+count > size:
		return 0, fmt.Errorf("%w: [%d, %d) exceeds file size %d", ErrInvalidRange, start, start+count, size)
	case count > math.MaxInt:
		return 0, fmt.Errorf("%w: %d bytes cannot be addressed", ErrInvalidRange, count)
	}
	return count, nil
}

// IsEmpty reports whether m holds no mapping, because Open failed or the
// mapping was closed or moved.
func (m *Mapping) IsEmpty() bool { return m == nil || m.v == nil }

// Bytes returns the mapped range. The slice is only valid until Close, and
// writing to it faults unless the mapping is writable.
func (m *Mapping) Bytes() []byte {
	if m.IsEmpty() {
		return nil
	}
	return m.data
}

// Len returns the length of the mapped range.
func (m *Mapping) Len() int { return len(m.Bytes()) }

func (m *Mapping) Writable() bool   { return !m.IsEmpty() && m.writable }
func (m *Mapping) Path() string     { return m.path }
func (m *Mapping) Offset() uint64   { return m.start }
func (m *Mapping) Backend() Backend { return m.backend }

// ReadAt copies mapped bytes at offset off (relative to the mapped range)
// into p. An I/O error on the file surfaces as an error instead of a crash.
func (m *Mapping) ReadAt(p []byte, off int64) (n int, err error) {
	if m.IsEmpty() {
		return 0, ErrClosed
	}
	if off < 0 || off >= int64(len(m.data)) {
		return 0, io.EOF
	}

	old := debug.SetPanicOnFault(true)
	defer func() {
		debug.SetPanicOnFault(old)
		if r := recover(); r != nil {
			err = fmt.Errorf("mmap: page fault reading %s at offset %d: %v", m.path, off, r)
		}
	}()

	n = copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Flush writes dirty pages of a writable OS mapping to stable storage. It
// does nothing for read-only and heap mappings.
func (m *Mapping) Flush() error {
	if m.IsEmpty() {
		return ErrClosed
	}
	if !m.writable {
		return nil
	}
	if err := m.v.flush(); err != nil {
		return report(m.reporter, "flush", m.path, err)
	}
	return nil
}

// Close releases the mapping. Closing an empty mapping, or closing twice,
// is a no-op.
func (m *Mapping) Close() error {
	if m.IsEmpty() {
		return nil
	}
	runtime.SetFinalizer(m, nil)
	return m.release()
}

func (m *Mapping) release() error {
	v, path, r := m.v, m.path, m.reporter
	m.reset()
	if err := v.unmap(); err != nil {
		return report(r, "close", path, err)
	}
	return nil
}

// Move transfers ownership to a new handle and leaves m empty.
func (m *Mapping) Move() *Mapping {
	dst := &Mapping{}
	if m.IsEmpty() {
		return dst
	}
	runtime.SetFinalizer(m, nil)
	dst.v, dst.data, dst.path, dst.start = m.v, m.data, m.path, m.start
	dst.writable, dst.backend, dst.reporter = m.writable, m.backend, m.reporter
	m.reset()
	runtime.SetFinalizer(dst, (*Mapping).release)
	return dst
}

func (m *Mapping) reset() {
	m.v = nil
	m.data = nil
	m.path = ""
	m.start = 0
	m.writable = false
	m.backend = 0
	m.reporter = nil
}
