package blobfile

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/oy3o/gbin"
	"github.com/oy3o/gbin/mmap"
	"github.com/zeebo/blake3"
)

type openOptions struct {
	logger  *slog.Logger
	backend mmap.Backend
	strict  bool
}

// OpenOption configures Open and Inspect.
type OpenOption func(*openOptions)

// WithLogger sets the logger for open diagnostics and mapping failures.
func WithLogger(l *slog.Logger) OpenOption {
	return func(o *openOptions) { o.logger = l }
}

// WithBackend selects the mapping backend. The default is the platform's.
func WithBackend(b mmap.Backend) OpenOption {
	return func(o *openOptions) { o.backend = b }
}

// Strict rejects bool bytes other than 0 and 1 when decoding records.
func Strict() OpenOption {
	return func(o *openOptions) { o.strict = true }
}

func (o *openOptions) mapOptions() []mmap.Option {
	opts := []mmap.Option{mmap.WithReporter(mmap.LogReporter(o.logger))}
	if o.backend != 0 {
		opts = append(opts, mmap.WithBackend(o.backend))
	}
	return opts
}

func newOpenOptions(opts []OpenOption) *openOptions {
	o := &openOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// File is an open blob file of records of type T.
//
// Uncompressed payloads are read straight from the read-only mapping;
// compressed payloads are decompressed to the heap once at Open. Either way,
// values returned by View alias that memory and must not be used after Close
// or modified.
type File[T any] struct {
	m       *mmap.Mapping
	header  Header
	meta    map[string]string
	payload []byte
	strict  bool
}

// Open maps the blob file at path and validates its header, record type and
// checksum.
func Open[T any](path string, opts ...OpenOption) (*File[T], error) {
	o := newOpenOptions(opts)

	fp, err := gbin.Fingerprint[T]()
	if err != nil {
		return nil, fmt.Errorf("blobfile: %w", err)
	}

	m, err := mmap.Open(path, o.mapOptions()...)
	if err != nil {
		return nil, err
	}
	f, err := load[T](m, fp)
	if err != nil {
		m.Close()
		o.logger.Warn("rejected blob file", "path", path, "error", err)
		return nil, err
	}
	f.strict = o.strict

	o.logger.Debug("opened blob file",
		"path", m.Path(),
		"backend", m.Backend().String(),
		"records", f.header.Records,
		"compression", f.header.Compression.String(),
	)
	return f, nil
}

func load[T any](m *mmap.Mapping, fp uint64) (*File[T], error) {
	h, meta, stored, err := parse(m.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, m.Path())
	}
	if h.Fingerprint != fp {
		return nil, fmt.Errorf("%w: %s has fingerprint %016x, file has %016x",
			ErrTypeMismatch, typeName[T](), fp, h.Fingerprint)
	}
	if blake3.Sum256(stored) != h.Checksum {
		return nil, fmt.Errorf("%w (%s)", ErrChecksum, m.Path())
	}
	payload, err := decompress(stored, h.Compression, h.RawLen)
	if err != nil {
		return nil, fmt.Errorf("blobfile: %s: %w", m.Path(), err)
	}
	return &File[T]{m: m, header: h, meta: meta, payload: payload}, nil
}

// Header returns the file header.
func (f *File[T]) Header() Header { return f.header }

// Metadata returns the metadata stored with the records, or nil if none.
func (f *File[T]) Metadata() map[string]string { return f.meta }

// Len returns the number of records in the file.
func (f *File[T]) Len() int { return int(f.header.Records) }

// Records decodes every record into memory owned by the result.
func (f *File[T]) Records() ([]T, error) {
	return f.decode(false)
}

// View decodes every record in zero-copy mode. Strings and fixed-layout
// slices in the result alias the file's memory.
func (f *File[T]) View() ([]T, error) {
	return f.decode(true)
}

func (f *File[T]) decode(view bool) ([]T, error) {
	if f.m.IsEmpty() {
		return nil, mmap.ErrClosed
	}
	span := gbin.NewBytesReader(f.payload)
	var dec *gbin.Decoder
	if view {
		dec = gbin.NewViewDecoder(span)
	} else {
		dec, _ = gbin.NewDecoder(span)
	}
	dec.WithByteOrder(f.header.Order())
	if f.strict {
		dec.Strict()
	}

	n := f.header.Records
	items := make([]T, 0, min(n, uint64(len(f.payload))))
	for i := uint64(0); i < n; i++ {
		if i > 0 {
			dec.Align(int(f.header.Alignment))
		}
		var item T
		if err := dec.Decode(&item); err != nil {
			return nil, fmt.Errorf("blobfile: record %d: %w", i, err)
		}
		items = append(items, item)
	}
	if err := gbin.CheckBufferNotZeros(span.Bytes()); err != nil {
		return nil, fmt.Errorf("blobfile: after %d records: %w", n, err)
	}
	return items, nil
}

// Close unmaps the file. Values returned by View become invalid.
func (f *File[T]) Close() error {
	f.payload = nil
	return f.m.Close()
}

// Info describes a blob file without decoding its records.
type Info struct {
	Path       string
	Size       int
	Header     Header
	Metadata   map[string]string
	ChecksumOK bool
}

// Inspect reads the header and metadata of the blob file at path and
// verifies its checksum. It works for any record type.
func Inspect(path string, opts ...OpenOption) (Info, error) {
	o := newOpenOptions(opts)
	m, err := mmap.Open(path, o.mapOptions()...)
	if err != nil {
		return Info{}, err
	}
	defer m.Close()

	h, meta, stored, err := parse(m.Bytes())
	if err != nil {
		return Info{}, fmt.Errorf("%w (%s)", err, m.Path())
	}
	return Info{
		Path:       m.Path(),
		Size:       m.Len(),
		Header:     h,
		Metadata:   meta,
		ChecksumOK: blake3.Sum256(stored) == h.Checksum,
	}, nil
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}
