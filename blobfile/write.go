package blobfile

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/oy3o/gbin"
	"github.com/zeebo/blake3"
)

// Options controls how Write lays out a blob file.
type Options struct {
	// Compression is applied to the payload. Payloads that do not shrink
	// are stored uncompressed regardless.
	Compression Compression

	// Alignment pads every record except the last to a multiple of this
	// many bytes, measured from the payload start. Zero or one disables
	// padding. Must be a power of two no larger than 128.
	Alignment int

	// Metadata is stored alongside the records as deterministic CBOR.
	Metadata map[string]string

	Logger *slog.Logger
}

func (o *Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// Write encodes records into a new blob file at path, replacing any existing
// file. The file is written to a temporary name in the same directory and
// renamed into place, so readers never observe a partial file.
func Write[T any](path string, records []T, opts Options) error {
	data, err := Marshal(records, opts)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("blobfile: create %s: %w", path, err)
	}
	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("blobfile: write %s: %w", path, err)
	}

	opts.logger().Debug("wrote blob file",
		"path", path,
		"records", len(records),
		"bytes", len(data),
	)
	return nil
}

// Marshal returns the complete blob file encoding of records.
func Marshal[T any](records []T, opts Options) ([]byte, error) {
	if a := opts.Alignment; a < 0 || a > 128 || a&(a-1) != 0 {
		return nil, fmt.Errorf("blobfile: alignment %d is not a power of two up to 128", a)
	}
	fp, err := gbin.Fingerprint[T]()
	if err != nil {
		return nil, fmt.Errorf("blobfile: %w", err)
	}

	raw, err := gbin.NewList(records, opts.Alignment).MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("blobfile: encode records: %w", err)
	}

	compression := opts.Compression
	stored, err := compress(raw, compression)
	if errors.Is(err, errIncompressible) {
		opts.logger().Debug("payload incompressible, storing raw",
			"compression", compression.String(),
			"bytes", len(raw),
		)
		stored, compression, err = raw, CompressionNone, nil
	}
	if err != nil {
		return nil, fmt.Errorf("blobfile: %w", err)
	}

	var meta []byte
	if len(opts.Metadata) > 0 {
		if meta, err = encMode.Marshal(opts.Metadata); err != nil {
			return nil, fmt.Errorf("blobfile: encode metadata: %w", err)
		}
		if uint64(len(meta)) > math.MaxUint32 {
			return nil, fmt.Errorf("blobfile: metadata too large (%d bytes)", len(meta))
		}
	}

	h := Header{
		Magic:       Magic,
		Version:     Version,
		Compression: compression,
		Alignment:   uint8(opts.Alignment),
		ByteOrder:   nativeOrder(),
		Records:     uint64(len(records)),
		Fingerprint: fp,
		MetaLen:     uint32(len(meta)),
		StoredLen:   uint64(len(stored)),
		RawLen:      uint64(len(raw)),
		Checksum:    blake3.Sum256(stored),
	}

	off := int(h.PayloadOffset())
	buf := bytes.NewBuffer(make([]byte, 0, off+len(stored)))
	enc, err := gbin.NewEncoder(buf)
	if err != nil {
		return nil, err
	}
	if err := enc.WithByteOrder(gbin.LE).Encode(&h); err != nil {
		return nil, fmt.Errorf("blobfile: encode header: %w", err)
	}
	buf.Write(meta)
	buf.Write(make([]byte, off-buf.Len()))
	buf.Write(stored)
	return buf.Bytes(), nil
}
