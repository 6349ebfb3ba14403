package blobfile

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/oy3o/gbin"
)

const (
	// Version is the format version written by this package.
	Version = 1

	// HeaderSize is the encoded size of Header.
	HeaderSize = 80

	// payloadAlign is the file offset alignment of the payload.
	payloadAlign = 16

	orderLittle = 1
	orderBig    = 2
)

// Magic identifies a blob file.
var Magic = [4]byte{'G', 'B', 'F', '1'}

var (
	// ErrFormat indicates a file that is not a well-formed blob file.
	ErrFormat = errors.New("blobfile: malformed file")

	// ErrVersion indicates a blob file written by an unknown format version.
	ErrVersion = errors.New("blobfile: unsupported version")

	// ErrTypeMismatch indicates a record type whose wire shape differs from
	// the one the file was written with.
	ErrTypeMismatch = errors.New("blobfile: record type does not match file")

	// ErrChecksum indicates a payload that does not match its stored checksum.
	ErrChecksum = errors.New("blobfile: checksum mismatch")
)

// Header is the fixed-size file header.
type Header struct {
	Magic       [4]byte
	Version     uint16
	Compression Compression
	Alignment   uint8
	ByteOrder   uint8
	Reserved    [3]byte
	Records     uint64
	Fingerprint uint64
	MetaLen     uint32
	StoredLen   uint64
	RawLen      uint64
	Checksum    [32]byte
}

// Order returns the byte order of scalars in the payload.
func (h Header) Order() binary.ByteOrder {
	if h.ByteOrder == orderBig {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// PayloadOffset returns the file offset of the stored payload.
func (h Header) PayloadOffset() uint64 {
	return gbin.Roundup(uint64(HeaderSize)+uint64(h.MetaLen), payloadAlign)
}

func nativeOrder() uint8 {
	if gbin.Order.Uint16([]byte{1, 0}) == 1 {
		return orderLittle
	}
	return orderBig
}

// encMode uses Core Deterministic Encoding so equal metadata always
// produces identical bytes.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("blobfile: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("blobfile: CBOR decoder initialization failed: " + err.Error())
	}
}

// parse validates the framing of a blob file and returns its header,
// metadata and stored payload. The payload aliases data.
func parse(data []byte) (Header, map[string]string, []byte, error) {
	var h Header
	if len(data) < HeaderSize {
		return h, nil, nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrFormat, len(data))
	}
	dec, _ := gbin.NewDecoder(gbin.NewBytesReader(data[:HeaderSize]))
	if err := dec.WithByteOrder(binary.LittleEndian).Decode(&h); err != nil {
		return h, nil, nil, fmt.Errorf("%w: header: %w", ErrFormat, err)
	}
	if h.Magic != Magic {
		return h, nil, nil, fmt.Errorf("%w: bad magic %q", ErrFormat, h.Magic[:])
	}
	if h.Version != Version {
		return h, nil, nil, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	if h.ByteOrder != orderLittle && h.ByteOrder != orderBig {
		return h, nil, nil, fmt.Errorf("%w: byte order tag %d", ErrFormat, h.ByteOrder)
	}

	size := uint64(len(data))
	metaEnd := uint64(HeaderSize) + uint64(h.MetaLen)
	if metaEnd > size {
		return h, nil, nil, fmt.Errorf("%w: metadata runs past end of file", ErrFormat)
	}
	var meta map[string]string
	if h.MetaLen > 0 {
		if err := decMode.Unmarshal(data[HeaderSize:metaEnd], &meta); err != nil {
			return h, nil, nil, fmt.Errorf("%w: metadata: %w", ErrFormat, err)
		}
	}

	off := h.PayloadOffset()
	if off > size || h.StoredLen > size-off {
		return h, nil, nil, fmt.Errorf("%w: payload [%d, +%d) runs past end of file (%d bytes)", ErrFormat, off, h.StoredLen, size)
	}
	return h, meta, data[off : off+h.StoredLen : off+h.StoredLen], nil
}
