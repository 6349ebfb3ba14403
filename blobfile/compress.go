package blobfile

import (
	"errors"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies how the payload is stored. The values are part of
// the file format.
type Compression uint8

const (
	CompressionNone Compression = 0
	// CompressionLZ4 is LZ4 block compression: fast, modest ratio.
	CompressionLZ4 Compression = 1
	// CompressionZstd is zstd at the default level: better ratio, slower.
	CompressionZstd Compression = 2
)

// String returns the human-readable name of a compression tag.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression tag from its string representation.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

// errIncompressible means the compressed form is not smaller than the input.
var errIncompressible = errors.New("data is incompressible")

// zstd.Encoder and zstd.Decoder are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("blobfile: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxRawLen))
	if err != nil {
		panic("blobfile: zstd decoder initialization failed: " + err.Error())
	}
}

func compress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if n == 0 || n >= len(data) {
			return nil, errIncompressible
		}
		return dst[:n], nil
	case CompressionZstd:
		out := zstdEncoder.EncodeAll(data, nil)
		if len(out) >= len(data) {
			return nil, errIncompressible
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported compression %s", c)
}

// maxRawLen caps the decompressed payload size a header may claim.
const maxRawLen = 1 << 36

// lz4MaxRatio is the largest expansion an LZ4 block can encode.
const lz4MaxRatio = 255

// checkRawLen rejects a header RawLen that the stored bytes cannot produce,
// before anything is allocated for it. The checksum does not cover the header.
func checkRawLen(stored int, c Compression, rawLen uint64) error {
	if rawLen > maxRawLen || rawLen > math.MaxInt {
		return fmt.Errorf("%w: raw length %d exceeds limit", ErrFormat, rawLen)
	}
	if c == CompressionLZ4 && rawLen > lz4MaxRatio*uint64(stored)+lz4MaxRatio {
		return fmt.Errorf("%w: raw length %d impossible for %d lz4 bytes", ErrFormat, rawLen, stored)
	}
	return nil
}

func decompress(data []byte, c Compression, rawLen uint64) ([]byte, error) {
	if err := checkRawLen(len(data), c, rawLen); err != nil {
		return nil, err
	}
	switch c {
	case CompressionNone:
		if uint64(len(data)) != rawLen {
			return nil, fmt.Errorf("%w: stored %d bytes, expected %d", ErrFormat, len(data), rawLen)
		}
		return data, nil
	case CompressionLZ4:
		dst := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(data, dst)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %w", ErrFormat, err)
		}
		if uint64(n) != rawLen {
			return nil, fmt.Errorf("%w: lz4 produced %d bytes, expected %d", ErrFormat, n, rawLen)
		}
		return dst, nil
	case CompressionZstd:
		out, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrFormat, err)
		}
		if uint64(len(out)) != rawLen {
			return nil, fmt.Errorf("%w: zstd produced %d bytes, expected %d", ErrFormat, len(out), rawLen)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: unsupported compression %s", ErrFormat, c)
}
