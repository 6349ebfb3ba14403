package gbin

import (
	"encoding/binary"
	"fmt"
	"io"
	"unsafe"

	"golang.org/x/exp/constraints"
)

var (
	BE = binary.BigEndian
	LE = binary.LittleEndian
	// Order is the default scalar byte order. The format is platform-native.
	Order binary.ByteOrder = binary.NativeEndian
)

// CountSize is the width of the count prefix written before strings and slices.
const CountSize = 4

const BUFFER_SIZE = 4096

var (
	empty   [BUFFER_SIZE]byte
	discard [BUFFER_SIZE]byte
)

func Discard(r io.Reader, n int64) (int64, error) {
	if n == 0 {
		return 0, nil
	}
	if n < 0 {
		return 0, ErrDiscardNegative
	}
	if n <= BUFFER_SIZE {
		skip, err := io.ReadFull(r, discard[:n])
		return int64(skip), err
	}
	return io.CopyN(io.Discard, r, n)
}

// Roundup rounds n up to the nearest multiple of align.
func Roundup[T constraints.Integer](n, align T) T { return (n + (align - 1)) &^ (align - 1) }

// MAX_PADDING defines the maximum number of trailing bytes to check.
// Anything larger is considered a protocol error.
const MAX_PADDING = 1024 // 1KB

// CheckBufferNotZeros verifies that the bytes left after a decoded value are
// all zero padding.
func CheckBufferNotZeros(rest []byte) error {
	if len(rest) > MAX_PADDING {
		return fmt.Errorf("%w: %d bytes exceeds maximum expected padding of %d bytes", ErrTrailingData, len(rest), MAX_PADDING)
	}
	for i, b := range rest {
		if b != 0 {
			return fmt.Errorf("%w: found non-zero byte 0x%02x at offset %d", ErrTrailingData, b, i)
		}
	}
	return nil
}

// CheckTrailingNotZeros verifies that any remaining bytes in a reader are all zero.
func CheckTrailingNotZeros(r io.Reader) error {
	if reader, ok := r.(*BytesReader); ok {
		return CheckBufferNotZeros(reader.B[min(reader.N, len(reader.B)):])
	}

	// We read up to MAX_PADDING + 1 bytes; if the read succeeds, there was
	// too much data.
	lr := &io.LimitedReader{R: r, N: MAX_PADDING + 1}
	trailingData, err := io.ReadAll(lr)
	if err != nil {
		return err
	}
	return CheckBufferNotZeros(trailingData)
}

// isNative reports whether order lays scalars out like the running machine.
func isNative(order binary.ByteOrder) bool {
	if order == nil {
		return false
	}
	var probe [2]byte
	order.PutUint16(probe[:], 1)
	native := uint16(1)
	return *(*[2]byte)(unsafe.Pointer(&native)) == probe
}

// aligned reports whether p satisfies align.
func aligned(p unsafe.Pointer, align int) bool {
	return align <= 1 || uintptr(p)%uintptr(align) == 0
}
