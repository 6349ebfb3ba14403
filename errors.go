package gbin

import "errors"

var (
	// ErrNilIO indicates that NewReader/NewWriter was called with an nil interface
	ErrNilIO = errors.New("gbin: NewReader/NewWriter called with a nil io.Reader/io.Writer")

	// ErrSizeTooSmall indicates a size conflict with bufio
	ErrSizeTooSmall = errors.New("gbin: NewReaderSize with a size smaller than 16 conflict with bufio")

	// ErrAlreadyBuffered indicates that NewReader/NewWriter was called with an already-buffered
	// reader/writer, which would lead to unpredictable behavior and performance issues.
	ErrAlreadyBuffered = errors.New("gbin: reader or writer is already buffered")

	// ErrWriteToNil indicates a WriteTo operation was attempted on a nil io.Writer.
	ErrWriteToNil = errors.New("gbin: WriteTo called with a nil io.Writer")

	// ErrInvalidSeek indicates a seek was attempted to invalid position.
	ErrInvalidSeek = errors.New("gbin: seek to a invalid position")

	// ErrInvalidWhence indicates that an invalid 'whence' parameter was provided to a Seek operation.
	ErrInvalidWhence = errors.New("gbin: unsupported whence")

	// ErrInvalidWrite indicates that an io.Writer returned an invalid (negative) count from Write.
	ErrInvalidWrite = errors.New("gbin: writer returned invalid count from Write")

	// ErrInvalidRead indicates that an io.Reader returned an invalid (negative or outbound) count from Read.
	ErrInvalidRead = errors.New("gbin: reader returned invalid count from Read")

	// ErrDiscardNegative indicates a Discard operation was attempted with a negative byte count.
	ErrDiscardNegative = errors.New("gbin: cannot discard negative number of bytes")

	// ErrTrailingData is returned by Unmarshal when non-zero bytes are found
	// after the expected end of the value, indicating a type mismatch or malformed data.
	ErrTrailingData = errors.New("gbin: non-zero trailing data found after decoding")

	// ErrTruncatedData indicates that a decode could not complete because the
	// input ended before all expected bytes were read.
	ErrTruncatedData = errors.New("gbin: truncated data")

	// ErrUnsupportedType is returned before any byte is written or read when a
	// type contains a shape the wire format cannot express (pointer, map, interface, ...).
	ErrUnsupportedType = errors.New("gbin: unsupported type")

	// ErrNotPointer indicates a decode target that is not a non-nil pointer.
	ErrNotPointer = errors.New("gbin: decode target must be a non-nil pointer")

	// ErrCountOverflow indicates a string or slice longer than the 32-bit count prefix allows.
	ErrCountOverflow = errors.New("gbin: element count exceeds 32-bit prefix")

	// ErrInvalidBool is reported in strict mode for a bool byte other than 0 or 1.
	ErrInvalidBool = errors.New("gbin: invalid bool byte")
)
