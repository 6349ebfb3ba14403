package mmap

import "errors"

var (
	// ErrEmptyFile is returned for a zero-length file, which cannot be mapped.
	ErrEmptyFile = errors.New("mmap: empty file")

	// ErrInvalidRange is returned when the requested range is empty or does
	// not lie within the file.
	ErrInvalidRange = errors.New("mmap: invalid range")

	// ErrClosed is returned by operations on an empty or closed mapping.
	ErrClosed = errors.New("mmap: mapping is empty")

	// ErrUnsupported is returned for BackendOS on platforms without file mapping.
	ErrUnsupported = errors.New("mmap: memory mapping not supported on this platform")
)

// Error records a failed mapping operation and the file it concerned.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := "mmap: " + e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}
