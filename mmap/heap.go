package mmap

import (
	"fmt"
	"os"
)

type heapView struct {
	buf []byte
}

// mapHeap reads [start, start+count) of path into a heap buffer.
func mapHeap(path string, start, count uint64) (view, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	buf := make([]byte, count)
	n, err := f.ReadAt(buf, int64(start))
	if err != nil {
		return nil, &Error{Op: "read", Path: path, Err: fmt.Errorf("read %d of %d bytes: %w", n, count, err)}
	}
	return &heapView{buf: buf}, nil
}

func (h *heapView) bytes() []byte { return h.buf }
func (h *heapView) flush() error  { return nil }

func (h *heapView) unmap() error {
	h.buf = nil
	return nil
}
