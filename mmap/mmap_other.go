//go:build !(darwin || dragonfly || freebsd || linux || netbsd || openbsd || windows)

package mmap

const defaultBackend = BackendHeap

func mapOS(path string, start, count uint64, writable bool) (view, error) {
	return nil, &Error{Op: "map", Path: path, Err: ErrUnsupported}
}
