//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd

package mmap

import "golang.org/x/sys/unix"

const defaultBackend = BackendOS

type unixView struct {
	raw  []byte // page-aligned region returned by mmap
	data []byte // the requested range within raw
}

// mapOS maps [start, start+count) of path with mmap(MAP_SHARED). The
// descriptor is closed as soon as the mapping exists; the mapping keeps the
// file referenced.
func mapOS(path string, start, count uint64, writable bool) (view, error) {
	flags, prot := unix.O_RDONLY, unix.PROT_READ
	if writable {
		flags, prot = unix.O_RDWR, unix.PROT_READ|unix.PROT_WRITE
	}

	fd, err := unix.Open(path, flags|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &Error{Op: "open", Path: path, Err: err}
	}
	defer unix.Close(fd)

	// mmap offsets must be page aligned.
	page := uint64(unix.Getpagesize())
	aligned := start &^ (page - 1)
	delta := start - aligned

	raw, err := unix.Mmap(fd, int64(aligned), int(delta+count), prot, unix.MAP_SHARED)
	if err != nil {
		return nil, &Error{Op: "mmap", Path: path, Err: err}
	}
	end := delta + count
	return &unixView{raw: raw, data: raw[delta:end:end]}, nil
}

func (v *unixView) bytes() []byte { return v.data }

func (v *unixView) flush() error {
	return unix.Msync(v.raw, unix.MS_SYNC)
}

func (v *unixView) unmap() error {
	raw := v.raw
	v.raw, v.data = nil, nil
	return unix.Munmap(raw)
}
