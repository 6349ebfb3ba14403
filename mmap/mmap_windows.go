//go:build windows

package mmap

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

const defaultBackend = BackendOS

// MapViewOfFile offsets must be multiples of the allocation granularity,
// which is 64 KiB on every Windows release.
const allocationGranularity = 64 << 10

type windowsView struct {
	addr uintptr
	raw  []byte
	data []byte
}

// mapOS maps [start, start+count) of path with CreateFileMapping and
// MapViewOfFile. Both handles are closed once the view exists; the view
// keeps the mapping object alive.
func mapOS(path string, start, count uint64, writable bool) (view, error) {
	name, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, &Error{Op: "open", Path: path, Err: err}
	}

	access := uint32(windows.GENERIC_READ)
	create := uint32(windows.OPEN_EXISTING)
	protect := uint32(windows.PAGE_READONLY)
	viewAccess := uint32(windows.FILE_MAP_READ)
	if writable {
		access |= windows.GENERIC_WRITE
		create = windows.OPEN_ALWAYS
		protect = windows.PAGE_READWRITE
		viewAccess = windows.FILE_MAP_WRITE
	}

	file, err := windows.CreateFile(name, access,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE, nil, create,
		windows.FILE_ATTRIBUTE_NORMAL, 0)
	if err != nil {
		return nil, &Error{Op: "CreateFile", Path: path, Err: err}
	}
	defer windows.CloseHandle(file)

	end := start + count
	mapping, err := windows.CreateFileMapping(file, nil, protect, uint32(end>>32), uint32(end), nil)
	if err != nil {
		return nil, &Error{Op: "CreateFileMapping", Path: path, Err: err}
	}
	defer windows.CloseHandle(mapping)

	aligned := start &^ (allocationGranularity - 1)
	delta := start - aligned
	length := delta + count
	addr, err := windows.MapViewOfFile(mapping, viewAccess, uint32(aligned>>32), uint32(aligned), uintptr(length))
	if err != nil {
		return nil, &Error{Op: "MapViewOfFile", Path: path, Err: err}
	}

	raw := unsafe.Slice((*byte)(unsafe.Pointer(addr)), length)
	return &windowsView{addr: addr, raw: raw, data: raw[delta:length:length]}, nil
}

func (v *windowsView) bytes() []byte { return v.data }

func (v *windowsView) flush() error {
	return windows.FlushViewOfFile(v.addr, uintptr(len(v.raw)))
}

func (v *windowsView) unmap() error {
	addr := v.addr
	v.addr, v.raw, v.data = 0, nil, nil
	return windows.UnmapViewOfFile(addr)
}
