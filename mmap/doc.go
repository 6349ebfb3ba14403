// Package mmap maps a byte range of a file into memory.
//
// A Mapping is backed by the operating system's virtual memory (mmap on
// Unix, MapViewOfFile on Windows) or, where that is unavailable or when
// BackendHeap is requested, by a heap buffer filled with an explicit read.
// Either way the caller sees one contiguous []byte that stays valid and
// stable until Close.
//
// Open never panics. On failure it returns an empty, non-nil *Mapping
// together with an *Error, after releasing every handle it had acquired,
// and hands a diagnostic to the optional Reporter. Callers must check the
// error (or IsEmpty) before touching Bytes.
//
// A Mapping has exactly one owner. Handles are passed by pointer; Move
// transfers ownership and leaves the source empty. go vet's copylocks check
// flags accidental copies of a Mapping value.
package mmap
