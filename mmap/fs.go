package mmap

import (
	"fmt"
	"os"
	"path/filepath"
)

// fullFileName resolves name against the current directory.
func fullFileName(name string) (string, error) {
	return filepath.Abs(name)
}

// fileSize returns the size of the regular file at path.
func fileSize(path string) (uint64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is not a regular file", path)
	}
	return uint64(info.Size()), nil
}

// createIfMissing creates an empty file at path if none exists.
func createIfMissing(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}
