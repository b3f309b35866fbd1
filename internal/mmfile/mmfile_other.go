//go:build !unix

package mmfile

import (
	"fmt"
	"os"
)

// Map reads the entire file when mmap is not available.
func Map(path string) ([]byte, func() error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, func() error { return nil }, err
	}
	return data, func() error { return nil }, nil
}

// MapShared loads the file at path into a heap buffer of size bytes and
// writes it back on cleanup.
func MapShared(path string, size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("mmfile: invalid mapping size %d", size)
	}
	data := make([]byte, size)
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, nil, err
	}
	copy(data, existing)
	return data, func() error { return os.WriteFile(path, data, 0o644) }, nil
}

// MapAnon returns a zeroed heap buffer.
func MapAnon(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("mmfile: invalid mapping size %d", size)
	}
	return make([]byte, size), func() error { return nil }, nil
}

// Sync is a no-op; MapShared writes back on cleanup.
func Sync([]byte) error { return nil }
