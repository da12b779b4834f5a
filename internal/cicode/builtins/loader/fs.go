package loader

import (
	"fmt"
	"os"
)

// fsReader is an interface for reading files (allows testing and different backends).
type fsReader interface {
	ReadFile(name string) ([]byte, error)
}

// diskFS reads files from the actual filesystem.
type diskFS struct{}

func (diskFS) ReadFile(name string) ([]byte, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// memFS is a simple in-memory filesystem for testing.
type memFS struct {
	files map[string][]byte
}

func (m *memFS) ReadFile(name string) ([]byte, error) {
	if data, ok := m.files[name]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("file not found: %s", name)
}
