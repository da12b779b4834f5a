package textdoc

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Overlay serves file contents, preferring open editor buffers over disk.
// It is safe for concurrent use.
type Overlay struct {
	mu      sync.RWMutex
	buffers map[string]string
	base    Reader
}

// Reader reads the text of a file.
type Reader interface {
	ReadFile(path string) (string, error)
}

// NewOverlay returns an empty overlay on top of the disk.
func NewOverlay() *Overlay {
	return &Overlay{buffers: make(map[string]string)}
}

// NewOverlayOn returns an empty overlay that reads unopened files from
// base.
func NewOverlayOn(base Reader) *Overlay {
	return &Overlay{buffers: make(map[string]string), base: base}
}

// Open registers an editor buffer for path.
func (o *Overlay) Open(path, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.buffers[filepath.Clean(path)] = text
}

// Update replaces the buffer for path. It behaves like Open when the
// buffer is not yet registered.
func (o *Overlay) Update(path, text string) {
	o.Open(path, text)
}

// Close drops the buffer for path; subsequent reads go to disk.
func (o *Overlay) Close(path string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.buffers, filepath.Clean(path))
}

// IsOpen reports whether path has an editor buffer.
func (o *Overlay) IsOpen(path string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.buffers[filepath.Clean(path)]
	return ok
}

// ReadFile returns the buffer for path if open, otherwise the file below.
func (o *Overlay) ReadFile(path string) (string, error) {
	o.mu.RLock()
	text, ok := o.buffers[filepath.Clean(path)]
	o.mu.RUnlock()
	if ok {
		return text, nil
	}
	if o.base != nil {
		return o.base.ReadFile(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// Document reads path and wraps it in a Document.
func (o *Overlay) Document(path string) (*Document, error) {
	text, err := o.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(path, text), nil
}
