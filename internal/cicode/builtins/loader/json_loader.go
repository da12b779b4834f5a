// Package loader provides loaders for Cicode builtin function tables.
package loader

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/albertocavalcante/cix/internal/cicode/builtins"
)

//go:embed data/builtins.json
var defaultJSON []byte

// JSONProvider loads a builtins table from a JSON object mapping
// lower-case function names to function records.
type JSONProvider struct {
	path   string
	dataFS fsReader

	mu     sync.Mutex
	cached builtins.Table
}

// NewJSONProvider reads the table from the file at path.
func NewJSONProvider(path string) *JSONProvider {
	return &JSONProvider{path: path, dataFS: diskFS{}}
}

// NewDefaultProvider returns the table of common runtime functions
// compiled into the binary.
func NewDefaultProvider() *JSONProvider {
	const name = "builtins.json"
	return &JSONProvider{
		path:   name,
		dataFS: &memFS{files: map[string][]byte{name: defaultJSON}},
	}
}

// Path returns the file the provider reads.
func (p *JSONProvider) Path() string {
	return p.path
}

// Builtins implements builtins.Provider. The parsed table is cached; the
// returned table is a copy the caller may modify.
func (p *JSONProvider) Builtins() (builtins.Table, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached == nil {
		data, err := p.dataFS.ReadFile(p.path)
		if err != nil {
			return nil, fmt.Errorf("load builtins: %w", err)
		}
		t, err := ParseJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", p.path, err)
		}
		p.cached = t
	}

	out := make(builtins.Table, len(p.cached))
	out.Merge(p.cached)
	return out, nil
}

// ParseJSON decodes the lower-case name mapping.
func ParseJSON(data []byte) (builtins.Table, error) {
	var t builtins.Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return t.Normalize(), nil
}
