// Package builtins defines the table of functions provided by the runtime
// and the providers that supply it.
package builtins

import (
	"slices"
	"strings"
)

// Function describes one runtime-provided function.
type Function struct {
	// Name is the display spelling.
	Name string `json:"name"`

	// ReturnType is the Cicode return type; empty means VOID.
	ReturnType string `json:"returnType,omitempty"`

	// Params are raw parameter strings in declaration order. Optional
	// parameters are written in square brackets or carry a default.
	Params []string `json:"params,omitempty"`

	Summary   string            `json:"summary,omitempty"`
	Returns   string            `json:"returns,omitempty"`
	ParamDocs map[string]string `json:"paramDocs,omitempty"`

	// HelpURL points at external reference documentation.
	HelpURL string `json:"helpUrl,omitempty"`
}

// Table maps lower-case function names to their definitions.
type Table map[string]Function

// Key returns the table key for name.
func Key(name string) string {
	return strings.ToLower(name)
}

// Add inserts fn, replacing any entry with the same case-insensitive name.
func (t Table) Add(fn Function) {
	t[Key(fn.Name)] = fn
}

// Lookup finds name case-insensitively.
func (t Table) Lookup(name string) (Function, bool) {
	fn, ok := t[Key(name)]
	return fn, ok
}

// Merge copies every entry of other into t. Entries in other win.
func (t Table) Merge(other Table) {
	for k, fn := range other {
		t[k] = fn
	}
}

// Names returns the display names, sorted case-insensitively.
func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for _, fn := range t {
		names = append(names, fn.Name)
	}
	slices.SortFunc(names, func(a, b string) int {
		return strings.Compare(Key(a), Key(b))
	})
	return names
}

// Normalize fills empty names from their keys and re-keys entries whose
// key does not match their name.
func (t Table) Normalize() Table {
	out := make(Table, len(t))
	for k, fn := range t {
		if fn.Name == "" {
			fn.Name = k
		}
		out.Add(fn)
	}
	return out
}

// Provider supplies a builtins table.
type Provider interface {
	Builtins() (Table, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() (Table, error)

// Builtins implements Provider.
func (f ProviderFunc) Builtins() (Table, error) {
	return f()
}

// ChainProvider merges several providers; later providers override
// earlier ones.
type ChainProvider struct {
	providers []Provider
}

// NewChainProvider creates a provider that merges results from all providers.
func NewChainProvider(providers ...Provider) *ChainProvider {
	return &ChainProvider{providers: providers}
}

// Builtins merges the tables of every provider. Providers that fail are
// skipped; the first error is returned only when every provider failed.
func (c *ChainProvider) Builtins() (Table, error) {
	result := make(Table)
	var firstErr error
	ok := false
	for _, p := range c.providers {
		t, err := p.Builtins()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		ok = true
		result.Merge(t)
	}
	if !ok && firstErr != nil {
		return nil, firstErr
	}
	return result, nil
}
