package indexer

import (
	"cmp"
	"maps"
	"path/filepath"
	"slices"

	"github.com/albertocavalcante/cix/internal/cicode/extract"
	"github.com/albertocavalcante/cix/internal/cicode/lang"
	"github.com/albertocavalcante/cix/internal/cicode/scope"
	"github.com/albertocavalcante/cix/internal/cicode/span"
	"github.com/albertocavalcante/cix/internal/cicode/textdoc"
)

// Queries return copies; callers may keep them across updates.

// Function looks up name case-insensitively.
func (ix *Indexer) Function(name string) (Function, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	fn, ok := ix.functions[lang.Key(name)]
	if !ok {
		return Function{}, false
	}
	return *fn, true
}

// HasFunction reports whether name is in the function table.
func (ix *Indexer) HasFunction(name string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.functions[lang.Key(name)]
	return ok
}

// Functions returns the function table sorted by name.
func (ix *Indexer) Functions() []Function {
	ix.mu.RLock()
	out := make([]Function, 0, len(ix.functions))
	for _, fn := range ix.functions {
		out = append(out, *fn)
	}
	ix.mu.RUnlock()
	slices.SortFunc(out, func(a, b Function) int {
		return cmp.Compare(lang.Key(a.Name), lang.Key(b.Name))
	})
	return out
}

// Definitions returns every source definition of name across files,
// oldest first. The table entry is the last of them.
func (ix *Indexer) Definitions(name string) []Function {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	defs := ix.defs[lang.Key(name)]
	out := make([]Function, 0, len(defs))
	for _, fn := range defs {
		out = append(out, *fn)
	}
	slices.SortFunc(out, func(a, b Function) int { return cmp.Compare(a.seq, b.seq) })
	return out
}

// Builtins reports whether the function table was seeded with builtins.
func (ix *Indexer) Builtins() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.builtin) > 0
}

// Variables returns every declaration of name.
func (ix *Indexer) Variables(name string) []Variable {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return copyVars(ix.variables[lang.Key(name)])
}

// FindVariables returns the declarations for which pred is true, ordered
// by file and offset.
func (ix *Indexer) FindVariables(pred func(Variable) bool) []Variable {
	ix.mu.RLock()
	var out []Variable
	for _, vs := range ix.variables {
		for _, v := range vs {
			if pred(*v) {
				out = append(out, *v)
			}
		}
	}
	ix.mu.RUnlock()
	sortVars(out)
	return out
}

// VariableCount returns the number of declarations in the variable table.
func (ix *Indexer) VariableCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.varCount
}

// FileVariables returns the declarations contributed by file.
func (ix *Indexer) FileVariables(file string) []Variable {
	file = filepath.Clean(file)
	return ix.FindVariables(func(v Variable) bool { return v.File == file })
}

// FunctionRanges returns the functions defined in file in source order.
func (ix *Indexer) FunctionRanges(file string) []extract.FunctionRange {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return slices.Clone(ix.ranges[filepath.Clean(file)])
}

// FunctionAt returns the function of file whose extent contains offset.
func (ix *Indexer) FunctionAt(file string, offset int) (extract.FunctionRange, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	r := extract.FunctionAt(ix.ranges[filepath.Clean(file)], offset)
	if r == nil {
		return extract.FunctionRange{}, false
	}
	return *r, true
}

// ResolveVariable returns the declaration name refers to at offset of
// file: a local of the enclosing function, then a module variable of the
// file, then a global, then any declaration of that name.
func (ix *Indexer) ResolveVariable(name, file string, offset int) (Variable, bool) {
	file = filepath.Clean(file)
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	vs := ix.variables[lang.Key(name)]
	if len(vs) == 0 {
		return Variable{}, false
	}
	if r := extract.FunctionAt(ix.ranges[file], offset); r != nil {
		id := LocalScopeID(file, r.Name)
		if v := firstVar(vs, func(v *Variable) bool { return v.ScopeID == id }); v != nil {
			return *v, true
		}
	}
	if v := firstVar(vs, func(v *Variable) bool { return v.Scope == scope.Module && v.ScopeID == file }); v != nil {
		return *v, true
	}
	if v := firstVar(vs, func(v *Variable) bool { return v.Scope == scope.Global }); v != nil {
		return *v, true
	}
	return *vs[0], true
}

func firstVar(vs []*Variable, pred func(*Variable) bool) *Variable {
	for _, v := range vs {
		if pred(v) {
			return v
		}
	}
	return nil
}

// IgnoreSpans returns the ignore spans of file.
func (ix *Indexer) IgnoreSpans(file string) []span.Span {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return slices.Clone(ix.spans[filepath.Clean(file)])
}

// Document returns the text of file as last indexed.
func (ix *Indexer) Document(file string) (*textdoc.Document, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	doc, ok := ix.docs[filepath.Clean(file)]
	return doc, ok
}

// Files returns the indexed files, sorted.
func (ix *Indexer) Files() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return slices.Sorted(maps.Keys(ix.docs))
}

// DuplicateFunctions returns, per file, the groups of functions defined
// more than once in that file.
func (ix *Indexer) DuplicateFunctions() map[string][][]extract.FunctionRange {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make(map[string][][]extract.FunctionRange)
	for file, ranges := range ix.ranges {
		if dups := extract.Duplicates(ranges); len(dups) > 0 {
			out[file] = dups
		}
	}
	return out
}

func copyVars(vs []*Variable) []Variable {
	if len(vs) == 0 {
		return nil
	}
	out := make([]Variable, len(vs))
	for i, v := range vs {
		out[i] = *v
	}
	sortVars(out)
	return out
}

func sortVars(vs []Variable) {
	slices.SortFunc(vs, func(a, b Variable) int {
		return cmp.Or(cmp.Compare(a.File, b.File), cmp.Compare(a.Offset, b.Offset), cmp.Compare(a.DeclOffset, b.DeclOffset))
	})
}
