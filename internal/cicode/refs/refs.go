// Package refs finds the occurrences of a symbol and plans renames.
//
// Occurrences are case-insensitive whole-word matches outside comments
// and strings. The files and regions searched follow the symbol's scope:
// a function or global is searched everywhere, a module variable in its
// file, and a local in the header and body of its function. Inner
// declarations of the same name shadow outer ones.
package refs

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"go.lsp.dev/protocol"

	"github.com/albertocavalcante/cix/internal/cicode/extract"
	"github.com/albertocavalcante/cix/internal/cicode/indexer"
	"github.com/albertocavalcante/cix/internal/cicode/lang"
	"github.com/albertocavalcante/cix/internal/cicode/scope"
	"github.com/albertocavalcante/cix/internal/cicode/span"
	"github.com/albertocavalcante/cix/internal/cicode/textdoc"
)

var (
	// ErrNoSymbol is returned when nothing indexed is under the cursor.
	ErrNoSymbol = errors.New("no symbol at position")
	// ErrBuiltin is returned when renaming a builtin function.
	ErrBuiltin = errors.New("cannot rename a builtin function")
	// ErrInvalidName is returned for new names that are not identifiers.
	ErrInvalidName = errors.New("invalid identifier")
	// ErrConflict is returned when the new name is already taken in the
	// symbol's scope.
	ErrConflict = errors.New("name already in use")
)

// Index is the part of the indexer refs reads.
type Index interface {
	Files() []string
	Document(file string) (*textdoc.Document, bool)
	IgnoreSpans(file string) []span.Span
	FunctionRanges(file string) []extract.FunctionRange
	Function(name string) (indexer.Function, bool)
	Variables(name string) []indexer.Variable
	ResolveVariable(name, file string, offset int) (indexer.Variable, bool)
}

// Symbol is a resolved function or variable.
type Symbol struct {
	Name string
	// Function is set for functions, Variable for variables.
	Function *indexer.Function
	Variable *indexer.Variable
}

// Occurrence is one whole-word match of a symbol's name.
type Occurrence struct {
	File  string
	Start int
	End   int
	Range protocol.Range
}

// Location returns the occurrence as an LSP location.
func (o Occurrence) Location() protocol.Location {
	return protocol.Location{URI: textdoc.URIFromPath(o.File), Range: o.Range}
}

// Edit replaces text[Start:End] with NewText.
type Edit struct {
	Start   int
	End     int
	Range   protocol.Range
	NewText string
}

// Resolve returns the symbol named at offset of file. A word followed by
// '(' is a function; otherwise variables take precedence over functions.
func Resolve(ix Index, file string, offset int) (Symbol, error) {
	doc, ok := ix.Document(file)
	if !ok {
		return Symbol{}, fmt.Errorf("resolve %s: %w", file, indexer.ErrNotIndexed)
	}
	if span.Ignored(offset, ix.IgnoreSpans(file)) {
		return Symbol{}, ErrNoSymbol
	}
	word, _, end := lang.WordAt(doc.Text, offset)
	if word == "" || lang.IsKeyword(word) {
		return Symbol{}, ErrNoSymbol
	}

	if !calledAt(doc.Text, end) {
		if v, ok := ix.ResolveVariable(word, file, offset); ok {
			return Symbol{Name: v.Name, Variable: &v}, nil
		}
	}
	if fn, ok := ix.Function(word); ok {
		return Symbol{Name: fn.Name, Function: &fn}, nil
	}
	return Symbol{}, ErrNoSymbol
}

func calledAt(text string, end int) bool {
	for end < len(text) && (text[end] == ' ' || text[end] == '\t') {
		end++
	}
	return end < len(text) && text[end] == '('
}

// region is a searchable extent of one file.
type region struct {
	file       string
	start, end int
}

// References returns every occurrence of sym, ordered by file and offset.
func References(ix Index, sym Symbol) []Occurrence {
	var out []Occurrence
	for _, r := range regions(ix, sym) {
		doc, ok := ix.Document(r.file)
		if !ok {
			continue
		}
		spans := ix.IgnoreSpans(r.file)
		for i := r.start; ; {
			k := lang.IndexWord(doc.Text, sym.Name, i)
			if k < 0 || k+len(sym.Name) > r.end {
				break
			}
			i = k + len(sym.Name)
			if span.Ignored(k, spans) {
				continue
			}
			out = append(out, Occurrence{
				File:  r.file,
				Start: k,
				End:   i,
				Range: doc.RangeOf(k, i),
			})
		}
	}
	slices.SortFunc(out, func(a, b Occurrence) int {
		return cmp.Or(cmp.Compare(a.File, b.File), cmp.Compare(a.Start, b.Start))
	})
	return out
}

// regions returns the extents searched for sym, with shadowed parts cut
// out.
func regions(ix Index, sym Symbol) []region {
	if sym.Variable == nil {
		var out []region
		for _, f := range ix.Files() {
			out = append(out, wholeFile(ix, f))
		}
		return out
	}

	v := sym.Variable
	switch v.Scope {
	case scope.Local:
		for _, r := range ix.FunctionRanges(v.File) {
			if r.Contains(v.DeclOffset) {
				return []region{{file: v.File, start: r.HeaderStart, end: r.BodyEnd}}
			}
		}
		return nil
	case scope.Module:
		return subtract(wholeFile(ix, v.File), shadows(ix, v.Name, v.File, false))
	default:
		var out []region
		for _, f := range ix.Files() {
			out = append(out, subtract(wholeFile(ix, f), shadows(ix, v.Name, f, true))...)
		}
		return out
	}
}

func wholeFile(ix Index, file string) region {
	n := 0
	if doc, ok := ix.Document(file); ok {
		n = len(doc.Text)
	}
	return region{file: file, end: n}
}

// shadows returns the parts of file where a narrower declaration of name
// hides an outer one: functions declaring a local of that name and, when
// module is set, the whole file if it declares a module variable.
func shadows(ix Index, name, file string, module bool) []span.Span {
	var out []span.Span
	ranges := ix.FunctionRanges(file)
	for _, v := range ix.Variables(name) {
		if v.File != file {
			continue
		}
		switch v.Scope {
		case scope.Module:
			if module {
				return []span.Span{{Start: 0, End: wholeFile(ix, file).end}}
			}
		case scope.Local:
			if r := extract.FunctionAt(ranges, v.DeclOffset); r != nil {
				out = append(out, span.Span{Start: r.HeaderStart, End: r.BodyEnd})
			}
		}
	}
	return span.Merge(out)
}

func subtract(r region, holes []span.Span) []region {
	var out []region
	pos := r.start
	for _, h := range holes {
		if h.Start > pos {
			out = append(out, region{file: r.file, start: pos, end: min(h.Start, r.end)})
		}
		pos = max(pos, h.End)
	}
	if pos < r.end {
		out = append(out, region{file: r.file, start: pos, end: r.end})
	}
	return out
}

// Rename plans the edits renaming sym to newName, keyed by file.
func Rename(ix Index, sym Symbol, newName string) (map[string][]Edit, error) {
	if !lang.IsIdent(newName) || lang.IsKeyword(newName) {
		return nil, fmt.Errorf("rename to %q: %w", newName, ErrInvalidName)
	}
	if sym.Function != nil && sym.Function.IsBuiltin() {
		return nil, fmt.Errorf("rename %s: %w", sym.Name, ErrBuiltin)
	}
	if lang.Key(newName) != lang.Key(sym.Name) {
		if err := checkConflict(ix, sym, newName); err != nil {
			return nil, err
		}
	}

	edits := make(map[string][]Edit)
	for _, o := range References(ix, sym) {
		edits[o.File] = append(edits[o.File], Edit{Start: o.Start, End: o.End, Range: o.Range, NewText: newName})
	}
	return edits, nil
}

func checkConflict(ix Index, sym Symbol, newName string) error {
	conflict := func(what string) error {
		return fmt.Errorf("rename %s to %s: %w by %s", sym.Name, newName, ErrConflict, what)
	}
	if sym.Function != nil {
		if fn, ok := ix.Function(newName); ok {
			return conflict("function " + fn.Name)
		}
		return nil
	}

	v := sym.Variable
	for _, other := range ix.Variables(newName) {
		switch {
		case v.Scope == scope.Local && other.ScopeID == v.ScopeID,
			v.Scope == scope.Module && other.File == v.File && other.Scope != scope.Local,
			v.Scope == scope.Global && other.Scope == scope.Global:
			return conflict(other.Scope.String() + " variable " + other.Name)
		}
	}
	return nil
}

// Apply returns text with edits applied. Edits must not overlap.
func Apply(text string, edits []Edit) (string, error) {
	sorted := slices.Clone(edits)
	slices.SortFunc(sorted, func(a, b Edit) int { return cmp.Compare(a.Start, b.Start) })

	var out []byte
	pos := 0
	for _, e := range sorted {
		if e.Start < pos || e.End < e.Start || e.End > len(text) {
			return "", fmt.Errorf("apply edit [%d,%d): out of order or out of range", e.Start, e.End)
		}
		out = append(out, text[pos:e.Start]...)
		out = append(out, e.NewText...)
		pos = e.End
	}
	out = append(out, text[pos:]...)
	return string(out), nil
}

// TextEdits converts edits to LSP form.
func TextEdits(edits []Edit) []protocol.TextEdit {
	out := make([]protocol.TextEdit, len(edits))
	for i, e := range edits {
		out[i] = protocol.TextEdit{Range: e.Range, NewText: e.NewText}
	}
	return out
}
