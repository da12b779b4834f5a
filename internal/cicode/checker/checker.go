// Package checker reports heuristic diagnostics over an indexed workspace.
//
// The checks only use what the index knows:
//   - functions defined more than once in a file
//   - calls whose argument count does not fit the declaration
//   - calls to names absent from the function table, reported only when
//     the table was seeded with builtins
package checker

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/albertocavalcante/cix/internal/cicode/extract"
	"github.com/albertocavalcante/cix/internal/cicode/indexer"
	"github.com/albertocavalcante/cix/internal/cicode/lang"
	"github.com/albertocavalcante/cix/internal/cicode/scanner"
	"github.com/albertocavalcante/cix/internal/cicode/span"
	"github.com/albertocavalcante/cix/internal/cicode/textdoc"
)

// Diagnostic codes.
const (
	CodeDuplicateFunction = "duplicate-function"
	CodeWrongArgCount     = "wrong-arg-count"
	CodeUnknownFunction   = "unknown-function"
)

// Codes lists every diagnostic code.
var Codes = []string{CodeDuplicateFunction, CodeWrongArgCount, CodeUnknownFunction}

// Diagnostic represents a single issue found during checking.
type Diagnostic struct {
	File  string
	Range protocol.Range

	// Severity indicates the severity of the issue.
	Severity Severity

	// Code is a unique identifier for this diagnostic type.
	Code string

	// Message is a human-readable description of the issue.
	Message string
}

// Severity indicates the severity of a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Protocol converts s to its LSP severity.
func (s Severity) Protocol() protocol.DiagnosticSeverity {
	switch s {
	case SeverityError:
		return protocol.DiagnosticSeverityError
	case SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	default:
		return protocol.DiagnosticSeverityInformation
	}
}

// Result holds the results of checking one or more files.
type Result struct {
	Diagnostics []Diagnostic
	FileCount   int
}

// ErrorCount returns the number of error-level diagnostics.
func (r *Result) ErrorCount() int {
	return r.count(SeverityError)
}

// WarningCount returns the number of warning-level diagnostics.
func (r *Result) WarningCount() int {
	return r.count(SeverityWarning)
}

func (r *Result) count(s Severity) int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity == s {
			n++
		}
	}
	return n
}

// Index is the part of the indexer the checker reads.
type Index interface {
	Files() []string
	Document(file string) (*textdoc.Document, bool)
	FunctionRanges(file string) []extract.FunctionRange
	Function(name string) (indexer.Function, bool)
	Builtins() bool
}

// Options configures the checker.
type Options struct {
	// Disable lists diagnostic codes that are never reported.
	Disable []string
}

// Checker runs the checks against an index.
type Checker struct {
	index    Index
	disabled map[string]bool
}

// New creates a Checker.
func New(index Index, opts Options) *Checker {
	c := &Checker{index: index, disabled: make(map[string]bool)}
	for _, code := range opts.Disable {
		c.disabled[strings.ToLower(code)] = true
	}
	return c
}

// Check runs every enabled check over every indexed file.
func (c *Checker) Check() Result {
	files := c.index.Files()
	res := Result{FileCount: len(files)}
	for _, f := range files {
		res.Diagnostics = append(res.Diagnostics, c.CheckFile(f)...)
	}
	return res
}

// CheckFile runs every enabled check over one indexed file. Diagnostics
// are ordered by position.
func (c *Checker) CheckFile(file string) []Diagnostic {
	doc, ok := c.index.Document(file)
	if !ok {
		return nil
	}
	var out []Diagnostic
	if !c.disabled[CodeDuplicateFunction] {
		out = append(out, c.duplicates(file)...)
	}
	if !c.disabled[CodeWrongArgCount] || !c.disabled[CodeUnknownFunction] {
		out = append(out, c.calls(doc)...)
	}
	slices.SortStableFunc(out, func(a, b Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.Range.Start.Line, b.Range.Start.Line),
			cmp.Compare(a.Range.Start.Character, b.Range.Start.Character),
		)
	})
	return out
}

func (c *Checker) duplicates(file string) []Diagnostic {
	var out []Diagnostic
	for _, group := range extract.Duplicates(c.index.FunctionRanges(file)) {
		first := group[0]
		for _, r := range group[1:] {
			out = append(out, Diagnostic{
				File:     file,
				Range:    r.NameRange,
				Severity: SeverityError,
				Code:     CodeDuplicateFunction,
				Message:  fmt.Sprintf("function %s is already defined at line %d", r.Name, first.NamePos.Line+1),
			})
		}
	}
	return out
}

func (c *Checker) calls(doc *textdoc.Document) []Diagnostic {
	var out []Diagnostic
	spans := span.Compute(doc.Text, span.Options{Headers: true})
	for _, call := range Calls(doc.Text, spans) {
		fn, ok := c.index.Function(call.Name)
		rng := doc.RangeOf(call.Start, call.End)
		if !ok {
			if !c.disabled[CodeUnknownFunction] && c.index.Builtins() {
				out = append(out, Diagnostic{
					File:     doc.Path,
					Range:    rng,
					Severity: SeverityWarning,
					Code:     CodeUnknownFunction,
					Message:  fmt.Sprintf("unknown function %s", call.Name),
				})
			}
			continue
		}
		if c.disabled[CodeWrongArgCount] || call.Close < 0 {
			continue
		}
		lo, hi := Arity(fn.Params)
		if call.Args >= lo && call.Args <= hi {
			continue
		}
		out = append(out, Diagnostic{
			File:     doc.Path,
			Range:    rng,
			Severity: SeverityError,
			Code:     CodeWrongArgCount,
			Message:  fmt.Sprintf("%s expects %s, got %d", fn.Name, expected(lo, hi), call.Args),
		})
	}
	return out
}

func expected(lo, hi int) string {
	plural := func(n int) string {
		if n == 1 {
			return "1 argument"
		}
		return fmt.Sprintf("%d arguments", n)
	}
	if lo == hi {
		return plural(hi)
	}
	return fmt.Sprintf("%d to %s", lo, plural(hi))
}

// Arity returns the minimum and maximum argument counts accepted by a
// parameter list. Parameters with a default or in brackets are optional.
func Arity(params []string) (lo, hi int) {
	for _, p := range params {
		if !Optional(p) {
			lo++
		}
	}
	return lo, len(params)
}

// Optional reports whether the raw parameter p may be omitted.
func Optional(p string) bool {
	p = strings.TrimSpace(p)
	return strings.HasPrefix(p, "[") || strings.Contains(p, "=")
}

// Call is one call site.
type Call struct {
	Name  string
	Start int
	End   int
	// Open is the offset of '('; Close is the matching ')' or -1.
	Open  int
	Close int
	Args  int
}

// Calls returns the call sites in text: identifiers outside spans followed
// by '('. spans should include header spans so declarations are skipped.
func Calls(text string, spans []span.Span) []Call {
	var out []Call
	for i := 0; i < len(text); {
		if to := span.AdvancePast(i, spans); to != i {
			i = to
			continue
		}
		if !lang.IsIdentStart(text[i]) || (i > 0 && lang.IsIdentChar(text[i-1])) {
			i++
			continue
		}
		start := i
		for i < len(text) && lang.IsIdentChar(text[i]) {
			i++
		}
		name := text[start:i]
		open := i
		for open < len(text) && (text[open] == ' ' || text[open] == '\t') {
			open++
		}
		if open >= len(text) || text[open] != '(' || lang.IsKeyword(name) {
			continue
		}
		call := Call{Name: name, Start: start, End: i, Open: open, Close: -1}
		if end := scanner.FindMatchingParen(text, open, len(text), spans); end >= 0 {
			call.Close = end
			call.Args = scanner.CountArgsTopLevel(text, open+1, end, spans)
		}
		out = append(out, call)
	}
	return out
}

// CallAt returns the innermost call whose argument list contains offset,
// and the index of the argument offset falls in.
func CallAt(text string, spans []span.Span, offset int) (Call, int, bool) {
	var best Call
	found := false
	for _, c := range Calls(text, spans) {
		end := c.Close
		if end < 0 {
			end = len(text)
		}
		if offset <= c.Open || offset > end {
			continue
		}
		if !found || c.Open > best.Open {
			best, found = c, true
		}
	}
	if !found {
		return Call{}, 0, false
	}
	arg := 0
	scanner.Scan(text, best.Open+1, offset, spans, func(s scanner.Step) (scanner.Action, int) {
		if s.Char == ',' && s.Depth == 0 {
			arg++
		}
		return scanner.Continue, 0
	})
	return best, arg, true
}
