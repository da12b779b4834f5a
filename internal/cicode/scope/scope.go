// Package scope finds variable declarations and classifies them as local,
// module or global, and parses function parameter lists.
package scope

import (
	"strings"

	"github.com/albertocavalcante/cix/internal/cicode/extract"
	"github.com/albertocavalcante/cix/internal/cicode/lang"
	"github.com/albertocavalcante/cix/internal/cicode/scanner"
	"github.com/albertocavalcante/cix/internal/cicode/span"
	"github.com/albertocavalcante/cix/internal/cicode/textdoc"
)

// Kind is the scope of a declaration.
type Kind int

const (
	Local Kind = iota
	Module
	Global
)

func (k Kind) String() string {
	switch k {
	case Local:
		return "local"
	case Module:
		return "module"
	case Global:
		return "global"
	}
	return "unknown"
}

// Declaration is one declared variable name.
type Declaration struct {
	Name string
	Type string
	Kind Kind
	// Function is the enclosing function's name for declarations inside a
	// body, whatever their Kind. It is empty at module level.
	Function string
	// Offset is the byte offset of the name, not of the statement.
	Offset int
	End    int
}

// Scan returns every declaration in doc: first those inside each function
// body, then those in the module-level regions between functions.
func Scan(doc *textdoc.Document, spans []span.Span, ranges []extract.FunctionRange) []Declaration {
	var out []Declaration
	for _, r := range ranges {
		out = appendRegion(out, doc.Text, r.BodyStart, r.BodyEnd, spans, r.Name)
	}
	for _, region := range moduleRegions(len(doc.Text), ranges) {
		out = appendRegion(out, doc.Text, region.Start, region.End, spans, "")
	}
	return out
}

// moduleRegions returns the parts of the file outside every function,
// where a function covers its header and body.
func moduleRegions(n int, ranges []extract.FunctionRange) []span.Span {
	covered := make([]span.Span, 0, len(ranges))
	for _, r := range ranges {
		covered = append(covered, span.Span{Start: r.HeaderStart, End: r.BodyEnd})
	}
	covered = span.Merge(covered)

	var out []span.Span
	pos := 0
	for _, c := range covered {
		if c.Start > pos {
			out = append(out, span.Span{Start: pos, End: c.Start})
		}
		pos = max(pos, c.End)
	}
	if pos < n {
		out = append(out, span.Span{Start: pos, End: n})
	}
	return out
}

// appendRegion scans the statements of text[start:end].
func appendRegion(out []Declaration, text string, start, end int, spans []span.Span, fn string) []Declaration {
	for _, stmt := range statements(text, start, end, spans) {
		out = appendStatement(out, text, stmt, spans, fn)
	}
	return out
}

// statements splits text[start:end] at ';' and newlines outside spans.
func statements(text string, start, end int, spans []span.Span) []span.Span {
	var out []span.Span
	from := start
	for i := start; i < end; {
		if to := span.AdvancePast(i, spans); to != i {
			i = to
			continue
		}
		if c := text[i]; c == ';' || c == '\n' {
			if i > from {
				out = append(out, span.Span{Start: from, End: i})
			}
			from = i + 1
		}
		i++
	}
	if end > from {
		out = append(out, span.Span{Start: from, End: end})
	}
	return out
}

func appendStatement(out []Declaration, text string, stmt span.Span, spans []span.Span, fn string) []Declaration {
	words := Words(text, stmt.Start, stmt.End, spans)
	if len(words) < 2 {
		return out
	}
	qualifier := ""
	if lang.IsScopeQualifier(words[0].Text) {
		qualifier = strings.ToUpper(words[0].Text)
		words = words[1:]
	}
	if len(words) < 2 || !lang.IsType(words[0].Text) {
		return out
	}
	typ := strings.ToUpper(words[0].Text)

	kind := Module
	switch {
	case qualifier == lang.KwGlobal:
		kind = Global
	case fn != "":
		kind = Local
	}

	for _, arg := range scanner.SliceTopLevelArgSpans(text, words[0].End, stmt.End, spans) {
		name, off := leadingIdent(text, arg)
		if name == "" || lang.IsKeyword(name) {
			continue
		}
		out = append(out, Declaration{
			Name:     name,
			Type:     typ,
			Kind:     kind,
			Function: fn,
			Offset:   off,
			End:      off + len(name),
		})
	}
	return out
}

// leadingIdent returns the identifier starting an argument, which drops a
// default value or array dimensions following the name.
func leadingIdent(text string, arg span.Span) (string, int) {
	p := arg.Start
	for p < arg.End && (text[p] == ' ' || text[p] == '\t') {
		p++
	}
	if p >= arg.End || !lang.IsIdentStart(text[p]) {
		return "", 0
	}
	e := p
	for e < arg.End && lang.IsIdentChar(text[e]) {
		e++
	}
	return text[p:e], p
}

// Word is an identifier-like token with its offsets.
type Word struct {
	Text  string
	Start int
	End   int
}

// Words splits text[start:end] into whitespace-separated tokens, treating
// ignored regions as whitespace.
func Words(text string, start, end int, spans []span.Span) []Word {
	blank := span.Blank(text, start, end, spans)
	var out []Word
	for i := 0; i < len(blank); {
		if isSpace(blank[i]) {
			i++
			continue
		}
		j := i
		for j < len(blank) && !isSpace(blank[j]) {
			j++
		}
		out = append(out, Word{Text: blank[i:j], Start: start + i, End: start + j})
		i = j
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
