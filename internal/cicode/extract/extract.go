// Package extract finds function declarations in a Cicode file and
// computes the extent of each function body.
package extract

import (
	"strings"

	"go.lsp.dev/protocol"

	"github.com/albertocavalcante/cix/internal/cicode/doccomment"
	"github.com/albertocavalcante/cix/internal/cicode/lang"
	"github.com/albertocavalcante/cix/internal/cicode/scanner"
	"github.com/albertocavalcante/cix/internal/cicode/span"
	"github.com/albertocavalcante/cix/internal/cicode/textdoc"
)

const (
	// maxParenWindow bounds the multi-line search for a header's close paren.
	maxParenWindow = 4096
	// maxTypeLines bounds the backward search for a standalone return type.
	maxTypeLines = 5
)

// FunctionRange is the structural record of one function declaration.
type FunctionRange struct {
	Name string

	// HeaderStart is the start of the first line of the declaration,
	// including any return type and modifier lines above the keyword.
	HeaderStart int
	HeaderPos   protocol.Position

	KeywordOffset int
	NameOffset    int
	NamePos       protocol.Position
	NameRange     protocol.Range

	// ParamText is the raw text between the parentheses, starting at
	// ParamOffset. CloseParen is the offset of the closing ')'.
	ParamText   string
	ParamOffset int
	CloseParen  int

	ReturnType string

	// BodyStart follows the close paren; BodyEnd is just past the END
	// that closes the function, or the next header when none is found.
	BodyStart int
	BodyEnd   int
	BodyRange protocol.Range

	Doc doccomment.Doc
}

// Contains reports whether offset lies in [HeaderStart, BodyEnd).
func (r *FunctionRange) Contains(offset int) bool {
	return offset >= r.HeaderStart && offset < r.BodyEnd
}

// InBody reports whether offset lies in [BodyStart, BodyEnd).
func (r *FunctionRange) InBody(offset int) bool {
	return offset >= r.BodyStart && offset < r.BodyEnd
}

// Functions returns the functions declared in doc, in source order. spans
// must be the file's ignore spans computed without header marking.
// Malformed declarations are skipped.
func Functions(doc *textdoc.Document, spans []span.Span) []FunctionRange {
	text := doc.Text
	var out []FunctionRange
	for pos := 0; ; {
		k := lang.IndexWord(text, lang.KwFunction, pos)
		if k < 0 {
			break
		}
		pos = k + len(lang.KwFunction)
		if span.Ignored(k, spans) {
			continue
		}
		r, ok := header(doc, spans, k)
		if !ok {
			continue
		}
		out = append(out, r)
		pos = r.CloseParen + 1
	}

	for i := range out {
		bound := len(text)
		if i+1 < len(out) {
			bound = out[i+1].HeaderStart
		}
		r := &out[i]
		r.BodyStart = r.CloseParen + 1
		r.BodyEnd = bodyEnd(text, r.BodyStart, bound, spans)
		r.BodyRange = doc.RangeOf(r.BodyStart, r.BodyEnd)
	}
	return out
}

// header parses the declaration whose FUNCTION keyword is at k.
func header(doc *textdoc.Document, spans []span.Span, k int) (FunctionRange, bool) {
	text := doc.Text
	p := skipToName(text, k+len(lang.KwFunction), spans)
	if p >= len(text) || !lang.IsIdentStart(text[p]) {
		return FunctionRange{}, false
	}
	nameEnd := p
	for nameEnd < len(text) && lang.IsIdentChar(text[nameEnd]) {
		nameEnd++
	}
	name := text[p:nameEnd]
	if lang.IsKeyword(name) {
		return FunctionRange{}, false
	}

	open := nameEnd
	for open < len(text) && (text[open] == ' ' || text[open] == '\t') {
		open++
	}
	if open >= len(text) || text[open] != '(' {
		return FunctionRange{}, false
	}

	lineEnd := doc.LineEnd(doc.LineOf(open))
	closeAt := scanner.FindMatchingParen(text, open, lineEnd, spans)
	if closeAt < 0 {
		closeAt = scanner.FindMatchingParen(text, open, min(len(text), open+maxParenWindow), spans)
	}
	if closeAt < 0 {
		return FunctionRange{}, false
	}

	retType, start := returnType(doc, spans, k)
	r := FunctionRange{
		Name:          name,
		HeaderStart:   start,
		HeaderPos:     doc.PositionAt(start),
		KeywordOffset: k,
		NameOffset:    p,
		NamePos:       doc.PositionAt(p),
		NameRange:     doc.RangeOf(p, nameEnd),
		ParamText:     text[open+1 : closeAt],
		ParamOffset:   open + 1,
		CloseParen:    closeAt,
		ReturnType:    retType,
	}
	r.Doc = doccomment.Extract(text, start)
	return r, true
}

// skipToName moves past horizontal whitespace, same-line comments and at
// most one line break following the keyword.
func skipToName(text string, p int, spans []span.Span) int {
	broke := false
	for p < len(text) {
		if to := span.AdvancePast(p, spans); to != p {
			p = to
			continue
		}
		switch c := text[p]; {
		case c == ' ' || c == '\t' || c == '\r':
			p++
		case c == '\n' && !broke:
			broke = true
			p++
		default:
			return p
		}
	}
	return p
}

// returnType infers the declared return type for the keyword at k and the
// offset where the header begins.
func returnType(doc *textdoc.Document, spans []span.Span, k int) (string, int) {
	text := doc.Text
	line := doc.LineOf(k)
	lineStart := doc.LineStart(line)

	words := strings.Fields(span.Blank(text, lineStart, k, spans))
	if len(words) > 0 {
		last := words[len(words)-1]
		switch {
		case lang.IsType(last) && modifiersOnly(words[:len(words)-1]):
			return strings.ToUpper(last), extendOverModifiers(doc, spans, line)
		case !modifiersOnly(words):
			return lang.Void, lineStart
		}
	}

	seen := 0
	for l := line - 1; l >= 0 && seen < maxTypeLines; l-- {
		words := strings.Fields(span.Blank(text, doc.LineStart(l), doc.LineEnd(l), spans))
		if len(words) == 0 {
			continue
		}
		seen++
		code := strings.Join(words, " ")
		if strings.Contains(code, ";") || isBoundary(words[0]) {
			break
		}
		if modifiersOnly(words) {
			continue
		}
		last := words[len(words)-1]
		if lang.IsType(last) && modifiersOnly(words[:len(words)-1]) {
			return strings.ToUpper(last), extendOverModifiers(doc, spans, l)
		}
		break
	}
	return lang.Void, extendOverModifiers(doc, spans, line)
}

// extendOverModifiers returns the start of the topmost line in the
// contiguous run of modifier-only lines directly above line.
func extendOverModifiers(doc *textdoc.Document, spans []span.Span, line int) int {
	for line > 0 {
		words := strings.Fields(span.Blank(doc.Text, doc.LineStart(line-1), doc.LineEnd(line-1), spans))
		if len(words) == 0 || !modifiersOnly(words) {
			break
		}
		line--
	}
	return doc.LineStart(line)
}

func modifiersOnly(words []string) bool {
	for _, w := range words {
		if !lang.IsModifier(w) {
			return false
		}
	}
	return true
}

func isBoundary(word string) bool {
	w := strings.ToUpper(word)
	return lang.IsControl(w) || w == lang.KwFunction || w == lang.KwEnd ||
		lang.IsScopeQualifier(w)
}

// bodyEnd tracks block nesting from start and returns the offset just past
// the END that closes the function body, or bound when none is found.
func bodyEnd(text string, start, bound int, spans []span.Span) int {
	depth := 1
	w := wordIter{text: text, pos: start, end: bound, spans: spans}
	for {
		word, _, end, ok := w.next()
		if !ok {
			return bound
		}
		switch strings.ToUpper(word) {
		case lang.KwSelect:
			if next, _, nextEnd, ok := w.peekSameLine(); ok && strings.EqualFold(next, lang.KwCase) {
				depth++
				w.pos = nextEnd
			}
		case lang.KwEnd:
			depth--
			if next, _, nextEnd, ok := w.peekSameLine(); ok && strings.EqualFold(next, lang.KwSelect) {
				end = nextEnd
				w.pos = nextEnd
			}
			if depth == 0 {
				return end
			}
		default:
			if lang.IsBlockOpener(word) {
				depth++
			}
		}
	}
}

// wordIter iterates identifiers in text[pos:end] outside ignore spans.
type wordIter struct {
	text  string
	pos   int
	end   int
	spans []span.Span
}

func (w *wordIter) next() (word string, start, end int, ok bool) {
	for w.pos < w.end {
		if to := span.AdvancePast(w.pos, w.spans); to != w.pos {
			w.pos = to
			continue
		}
		c := w.text[w.pos]
		if !lang.IsIdentChar(c) {
			w.pos++
			continue
		}
		start = w.pos
		for w.pos < w.end && lang.IsIdentChar(w.text[w.pos]) {
			w.pos++
		}
		if !lang.IsIdentStart(w.text[start]) {
			continue
		}
		return w.text[start:w.pos], start, w.pos, true
	}
	return "", 0, 0, false
}

// peekSameLine returns the next identifier if only horizontal whitespace
// separates it from the current position. The iterator does not advance.
func (w *wordIter) peekSameLine() (word string, start, end int, ok bool) {
	p := w.pos
	for p < w.end && (w.text[p] == ' ' || w.text[p] == '\t') {
		p++
	}
	if p >= w.end || !lang.IsIdentStart(w.text[p]) || span.Ignored(p, w.spans) {
		return "", 0, 0, false
	}
	e := p
	for e < w.end && lang.IsIdentChar(w.text[e]) {
		e++
	}
	return w.text[p:e], p, e, true
}

// FunctionAt returns the range containing offset, or nil.
func FunctionAt(ranges []FunctionRange, offset int) *FunctionRange {
	for i := range ranges {
		if ranges[i].HeaderStart > offset {
			break
		}
		if ranges[i].Contains(offset) {
			return &ranges[i]
		}
	}
	return nil
}

// Duplicates groups ranges whose names collide case-insensitively, in
// order of first appearance. Names declared once are omitted.
func Duplicates(ranges []FunctionRange) [][]FunctionRange {
	groups := make(map[string][]FunctionRange)
	var order []string
	for _, r := range ranges {
		key := lang.Key(r.Name)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}
	var out [][]FunctionRange
	for _, key := range order {
		if len(groups[key]) > 1 {
			out = append(out, groups[key])
		}
	}
	return out
}
