// Package span computes and queries ignore spans: sorted, non-overlapping
// half-open byte intervals marking comments, string literals and
// (optionally) function headers within a source buffer.
package span

import (
	"slices"
	"sort"
	"strings"

	"github.com/albertocavalcante/cix/internal/cicode/lang"
)

// Span is a half-open byte interval [Start, End).
type Span struct {
	Start int
	End   int
}

// Contains reports whether pos lies in [Start, End).
func (s Span) Contains(pos int) bool {
	return pos >= s.Start && pos < s.End
}

// Len returns the number of bytes covered.
func (s Span) Len() int {
	return s.End - s.Start
}

// Merge returns spans sorted by start with overlapping and adjacent
// intervals folded together. Empty spans are dropped. The input is not
// modified.
func Merge(spans []Span) []Span {
	out := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.End > s.Start {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	slices.SortFunc(out, func(a, b Span) int {
		if a.Start != b.Start {
			return a.Start - b.Start
		}
		return a.End - b.End
	})

	merged := out[:1]
	for _, s := range out[1:] {
		last := &merged[len(merged)-1]
		if s.Start <= last.End {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// Contains reports whether pos falls inside any of the sorted spans.
func Contains(pos int, spans []Span) bool {
	for _, s := range spans {
		if s.Start > pos {
			return false
		}
		if pos < s.End {
			return true
		}
	}
	return false
}

// AdvancePast returns the end of the span containing pos, or pos itself
// when pos is not ignored. spans must be merged.
func AdvancePast(pos int, spans []Span) int {
	i := sort.Search(len(spans), func(i int) bool {
		return spans[i].End > pos
	})
	if i < len(spans) && spans[i].Start <= pos {
		return spans[i].End
	}
	return pos
}

// Ignored reports whether pos is inside a span, in O(log n).
func Ignored(pos int, spans []Span) bool {
	return AdvancePast(pos, spans) != pos
}

// Blank returns text[start:end] with every ignored byte replaced by a
// space, so callers can tokenize code without tripping over comments or
// literals while keeping offsets aligned. Newlines are preserved.
func Blank(text string, start, end int, spans []Span) string {
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	if start >= end {
		return ""
	}
	b := []byte(text[start:end])
	i := sort.Search(len(spans), func(i int) bool { return spans[i].End > start })
	for ; i < len(spans) && spans[i].Start < end; i++ {
		from := max(spans[i].Start, start)
		to := min(spans[i].End, end)
		for j := from; j < to; j++ {
			if b[j-start] != '\n' {
				b[j-start] = ' '
			}
		}
	}
	return string(b)
}

// Options controls which regions Compute marks.
type Options struct {
	// Headers additionally marks each function header, from the start of
	// the FUNCTION keyword's line through its closing parenthesis. Call-site
	// scans use this so declarations are not mistaken for calls.
	Headers bool
}

// maxHeaderParen bounds the forward search for a header's closing paren.
const maxHeaderParen = 4096

// Compute scans text once and returns the merged ignore spans.
//
// Strings are delimited by " or ' and end at an unescaped matching quote or
// at end of line; ^ escapes the following character. Comments are /* */,
// // to end of line, and ! to end of line when the ! is the first token on
// its line or follows a non-identifier character.
func Compute(text string, opts Options) []Span {
	var spans []Span
	n := len(text)
	lineStart := true

	for i := 0; i < n; {
		c := text[i]
		switch {
		case c == '\n':
			lineStart = true
			i++
			continue

		case c == '"' || c == '\'':
			end := stringEnd(text, i)
			spans = append(spans, Span{Start: i, End: end})
			lineStart = false
			i = end
			continue

		case c == '/' && i+1 < n && text[i+1] == '*':
			end := n
			if k := strings.Index(text[i+2:], "*/"); k >= 0 {
				end = i + 2 + k + 2
			}
			spans = append(spans, Span{Start: i, End: end})
			lineStart = false
			i = end
			continue

		case c == '/' && i+1 < n && text[i+1] == '/',
			c == '!' && (lineStart || !lang.IsIdentChar(text[i-1])):
			end := lineEnd(text, i)
			spans = append(spans, Span{Start: i, End: end})
			i = end
			continue
		}

		if c != ' ' && c != '\t' && c != '\r' {
			lineStart = false
		}
		i++
	}

	spans = Merge(spans)
	if opts.Headers {
		spans = Merge(append(spans, headerSpans(text, spans)...))
	}
	return spans
}

// stringEnd returns the offset just past the literal starting at open.
func stringEnd(text string, open int) int {
	quote := text[open]
	for j := open + 1; j < len(text); j++ {
		switch text[j] {
		case '^':
			if j+1 < len(text) && text[j+1] != '\n' {
				j++
			}
		case '\n':
			return j
		case quote:
			return j + 1
		}
	}
	return len(text)
}

// lineEnd returns the offset of the newline ending the line containing i,
// or len(text).
func lineEnd(text string, i int) int {
	if k := strings.IndexByte(text[i:], '\n'); k >= 0 {
		return i + k
	}
	return len(text)
}

// headerSpans finds every FUNCTION keyword outside spans and covers its
// header from line start to the matching close paren.
func headerSpans(text string, spans []Span) []Span {
	var out []Span
	for pos := 0; ; {
		k := lang.IndexWord(text, lang.KwFunction, pos)
		if k < 0 {
			return out
		}
		pos = k + len(lang.KwFunction)
		if Ignored(k, spans) {
			continue
		}
		open := strings.IndexByte(text[pos:], '(')
		if open < 0 {
			return out
		}
		open += pos
		closeAt := closeParen(text, open, spans)
		if closeAt < 0 {
			continue
		}
		start := strings.LastIndexByte(text[:k], '\n') + 1
		out = append(out, Span{Start: start, End: closeAt + 1})
		pos = closeAt + 1
	}
}

// closeParen is a minimal depth matcher over code text. The full
// state machine lives in package scanner, which depends on this package.
func closeParen(text string, open int, spans []Span) int {
	depth := 0
	limit := min(len(text), open+maxHeaderParen)
	for i := open; i < limit; i++ {
		if j := AdvancePast(i, spans); j != i {
			i = j - 1
			continue
		}
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
