// Package scanner implements the single-pass character scanner used to
// match parentheses and split argument lists. It tracks quote, escape and
// paren-depth state and skips ignored regions in one jump each.
package scanner

import (
	"github.com/albertocavalcante/cix/internal/cicode/span"
)

// Escape is the escape character inside string literals.
const Escape = '^'

// Step describes one position reported to a Visitor.
type Step struct {
	// Pos is the offset of Char, or the origin of a jump.
	Pos int
	// Char is the byte at Pos. It is zero for jumps.
	Char byte
	// Depth is the paren depth after applying Char.
	Depth int
	// Jumped is set when the scanner skipped an ignored span starting at Pos
	// and landing at To. Callers see only the jump, not the skipped bytes.
	Jumped bool
	To     int
}

// Action tells Scan how to proceed after a step.
type Action int

const (
	// Continue scanning.
	Continue Action = iota
	// Stop and return the current step's position.
	Stop
	// StopAt stops and returns the position supplied with the action.
	StopAt
)

// Visitor is called for each reported step. The int result is only read
// for StopAt.
type Visitor func(Step) (Action, int)

type state int

const (
	normal state = iota
	inDouble
	inSingle
)

// Scan walks text[start:end], calling visit for every code character,
// every quote that opens or closes a string, and every jump over an
// ignored span. String interiors are opaque. It returns the position chosen
// by the visitor, or -1 if the range was exhausted.
func Scan(text string, start, end int, spans []span.Span, visit Visitor) int {
	if end > len(text) {
		end = len(text)
	}
	st := normal
	escaped := false
	depth := 0

	for pos := max(start, 0); pos < end; {
		if st == normal {
			if to := span.AdvancePast(pos, spans); to != pos {
				to = min(to, end)
				if act, at := visit(Step{Pos: pos, Depth: depth, Jumped: true, To: to}); act != Continue {
					return result(act, pos, at)
				}
				pos = to
				continue
			}
		}

		c := text[pos]
		switch st {
		case inDouble, inSingle:
			switch {
			case c == '\n':
				st, escaped = normal, false
				continue
			case escaped:
				escaped = false
			case c == Escape:
				escaped = true
			case (c == '"' && st == inDouble) || (c == '\'' && st == inSingle):
				st = normal
				if act, at := visit(Step{Pos: pos, Char: c, Depth: depth}); act != Continue {
					return result(act, pos, at)
				}
			}
			pos++
			continue
		}

		switch c {
		case '(':
			depth++
		case ')':
			depth--
		}
		if act, at := visit(Step{Pos: pos, Char: c, Depth: depth}); act != Continue {
			return result(act, pos, at)
		}
		switch c {
		case '"':
			st = inDouble
		case '\'':
			st = inSingle
		}
		pos++
	}
	return -1
}

func result(act Action, pos, at int) int {
	if act == StopAt {
		return at
	}
	return pos
}

// FindMatchingParen returns the offset of the ')' closing the '(' at
// openPos, or -1 if it is not closed before end.
func FindMatchingParen(text string, openPos, end int, spans []span.Span) int {
	if openPos < 0 || openPos >= len(text) || text[openPos] != '(' {
		return -1
	}
	return Scan(text, openPos+1, end, spans, func(s Step) (Action, int) {
		if s.Char == ')' && s.Depth < 0 {
			return Stop, 0
		}
		return Continue, 0
	})
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// CountArgsTopLevel counts the comma-separated arguments in
// text[start:end], the interior of an argument list. Commas nested in
// parens or strings do not split. Whitespace-only input yields 0; every
// top-level comma separates two arguments even when they are empty.
func CountArgsTopLevel(text string, start, end int, spans []span.Span) int {
	count := 0
	seen := false
	comma := false
	Scan(text, start, end, spans, func(s Step) (Action, int) {
		switch {
		case s.Jumped:
			seen = true
		case s.Char == ',' && s.Depth == 0:
			count++
			comma = true
			seen = false
		case !isSpace(s.Char):
			seen = true
		}
		return Continue, 0
	})
	if seen || comma {
		count++
	}
	return count
}

// SliceTopLevelArgSpans returns the extent of each top-level argument in
// text[start:end], trimmed of surrounding whitespace. An argument that
// begins with an ignored region starts at that region's origin. Empty
// arguments are omitted.
func SliceTopLevelArgSpans(text string, start, end int, spans []span.Span) []span.Span {
	var out []span.Span
	runStart, runEnd := -1, -1
	flush := func() {
		if runStart >= 0 && runEnd > runStart {
			out = append(out, span.Span{Start: runStart, End: runEnd})
		}
		runStart, runEnd = -1, -1
	}
	Scan(text, start, end, spans, func(s Step) (Action, int) {
		switch {
		case s.Jumped:
			if runStart < 0 {
				runStart = s.Pos
			}
			runEnd = s.To
		case s.Char == ',' && s.Depth == 0:
			flush()
		case !isSpace(s.Char):
			if runStart < 0 {
				runStart = s.Pos
			}
			runEnd = s.Pos + 1
		}
		return Continue, 0
	})
	flush()
	return out
}
