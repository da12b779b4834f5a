package scope

import (
	"strings"

	"github.com/albertocavalcante/cix/internal/cicode/lang"
	"github.com/albertocavalcante/cix/internal/cicode/scanner"
	"github.com/albertocavalcante/cix/internal/cicode/span"
)

// Param is one entry of a function's parameter list.
type Param struct {
	Name string
	// Type is upper-cased when it is a known type keyword and lang.Unknown
	// when the parameter has no type token.
	Type    string
	Default string
	Offset  int
	// Raw is the parameter text with whitespace collapsed.
	Raw string
}

// Optional reports whether the parameter has a default value.
func (p Param) Optional() bool {
	return p.Default != ""
}

// Params parses the parameter list text[start:end], the interior of a
// header's parentheses. Entries without a recognizable name are skipped.
func Params(text string, start, end int, spans []span.Span) []Param {
	var out []Param
	for _, arg := range scanner.SliceTopLevelArgSpans(text, start, end, spans) {
		if p, ok := param(text, arg, spans); ok {
			out = append(out, p)
		}
	}
	return out
}

func param(text string, arg span.Span, spans []span.Span) (Param, bool) {
	p := Param{Raw: strings.Join(strings.Fields(text[arg.Start:arg.End]), " ")}

	declEnd := arg.End
	if eq := indexCode(text, arg.Start, arg.End, '=', spans); eq >= 0 {
		p.Default = strings.TrimSpace(text[eq+1 : arg.End])
		declEnd = eq
	}

	var words []Word
	for _, w := range Words(text, arg.Start, declEnd, spans) {
		w = trimBrackets(w)
		if w.Text != "" {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return Param{}, false
	}

	name := words[len(words)-1]
	name.Text, name.End = identPrefix(name)
	if !lang.IsIdent(name.Text) || lang.IsKeyword(name.Text) {
		return Param{}, false
	}
	p.Name = name.Text
	p.Offset = name.Start
	p.Type = lang.Unknown
	if len(words) >= 2 {
		typ := words[len(words)-2].Text
		if lang.IsType(typ) {
			typ = strings.ToUpper(typ)
		}
		p.Type = typ
	}
	return p, true
}

// indexCode returns the first offset of c in text[start:end] outside spans.
func indexCode(text string, start, end int, c byte, spans []span.Span) int {
	for i := start; i < end; {
		if to := span.AdvancePast(i, spans); to != i {
			i = to
			continue
		}
		if text[i] == c {
			return i
		}
		i++
	}
	return -1
}

// trimBrackets strips the square brackets that mark optional parameters
// in some declarations.
func trimBrackets(w Word) Word {
	for strings.HasPrefix(w.Text, "[") {
		w.Text = w.Text[1:]
		w.Start++
	}
	for strings.HasSuffix(w.Text, "]") {
		w.Text = w.Text[:len(w.Text)-1]
		w.End--
	}
	return w
}

// identPrefix cuts a word at the first non-identifier byte, dropping array
// dimensions such as "buf[10".
func identPrefix(w Word) (string, int) {
	i := 0
	for i < len(w.Text) && lang.IsIdentChar(w.Text[i]) {
		i++
	}
	return w.Text[:i], w.Start + i
}
