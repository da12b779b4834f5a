// Package textdoc provides the text-read capability shared by the indexer
// and its consumers: an immutable Document with offset/position conversion,
// and an Overlay that lets open editor buffers shadow files on disk.
package textdoc

import (
	"sort"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"go.lsp.dev/protocol"

	"github.com/albertocavalcante/cix/internal/cicode/lang"
)

// Document is a snapshot of one file's text.
//
// Offsets are byte offsets into Text. Positions are 0-based lines with
// UTF-16 character columns, as used by the language server protocol.
type Document struct {
	Path string
	Text string

	lineStarts []int
}

// New returns a Document for text. Line starts are computed eagerly.
func New(path, text string) *Document {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Document{Path: path, Text: text, lineStarts: starts}
}

// LineCount returns the number of lines. An empty document has one line.
func (d *Document) LineCount() int {
	return len(d.lineStarts)
}

// LineStart returns the offset of the first byte of line.
func (d *Document) LineStart(line int) int {
	if line <= 0 {
		return 0
	}
	if line >= len(d.lineStarts) {
		return len(d.Text)
	}
	return d.lineStarts[line]
}

// LineEnd returns the offset of the newline ending line, or len(Text).
// A trailing carriage return is excluded.
func (d *Document) LineEnd(line int) int {
	if line < 0 {
		return 0
	}
	end := len(d.Text)
	if line+1 < len(d.lineStarts) {
		end = d.lineStarts[line+1] - 1
	}
	if end > d.LineStart(line) && d.Text[end-1] == '\r' {
		end--
	}
	return end
}

// LineOf returns the 0-based line containing offset.
func (d *Document) LineOf(offset int) int {
	offset = d.clamp(offset)
	return sort.Search(len(d.lineStarts), func(i int) bool {
		return d.lineStarts[i] > offset
	}) - 1
}

// Line returns the text of line without its terminator.
func (d *Document) Line(line int) string {
	if line < 0 || line >= len(d.lineStarts) {
		return ""
	}
	return d.Text[d.LineStart(line):d.LineEnd(line)]
}

// PositionAt converts a byte offset to a Position.
func (d *Document) PositionAt(offset int) protocol.Position {
	offset = d.clamp(offset)
	line := d.LineOf(offset)
	return protocol.Position{
		Line:      uint32(line),
		Character: uint32(utf16Len(d.Text[d.lineStarts[line]:offset])),
	}
}

// OffsetAt converts a Position to a byte offset. Positions past the end of
// a line clamp to the line end; positions past the last line clamp to the
// end of the text.
func (d *Document) OffsetAt(pos protocol.Position) int {
	line := int(pos.Line)
	if line >= len(d.lineStarts) {
		return len(d.Text)
	}
	start, end := d.LineStart(line), d.LineEnd(line)
	units := int(pos.Character)
	off := start
	for off < end && units > 0 {
		r, size := utf8.DecodeRuneInString(d.Text[off:end])
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if n > units {
			break
		}
		units -= n
		off += size
	}
	return off
}

// RangeOf converts a byte interval to a Range.
func (d *Document) RangeOf(start, end int) protocol.Range {
	return protocol.Range{Start: d.PositionAt(start), End: d.PositionAt(end)}
}

// WordAt returns the identifier under pos, with its byte bounds.
func (d *Document) WordAt(pos protocol.Position) (word string, start, end int) {
	return lang.WordAt(d.Text, d.OffsetAt(pos))
}

func (d *Document) clamp(offset int) int {
	if offset < 0 {
		return 0
	}
	if offset > len(d.Text) {
		return len(d.Text)
	}
	return offset
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// URIFromPath converts a file path to a file:// URI.
func URIFromPath(path string) protocol.DocumentURI {
	p := strings.ReplaceAll(path, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return protocol.DocumentURI("file://" + p)
}

// PathFromURI converts a file:// URI to a path. Other values are returned
// unchanged.
func PathFromURI(uri protocol.DocumentURI) string {
	s := string(uri)
	if strings.HasPrefix(s, "file://") {
		return s[len("file://"):]
	}
	return s
}
