package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Writef writes formatted output to the writer, ignoring write errors.
func Writef(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

// Writeln writes a line to the writer, ignoring write errors.
func Writeln(w io.Writer, args ...any) {
	_, _ = fmt.Fprintln(w, args...)
}

// Write writes a string to the writer, ignoring write errors.
//
// Example:
//
//	cli.Write(stdout, diff)
func Write(w io.Writer, s string) {
	_, _ = io.WriteString(w, s)
}

// UseColor reports whether output to w is coloured for mode "always",
// "never" or "auto". In auto mode w must be a terminal and NO_COLOR unset.
func UseColor(w io.Writer, mode string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Painter colours output when enabled.
type Painter struct {
	enabled bool
}

// NewPainter returns a painter for w in the given color mode.
func NewPainter(w io.Writer, mode string) Painter {
	return Painter{enabled: UseColor(w, mode)}
}

func (p Painter) paint(s string, attrs ...color.Attribute) string {
	c := color.New(attrs...)
	if p.enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(s)
}

// Error renders s as an error label.
func (p Painter) Error(s string) string { return p.paint(s, color.FgRed, color.Bold) }

// Warning renders s as a warning label.
func (p Painter) Warning(s string) string { return p.paint(s, color.FgYellow) }

// Path renders a file location.
func (p Painter) Path(s string) string { return p.paint(s, color.Bold) }

// Dim renders less important details.
func (p Painter) Dim(s string) string { return p.paint(s, color.Faint) }
