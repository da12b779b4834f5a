package cix

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/albertocavalcante/cix/internal/cicode/checker"
	"github.com/albertocavalcante/cix/internal/cli"
)

func runCheck(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var (
		wf        workspaceFlags
		jsonFlag  bool
		quietFlag bool
		colorFlag string
		disable   stringsFlag
	)
	fs := newFlagSet("check", "", stderr, &wf)
	fs.BoolVar(&jsonFlag, "json", false, "output diagnostics as JSON")
	fs.BoolVar(&quietFlag, "quiet", false, "only output errors, suppress warnings")
	fs.StringVar(&colorFlag, "color", "auto", "colorize output: auto, always or never")
	fs.Var(&disable, "disable", "diagnostic code to skip (repeatable)")
	if code, done := cli.ParseFlags(fs, args); done {
		return code
	}

	ws, err := wf.open(ctx, stderr)
	if err != nil {
		return fail(stderr, "check", err)
	}
	defer ws.Close()

	c := checker.New(ws.ix, checker.Options{
		Disable: append(slices.Clone(ws.cfg.Check.Disable), disable...),
	})
	result := c.Check()

	if quietFlag {
		result.Diagnostics = slices.DeleteFunc(result.Diagnostics, func(d checker.Diagnostic) bool {
			return d.Severity != checker.SeverityError
		})
	}

	if jsonFlag {
		return outputJSON(stdout, ws, result)
	}
	return outputText(stdout, ws, cli.NewPainter(stdout, colorFlag), result)
}

func outputText(w io.Writer, ws *workspace, p cli.Painter, result checker.Result) int {
	for _, d := range result.Diagnostics {
		severity := d.Severity.String()
		if d.Severity == checker.SeverityError {
			severity = p.Error(severity)
		} else {
			severity = p.Warning(severity)
		}
		cli.Writef(w, "%s: %s: %s %s\n",
			p.Path(ws.pos(d.File, d.Range.Start)), severity, d.Message, p.Dim("["+d.Code+"]"))
	}

	// Summary
	if len(result.Diagnostics) > 0 {
		cli.Writeln(w)
	}
	errors := result.ErrorCount()
	warnings := result.WarningCount()
	if errors > 0 || warnings > 0 {
		cli.Writef(w, "Found %d error(s) and %d warning(s) in %d file(s)\n",
			errors, warnings, result.FileCount)
		return cli.ExitWarning
	}
	cli.Writef(w, "Checked %d file(s), no issues found\n", result.FileCount)
	return cli.ExitOK
}

type jsonOutput struct {
	Files       int              `json:"files"`
	Errors      int              `json:"errors"`
	Warnings    int              `json:"warnings"`
	Diagnostics []jsonDiagnostic `json:"diagnostics"`
}

type jsonDiagnostic struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

func outputJSON(w io.Writer, ws *workspace, result checker.Result) int {
	out := jsonOutput{
		Files:       result.FileCount,
		Errors:      result.ErrorCount(),
		Warnings:    result.WarningCount(),
		Diagnostics: make([]jsonDiagnostic, 0, len(result.Diagnostics)),
	}

	for _, d := range result.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, jsonDiagnostic{
			File:     ws.rel(d.File),
			Line:     int(d.Range.Start.Line) + 1,
			Column:   int(d.Range.Start.Character) + 1,
			Severity: d.Severity.String(),
			Code:     d.Code,
			Message:  d.Message,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return cli.ExitError
	}

	if len(out.Diagnostics) > 0 {
		return cli.ExitWarning
	}
	return cli.ExitOK
}

// stringsFlag collects a repeatable string flag.
type stringsFlag []string

func (s *stringsFlag) String() string {
	return fmt.Sprint([]string(*s))
}

func (s *stringsFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}
