package cix

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/albertocavalcante/cix/internal/cicode/indexer"
	"github.com/albertocavalcante/cix/internal/cicode/scope"
	"github.com/albertocavalcante/cix/internal/cli"
)

func runIndex(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var wf workspaceFlags
	fs := newFlagSet("index", "", stderr, &wf)
	if code, done := cli.ParseFlags(fs, args); done {
		return code
	}

	ws, err := wf.open(ctx, stderr)
	if err != nil {
		return fail(stderr, "index", err)
	}
	defer ws.Close()

	var user, builtin int
	for _, fn := range ws.ix.Functions() {
		if fn.IsBuiltin() {
			builtin++
		} else {
			user++
		}
	}
	cli.Writef(stdout, "Indexed %d file(s): %d function(s), %d variable(s)\n",
		len(ws.ix.Files()), user, ws.ix.VariableCount())
	if builtin > 0 {
		cli.Writef(stdout, "Builtins: %d function(s)\n", builtin)
	}
	return cli.ExitOK
}

func runFunctions(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var (
		wf       workspaceFlags
		builtins bool
	)
	fs := newFlagSet("functions", "", stderr, &wf)
	fs.BoolVar(&builtins, "builtins", false, "include builtin functions")
	if code, done := cli.ParseFlags(fs, args); done {
		return code
	}

	ws, err := wf.open(ctx, stderr)
	if err != nil {
		return fail(stderr, "functions", err)
	}
	defer ws.Close()

	for _, fn := range ws.ix.Functions() {
		switch {
		case !fn.IsBuiltin():
			cli.Writef(stdout, "%s: %s\n", ws.pos(fn.File, fn.Location.Range.Start), fn.Signature())
		case builtins:
			cli.Writef(stdout, "<builtin>: %s\n", fn.Signature())
		}
	}
	return cli.ExitOK
}

func runLookup(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var wf workspaceFlags
	fs := newFlagSet("lookup", "NAME", stderr, &wf)
	if code, done := cli.ParseFlags(fs, args); done {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return cli.ExitError
	}
	name := fs.Arg(0)

	ws, err := wf.open(ctx, stderr)
	if err != nil {
		return fail(stderr, "lookup", err)
	}
	defer ws.Close()

	found := false
	if fn, ok := ws.ix.Function(name); ok {
		found = true
		writeFunction(stdout, ws, fn)
	}
	for _, v := range ws.ix.Variables(name) {
		found = true
		cli.Writeln(stdout, ws.describeVariable(v))
	}
	if !found {
		return fail(stderr, "lookup", fmt.Errorf("no function or variable named %q", name))
	}
	return cli.ExitOK
}

func writeFunction(w io.Writer, ws *workspace, fn indexer.Function) {
	cli.Writeln(w, fn.Signature())
	switch {
	case fn.IsBuiltin():
		cli.Writeln(w, "  builtin")
	case fn.Location != nil:
		cli.Writef(w, "  defined at %s\n", ws.pos(fn.File, fn.Location.Range.Start))
	}
	if fn.Doc.Summary != "" {
		cli.Writef(w, "  %s\n", fn.Doc.Summary)
	}
	for _, raw := range fn.Params {
		name := indexer.ParamName(raw)
		if desc := fn.Doc.Param(name); desc != "" {
			cli.Writef(w, "  %s: %s\n", name, desc)
		}
	}
	if fn.Doc.Returns != "" {
		cli.Writef(w, "  returns: %s\n", fn.Doc.Returns)
	}
	if fn.HelpURL != "" {
		cli.Writef(w, "  see %s\n", fn.HelpURL)
	}
}

// describeVariable formats v as "file:line:col: scope TYPE name".
func (ws *workspace) describeVariable(v indexer.Variable) string {
	at := ws.pos(v.File, v.Location.Range.Start)
	if doc, ok := ws.ix.Document(v.File); ok {
		at = ws.pos(v.File, doc.PositionAt(v.DeclOffset))
	}
	kind := v.Scope.String()
	if v.IsParam {
		kind = "parameter"
	}
	s := fmt.Sprintf("%s: %s %s %s", at, kind, v.Type, v.Name)
	if v.Function != "" {
		s += " in " + v.Function
	}
	return s
}

func runVars(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var (
		wf        workspaceFlags
		scopeFlag string
		fileFlag  string
	)
	fs := newFlagSet("vars", "", stderr, &wf)
	fs.StringVar(&scopeFlag, "scope", "", "only list global, module or local variables")
	fs.StringVar(&fileFlag, "file", "", "only list variables declared in this file")
	if code, done := cli.ParseFlags(fs, args); done {
		return code
	}

	want, err := parseScope(scopeFlag)
	if err != nil {
		return fail(stderr, "vars", err)
	}

	ws, err := wf.open(ctx, stderr)
	if err != nil {
		return fail(stderr, "vars", err)
	}
	defer ws.Close()

	file := ""
	if fileFlag != "" {
		file = ws.abs(fileFlag)
	}
	vars := ws.ix.FindVariables(func(v indexer.Variable) bool {
		return (scopeFlag == "" || v.Scope == want) && (file == "" || v.File == file)
	})
	for _, v := range vars {
		cli.Writeln(stdout, ws.describeVariable(v))
	}
	return cli.ExitOK
}

func parseScope(s string) (scope.Kind, error) {
	for _, k := range []scope.Kind{scope.Global, scope.Module, scope.Local} {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	if s == "" {
		return 0, nil
	}
	return 0, fmt.Errorf("unknown scope %q: want global, module or local", s)
}
