package cix

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/albertocavalcante/cix/internal/cicode/refs"
	"github.com/albertocavalcante/cix/internal/cli"
)

func runRefs(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var wf workspaceFlags
	fs := newFlagSet("refs", "FILE:LINE:COL", stderr, &wf)
	if code, done := cli.ParseFlags(fs, args); done {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return cli.ExitError
	}

	ws, err := wf.open(ctx, stderr)
	if err != nil {
		return fail(stderr, "refs", err)
	}
	defer ws.Close()

	sym, err := ws.resolve(fs.Arg(0))
	if err != nil {
		return fail(stderr, "refs", err)
	}
	for _, o := range refs.References(ws.ix, sym) {
		line := ""
		if doc, ok := ws.ix.Document(o.File); ok {
			line = strings.TrimSpace(doc.Line(int(o.Range.Start.Line)))
		}
		cli.Writef(stdout, "%s: %s\n", ws.pos(o.File, o.Range.Start), line)
	}
	return cli.ExitOK
}

func (ws *workspace) resolve(arg string) (refs.Symbol, error) {
	doc, offset, err := ws.offsetAt(arg)
	if err != nil {
		return refs.Symbol{}, err
	}
	return refs.Resolve(ws.ix, doc.Path, offset)
}

func runRename(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var (
		wf        workspaceFlags
		writeFlag bool
	)
	fs := newFlagSet("rename", "FILE:LINE:COL NEWNAME", stderr, &wf)
	fs.BoolVar(&writeFlag, "w", false, "write the changes instead of printing a diff")
	if code, done := cli.ParseFlags(fs, args); done {
		return code
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return cli.ExitError
	}

	ws, err := wf.open(ctx, stderr)
	if err != nil {
		return fail(stderr, "rename", err)
	}
	defer ws.Close()

	sym, err := ws.resolve(fs.Arg(0))
	if err != nil {
		return fail(stderr, "rename", err)
	}
	newName := fs.Arg(1)
	edits, err := refs.Rename(ws.ix, sym, newName)
	if err != nil {
		return fail(stderr, "rename", err)
	}

	files := make([]string, 0, len(edits))
	for f := range edits {
		files = append(files, f)
	}
	slices.Sort(files)

	n := 0
	for _, file := range files {
		doc, ok := ws.ix.Document(file)
		if !ok {
			continue
		}
		updated, err := refs.Apply(doc.Text, edits[file])
		if err != nil {
			return fail(stderr, "rename", fmt.Errorf("%s: %w", ws.rel(file), err))
		}
		if updated == doc.Text {
			continue
		}
		n += len(edits[file])

		if !writeFlag {
			cli.Write(stdout, unifiedDiff(ws.rel(file), doc.Text, updated))
			continue
		}
		if err := writeFile(file, updated); err != nil {
			return fail(stderr, "rename", err)
		}
		cli.Writef(stdout, "%s: %d edit(s)\n", ws.rel(file), len(edits[file]))
	}

	if writeFlag {
		cli.Writef(stdout, "Renamed %s to %s: %d edit(s) in %d file(s)\n", sym.Name, newName, n, len(files))
	}
	return cli.ExitOK
}

func unifiedDiff(path, before, after string) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	}
	text, _ := difflib.GetUnifiedDiffString(diff)
	return text
}

// writeFile replaces the contents of an existing file, keeping its mode.
func writeFile(path, text string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), info.Mode().Perm())
}
