// Package cix implements the cix command: indexing, lookups, diagnostics
// and renames over a Cicode workspace.
package cix

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/albertocavalcante/cix/internal/cicode/indexer"
	"github.com/albertocavalcante/cix/internal/cicode/textdoc"
	"github.com/albertocavalcante/cix/internal/cixconfig"
	"github.com/albertocavalcante/cix/internal/cli"
)

// Run executes cix with the given arguments.
// Returns exit code.
func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return RunWithIO(ctx, args, os.Stdin, os.Stdout, os.Stderr)
}

// RunWithIO allows custom IO for embedding/testing.
func RunWithIO(ctx context.Context, args []string, _ io.Reader, stdout, stderr io.Writer) int {
	return cli.Dispatch(ctx, "cix", commands(), args, stdout, stderr)
}

func commands() []cli.Command {
	return []cli.Command{
		{Name: "index", Summary: "index the workspace and print totals", Run: runIndex},
		{Name: "functions", Summary: "list function signatures", Run: runFunctions},
		{Name: "lookup", Summary: "describe a function or variable by name", Run: runLookup},
		{Name: "vars", Summary: "list variable declarations", Run: runVars},
		{Name: "check", Summary: "report duplicate functions and bad calls", Run: runCheck},
		{Name: "refs", Summary: "list references to the symbol at FILE:LINE:COL", Run: runRefs},
		{Name: "rename", Summary: "rename the symbol at FILE:LINE:COL", Run: runRename},
		{Name: "watch", Summary: "keep the index current and report changes", Run: runWatch},
	}
}

// workspaceFlags are accepted by every command.
type workspaceFlags struct {
	dir     string
	config  string
	verbose bool
}

func newFlagSet(name, usage string, stderr io.Writer, wf *workspaceFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("cix "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&wf.dir, "C", ".", "workspace root")
	fs.StringVar(&wf.config, "config", "", "config file (default: discover cix.star, cix.toml or cix.yaml)")
	fs.BoolVar(&wf.verbose, "v", false, "verbose logging to stderr")
	fs.Usage = func() {
		cli.Writef(stderr, "Usage: cix %s [flags] %s\n\nFlags:\n", name, usage)
		fs.PrintDefaults()
	}
	return fs
}

// workspace is an indexed source tree.
type workspace struct {
	root string
	cfg  *cixconfig.Config
	ix   *indexer.Indexer
}

// open loads the configuration and indexes the workspace.
func (wf *workspaceFlags) open(ctx context.Context, stderr io.Writer) (*workspace, error) {
	cli.SetupLogging(wf.verbose, stderr)

	root, err := filepath.Abs(wf.dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", wf.dir, err)
	}
	if info, err := os.Stat(root); err != nil {
		return nil, err
	} else if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	cfg, err := cli.LoadConfig(wf.config, root)
	if err != nil {
		return nil, err
	}

	ix := indexer.New(indexer.Options{
		Root:       root,
		Exclude:    cfg.Index.Exclude,
		Extensions: cfg.Index.Extensions,
		Debounce:   cfg.Index.Debounce.Duration,
		Builtins:   cfg.BuiltinsProvider(),
	})
	if err := ix.BuildAll(ctx); err != nil {
		_ = ix.Close()
		return nil, fmt.Errorf("indexing %s: %w", root, err)
	}
	return &workspace{root: root, cfg: cfg, ix: ix}, nil
}

func (ws *workspace) Close() error {
	return ws.ix.Close()
}

// rel returns path relative to the workspace root when it lies below it.
func (ws *workspace) rel(path string) string {
	rel, err := filepath.Rel(ws.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// abs resolves a command-line path against the workspace root.
func (ws *workspace) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(ws.root, path)
}

// pos formats a zero-based LSP position as "file:line:col", one-based.
func (ws *workspace) pos(file string, p protocol.Position) string {
	return fmt.Sprintf("%s:%d:%d", ws.rel(file), p.Line+1, p.Character+1)
}

var errPosition = errors.New("want FILE:LINE:COL")

// parsePosition splits a one-based "FILE:LINE:COL" argument.
func parsePosition(arg string) (file string, pos protocol.Position, err error) {
	parts := strings.Split(arg, ":")
	if len(parts) < 3 {
		return "", pos, fmt.Errorf("parsing %q: %w", arg, errPosition)
	}
	n := len(parts)
	line, err1 := strconv.Atoi(parts[n-2])
	col, err2 := strconv.Atoi(parts[n-1])
	file = strings.Join(parts[:n-2], ":")
	if err1 != nil || err2 != nil || line < 1 || col < 1 || file == "" {
		return "", pos, fmt.Errorf("parsing %q: %w", arg, errPosition)
	}
	return file, protocol.Position{Line: uint32(line - 1), Character: uint32(col - 1)}, nil
}

// offsetAt resolves a FILE:LINE:COL argument to an indexed document and
// byte offset.
func (ws *workspace) offsetAt(arg string) (*textdoc.Document, int, error) {
	file, pos, err := parsePosition(arg)
	if err != nil {
		return nil, 0, err
	}
	path := ws.abs(file)
	doc, ok := ws.ix.Document(path)
	if !ok {
		return nil, 0, fmt.Errorf("%s: %w", file, indexer.ErrNotIndexed)
	}
	return doc, doc.OffsetAt(pos), nil
}

func fail(stderr io.Writer, cmd string, err error) int {
	cli.Writef(stderr, "cix %s: %v\n", cmd, err)
	return cli.ExitError
}
