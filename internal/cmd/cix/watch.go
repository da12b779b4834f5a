package cix

import (
	"context"
	"io"
	"log"
	"sync"

	"github.com/albertocavalcante/cix/internal/cicode/checker"
	"github.com/albertocavalcante/cix/internal/cicode/discovery"
	"github.com/albertocavalcante/cix/internal/cicode/indexer"
	"github.com/albertocavalcante/cix/internal/cicode/watcher"
	"github.com/albertocavalcante/cix/internal/cli"
)

func runWatch(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var (
		wf        workspaceFlags
		colorFlag string
	)
	fs := newFlagSet("watch", "", stderr, &wf)
	fs.StringVar(&colorFlag, "color", "auto", "colorize output: auto, always or never")
	if code, done := cli.ParseFlags(fs, args); done {
		return code
	}

	ws, err := wf.open(ctx, stderr)
	if err != nil {
		return fail(stderr, "watch", err)
	}
	defer ws.Close()

	c := checker.New(ws.ix, checker.Options{Disable: ws.cfg.Check.Disable})
	p := cli.NewPainter(stdout, colorFlag)

	var mu sync.Mutex
	report := func(ev indexer.Event) {
		mu.Lock()
		defer mu.Unlock()
		if ev.Full {
			cli.Writef(stdout, "indexed %d file(s)\n", len(ws.ix.Files()))
			return
		}
		if _, ok := ws.ix.Document(ev.File); !ok {
			cli.Writef(stdout, "removed %s\n", ws.rel(ev.File))
			return
		}
		diags := c.CheckFile(ev.File)
		cli.Writef(stdout, "updated %s: %d problem(s)\n", ws.rel(ev.File), len(diags))
		for _, d := range diags {
			cli.Writef(stdout, "  %s: %s [%s]\n", p.Path(ws.pos(d.File, d.Range.Start)), d.Message, d.Code)
		}
	}
	unsubscribe := ws.ix.Subscribe(report)
	defer unsubscribe()

	finder := discovery.Finder{Extensions: ws.cfg.Index.Extensions, Exclude: ws.cfg.Index.Exclude}
	w, err := watcher.NewWatcher(ws.root, finder, ws.ix)
	if err != nil {
		return fail(stderr, "watch", err)
	}
	defer w.Close()

	mu.Lock()
	cli.Writef(stdout, "Watching %s: %d file(s), %d dir(s)\n", ws.root, len(ws.ix.Files()), len(w.WatchedDirs()))
	mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return cli.ExitOK
		case ev := <-w.Events:
			log.Printf("watch: %s %s", ev.Op, ev.File)
		case err := <-w.Errors:
			log.Printf("watch: %v", err)
		}
	}
}
