package indexer

import (
	"context"
	"fmt"
	"log"
	"maps"
	"path/filepath"
	"slices"
	"time"

	"go.lsp.dev/protocol"

	"github.com/albertocavalcante/cix/internal/cicode/builtins"
	"github.com/albertocavalcante/cix/internal/cicode/extract"
	"github.com/albertocavalcante/cix/internal/cicode/lang"
	"github.com/albertocavalcante/cix/internal/cicode/scope"
	"github.com/albertocavalcante/cix/internal/cicode/span"
	"github.com/albertocavalcante/cix/internal/cicode/textdoc"
)

// fileResult is the complete contribution of one file, computed without
// touching the tables.
type fileResult struct {
	path      string
	doc       *textdoc.Document
	spans     []span.Span
	ranges    []extract.FunctionRange
	functions []*Function
	variables []*Variable
}

// Analyze computes the contribution of one file. It never fails:
// unrecognized constructs are skipped.
func analyze(path, text string) *fileResult {
	doc := textdoc.New(path, text)
	spans := span.Compute(text, span.Options{})
	ranges := extract.Functions(doc, spans)
	uri := textdoc.URIFromPath(path)

	res := &fileResult{path: path, doc: doc, spans: spans, ranges: ranges}
	for i := range ranges {
		r := &ranges[i]
		body := r.BodyRange
		params := scope.Params(text, r.ParamOffset, r.CloseParen, spans)

		fn := &Function{
			Name:       r.Name,
			ReturnType: r.ReturnType,
			File:       path,
			Location:   &protocol.Location{URI: uri, Range: r.NameRange},
			BodyRange:  &body,
			Doc:        r.Doc,
		}
		for _, p := range params {
			fn.Params = append(fn.Params, p.Raw)
			res.variables = append(res.variables, &Variable{
				Name:       p.Name,
				Type:       p.Type,
				Scope:      scope.Local,
				ScopeID:    LocalScopeID(path, r.Name),
				Function:   r.Name,
				File:       path,
				Location:   protocol.Location{URI: uri, Range: r.NameRange},
				Offset:     r.NameOffset,
				DeclOffset: p.Offset,
				Range:      &body,
				IsParam:    true,
			})
		}
		res.functions = append(res.functions, fn)
	}

	for _, d := range scope.Scan(doc, spans, ranges) {
		v := &Variable{
			Name:       d.Name,
			Type:       d.Type,
			Scope:      d.Kind,
			Function:   d.Function,
			File:       path,
			Location:   protocol.Location{URI: uri, Range: doc.RangeOf(d.Offset, d.End)},
			Offset:     d.Offset,
			DeclOffset: d.Offset,
		}
		switch d.Kind {
		case scope.Local:
			v.ScopeID = LocalScopeID(path, d.Function)
			if r := extract.FunctionAt(ranges, d.Offset); r != nil {
				body := r.BodyRange
				v.Range = &body
			}
		case scope.Module:
			v.ScopeID = path
		case scope.Global:
			v.ScopeID = GlobalScopeID
		}
		res.variables = append(res.variables, v)
	}
	return res
}

// BuildAll clears the index, seeds it with builtins and indexes every
// discovered file. Files that cannot be read are logged and skipped. If
// another BuildAll starts meanwhile, this one stops without error. Updates
// requested during the build are applied once it completes.
func (ix *Indexer) BuildAll(ctx context.Context) error {
	if ix.closed.Load() {
		return ErrClosed
	}
	v := ix.version.Add(1)

	events, err := ix.buildAll(ctx, v)
	ix.notify(events...)
	return err
}

func (ix *Indexer) buildAll(ctx context.Context, v uint64) ([]Event, error) {
	ix.buildMu.Lock()
	defer ix.buildMu.Unlock()
	if ix.version.Load() != v {
		ix.metrics.superseded.Inc()
		return nil, nil
	}

	ix.building.Store(true)
	completed := false
	defer func() {
		ix.building.Store(false)
		if !completed {
			ix.requeuePending()
		}
	}()

	start := time.Now()
	table := ix.loadBuiltins()
	files, err := ix.discover(ix.root)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", ix.root, err)
	}

	ix.mu.Lock()
	ix.resetTables()
	ix.builtin = table
	for key, b := range table {
		ix.functions[key] = builtinFunction(b)
	}
	ix.metrics.observeTables(len(ix.functions), ix.varCount)
	ix.mu.Unlock()
	ix.ready.Store(false)

	failed := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if ix.version.Load() != v {
			ix.metrics.superseded.Inc()
			log.Printf("indexer: build %d superseded", v)
			return nil, nil
		}
		text, err := ix.source.ReadFile(path)
		if err != nil {
			failed++
			ix.metrics.indexErrors.Inc()
			log.Printf("indexer: skipping %s: %v", path, err)
			continue
		}
		res := analyze(path, text)

		ix.mu.Lock()
		if ix.version.Load() != v {
			ix.mu.Unlock()
			ix.metrics.superseded.Inc()
			return nil, nil
		}
		ix.apply(res)
		ix.mu.Unlock()
		ix.metrics.filesIndexed.Inc()
	}

	completed = true
	ix.ready.Store(true)
	ix.building.Store(false)
	ix.metrics.buildDuration.Observe(time.Since(start).Seconds())
	log.Printf("indexer: indexed %d files (%d failed) in %v", len(files)-failed, failed, time.Since(start).Round(time.Millisecond))

	events := []Event{{Full: true}}
	for _, path := range ix.takePending() {
		if ev, err := ix.indexFile(ctx, path); err != nil {
			log.Printf("indexer: deferred update of %s: %v", path, err)
		} else {
			events = append(events, ev)
		}
	}
	return events, nil
}

// loadBuiltins returns the builtins table, or an empty one when the
// provider is missing or fails.
func (ix *Indexer) loadBuiltins() builtins.Table {
	if ix.builtins == nil {
		return builtins.Table{}
	}
	t, err := ix.builtins.Builtins()
	if err != nil {
		log.Printf("indexer: loading builtins: %v", err)
		return builtins.Table{}
	}
	return t
}

func builtinFunction(b builtins.Function) *Function {
	ret := b.ReturnType
	if ret == "" {
		ret = lang.Void
	}
	fn := &Function{
		Name:       b.Name,
		ReturnType: ret,
		Params:     slices.Clone(b.Params),
		HelpURL:    b.HelpURL,
	}
	fn.Doc.Summary = b.Summary
	fn.Doc.Returns = b.Returns
	if len(b.ParamDocs) > 0 {
		fn.Doc.Params = maps.Clone(b.ParamDocs)
	}
	return fn
}

// IndexFile re-reads path and replaces its contribution.
func (ix *Indexer) IndexFile(ctx context.Context, path string) error {
	if ix.closed.Load() {
		return ErrClosed
	}
	ix.buildMu.Lock()
	ev, err := ix.indexFile(ctx, filepath.Clean(path))
	ix.buildMu.Unlock()
	if err != nil {
		return err
	}
	ix.notify(ev)
	return nil
}

// indexFile requires buildMu.
func (ix *Indexer) indexFile(ctx context.Context, path string) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	text, err := ix.source.ReadFile(path)
	if err != nil {
		ix.metrics.indexErrors.Inc()
		return Event{}, fmt.Errorf("index %s: %w", path, err)
	}
	res := analyze(path, text)

	ix.mu.Lock()
	ix.apply(res)
	ix.mu.Unlock()
	ix.metrics.filesIndexed.Inc()
	return Event{File: path}, nil
}

// RemoveFile purges every entry contributed by path.
func (ix *Indexer) RemoveFile(path string) {
	path = filepath.Clean(path)
	ix.debounce.Cancel(path)
	ix.buildMu.Lock()
	ix.mu.Lock()
	ix.purge(path)
	ix.metrics.observeTables(len(ix.functions), ix.varCount)
	ix.mu.Unlock()
	ix.buildMu.Unlock()
	ix.notify(Event{File: path})
}

// MoveFile re-attributes the contribution of oldPath to newPath. Offsets
// are unchanged; any prior contribution of newPath is purged.
func (ix *Indexer) MoveFile(oldPath, newPath string) error {
	oldPath, newPath = filepath.Clean(oldPath), filepath.Clean(newPath)
	if oldPath == newPath {
		return nil
	}
	ix.debounce.Cancel(oldPath)
	ix.buildMu.Lock()
	ix.mu.Lock()
	ok := ix.move(oldPath, newPath)
	ix.mu.Unlock()
	ix.buildMu.Unlock()
	if !ok {
		return fmt.Errorf("move %s: %w", oldPath, ErrNotIndexed)
	}
	ix.notify(Event{File: oldPath}, Event{File: newPath})
	return nil
}

// RequestUpdate schedules a debounced re-index of path. Requests that
// fire while a full build runs are deferred until it completes.
func (ix *Indexer) RequestUpdate(path string) {
	if ix.closed.Load() {
		return
	}
	path = filepath.Clean(path)
	ix.debounce.Trigger(path, func() {
		if ix.building.Load() {
			ix.pendingMu.Lock()
			ix.pending[path] = true
			ix.pendingMu.Unlock()
			return
		}
		if err := ix.IndexFile(context.Background(), path); err != nil {
			log.Printf("indexer: update %s: %v", path, err)
		}
	})
}

func (ix *Indexer) takePending() []string {
	ix.pendingMu.Lock()
	defer ix.pendingMu.Unlock()
	paths := slices.Sorted(maps.Keys(ix.pending))
	clear(ix.pending)
	return paths
}

// requeuePending hands deferred paths back to the debouncer after an
// abandoned build.
func (ix *Indexer) requeuePending() {
	for _, path := range ix.takePending() {
		ix.RequestUpdate(path)
	}
}

// apply installs res. The caller holds mu.
func (ix *Indexer) apply(res *fileResult) {
	path := res.path
	ix.purge(path)

	ix.docs[path] = res.doc
	ix.spans[path] = res.spans
	ix.ranges[path] = res.ranges

	funcs := make(map[string]bool, len(res.functions))
	for _, fn := range res.functions {
		key := lang.Key(fn.Name)
		ix.seq++
		fn.seq = ix.seq
		if ix.defs[key] == nil {
			ix.defs[key] = make(map[string]*Function)
		}
		ix.defs[key][path] = fn
		ix.functions[key] = fn
		funcs[key] = true
	}
	ix.fileFuncs[path] = funcs

	vars := make(map[string]bool)
	for _, v := range res.variables {
		key := lang.Key(v.Name)
		ix.variables[key] = append(ix.variables[key], v)
		vars[key] = true
	}
	ix.varCount += len(res.variables)
	ix.fileVars[path] = vars
	ix.metrics.observeTables(len(ix.functions), ix.varCount)
}

// purge removes the contribution of path. When a purged function key was
// owned by path, the most recent definition from another file takes over,
// then the builtin of that name. The caller holds mu.
func (ix *Indexer) purge(path string) {
	for key := range ix.fileFuncs[path] {
		delete(ix.defs[key], path)
		if fn := ix.functions[key]; fn == nil || fn.File != path {
			continue
		}
		var next *Function
		for _, cand := range ix.defs[key] {
			if next == nil || cand.seq > next.seq {
				next = cand
			}
		}
		switch {
		case next != nil:
			ix.functions[key] = next
		case ix.builtin != nil && hasKey(ix.builtin, key):
			ix.functions[key] = builtinFunction(ix.builtin[key])
		default:
			delete(ix.functions, key)
		}
		if len(ix.defs[key]) == 0 {
			delete(ix.defs, key)
		}
	}

	for key := range ix.fileVars[path] {
		kept := ix.variables[key][:0:0]
		for _, v := range ix.variables[key] {
			if v.File != path {
				kept = append(kept, v)
			} else {
				ix.varCount--
			}
		}
		if len(kept) == 0 {
			delete(ix.variables, key)
		} else {
			ix.variables[key] = kept
		}
	}

	delete(ix.fileFuncs, path)
	delete(ix.fileVars, path)
	delete(ix.ranges, path)
	delete(ix.spans, path)
	delete(ix.docs, path)
}

func hasKey(t builtins.Table, key string) bool {
	_, ok := t[key]
	return ok
}

// move rewrites the file attribute of every entry of oldPath. Records are
// replaced rather than mutated since queries hand out copies that share
// pointers. The caller holds mu.
func (ix *Indexer) move(oldPath, newPath string) bool {
	doc, ok := ix.docs[oldPath]
	if !ok {
		return false
	}
	if _, exists := ix.docs[newPath]; exists {
		ix.purge(newPath)
	}
	uri := textdoc.URIFromPath(newPath)

	for key := range ix.fileFuncs[oldPath] {
		old := ix.defs[key][oldPath]
		fn := *old
		fn.File = newPath
		if old.Location != nil {
			loc := *old.Location
			loc.URI = uri
			fn.Location = &loc
		}
		delete(ix.defs[key], oldPath)
		ix.defs[key][newPath] = &fn
		if ix.functions[key] == old {
			ix.functions[key] = &fn
		}
	}

	for key := range ix.fileVars[oldPath] {
		for i, old := range ix.variables[key] {
			if old.File != oldPath {
				continue
			}
			v := *old
			v.File = newPath
			v.Location.URI = uri
			switch v.Scope {
			case scope.Local:
				v.ScopeID = LocalScopeID(newPath, v.Function)
			case scope.Module:
				v.ScopeID = newPath
			}
			ix.variables[key][i] = &v
		}
	}

	ix.docs[newPath] = textdoc.New(newPath, doc.Text)
	ix.spans[newPath] = ix.spans[oldPath]
	ix.ranges[newPath] = ix.ranges[oldPath]
	ix.fileFuncs[newPath] = ix.fileFuncs[oldPath]
	ix.fileVars[newPath] = ix.fileVars[oldPath]
	delete(ix.docs, oldPath)
	delete(ix.spans, oldPath)
	delete(ix.ranges, oldPath)
	delete(ix.fileFuncs, oldPath)
	delete(ix.fileVars, oldPath)
	return true
}
