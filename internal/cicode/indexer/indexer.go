// Package indexer maintains the symbol index of a Cicode workspace: the
// global function table, the variable table, and per-file function ranges
// and ignore spans. It rebuilds a file's contribution whenever the file
// changes and notifies subscribers after each update.
//
// All four tables are consistent for every indexed file: a file either
// contributes fully or not at all. Per-file analysis runs outside the
// table lock and its result is applied atomically. Full builds carry a
// version stamp and are abandoned as soon as a newer build starts.
package indexer

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.lsp.dev/protocol"

	"github.com/albertocavalcante/cix/internal/cicode/builtins"
	"github.com/albertocavalcante/cix/internal/cicode/debounce"
	"github.com/albertocavalcante/cix/internal/cicode/discovery"
	"github.com/albertocavalcante/cix/internal/cicode/doccomment"
	"github.com/albertocavalcante/cix/internal/cicode/extract"
	"github.com/albertocavalcante/cix/internal/cicode/lang"
	"github.com/albertocavalcante/cix/internal/cicode/scope"
	"github.com/albertocavalcante/cix/internal/cicode/span"
	"github.com/albertocavalcante/cix/internal/cicode/textdoc"
)

// DefaultDebounce is the quiet period applied to RequestUpdate.
const DefaultDebounce = 300 * time.Millisecond

// GlobalScopeID is the scope identifier shared by all global variables.
const GlobalScopeID = "<global>"

var (
	// ErrNotIndexed is returned when an operation names a file that has no
	// indexed contribution.
	ErrNotIndexed = errors.New("file not indexed")
	// ErrClosed is returned by operations on a closed Indexer.
	ErrClosed = errors.New("indexer closed")
)

// Source returns the current text of a file.
type Source interface {
	ReadFile(path string) (string, error)
}

// DiscoverFunc enumerates the source files under root.
type DiscoverFunc func(root string) ([]string, error)

// Function is one entry of the function table.
type Function struct {
	Name       string
	ReturnType string
	// Params are the raw parameter strings in declaration order.
	Params []string
	// File is empty for builtins.
	File string
	// Location is the name of the definition; nil for builtins.
	Location *protocol.Location
	// BodyRange covers the body; nil for builtins.
	BodyRange *protocol.Range
	Doc       doccomment.Doc
	HelpURL   string

	seq uint64
}

// IsBuiltin reports whether the function comes from the builtins table.
func (f Function) IsBuiltin() bool {
	return f.File == ""
}

// Signature renders the function header, e.g.
// "INT FUNCTION Add(INT a, INT b = 0)". VOID and untyped functions have no
// leading type.
func (f Function) Signature() string {
	var b strings.Builder
	if f.ReturnType != "" && !strings.EqualFold(f.ReturnType, lang.Void) {
		b.WriteString(f.ReturnType)
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "FUNCTION %s(%s)", f.Name, strings.Join(f.Params, ", "))
	return b.String()
}

// ParamName returns the identifier of a raw parameter such as
// "[INT Mode = 0]".
func ParamName(raw string) string {
	s := strings.Trim(strings.TrimSpace(raw), "[]")
	if k := strings.IndexByte(s, '='); k >= 0 {
		s = s[:k]
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// Variable is one declaration of a name, including parameters.
type Variable struct {
	Name  string
	Type  string
	Scope scope.Kind
	// ScopeID identifies the owning scope: file#function for locals, the
	// file for module variables and GlobalScopeID for globals.
	ScopeID string
	// Function is the enclosing function for declarations inside a body.
	Function string
	File     string
	Location protocol.Location
	// Offset is the byte offset of Location. Parameters are located at
	// their function's name; DeclOffset is the parameter token itself.
	Offset     int
	DeclOffset int
	// Range is the enclosing function body for locals.
	Range   *protocol.Range
	IsParam bool
}

// Event is published after the index changes. Full is set after a
// complete rebuild; otherwise File names the changed file.
type Event struct {
	File string
	Full bool
}

// LocalScopeID returns the scope identifier of locals in function fn.
func LocalScopeID(file, fn string) string {
	return file + "#" + lang.Key(fn)
}

// Options configures an Indexer.
type Options struct {
	// Root is the workspace directory passed to Discover.
	Root string
	// Exclude and Extensions configure the default discovery.
	Exclude    []string
	Extensions []string

	// Debounce is the RequestUpdate quiet period; zero means
	// DefaultDebounce.
	Debounce time.Duration
	// Clock drives the debouncer; nil means the real clock.
	Clock debounce.Clock

	// Source reads file contents; nil reads from disk.
	Source Source
	// Discover lists source files; nil walks Root.
	Discover DiscoverFunc
	// Builtins seeds the function table on every full build.
	Builtins builtins.Provider

	// Registerer receives the indexer's metrics; nil leaves them
	// unregistered.
	Registerer prometheus.Registerer
}

// Indexer owns the index tables of one workspace.
type Indexer struct {
	root     string
	source   Source
	discover DiscoverFunc
	builtins builtins.Provider
	debounce *debounce.Debouncer
	metrics  *metrics

	// buildMu serializes every mutation: builds, file updates, removals
	// and moves. Subscribers are notified after it is released.
	buildMu  sync.Mutex
	version  atomic.Uint64
	building atomic.Bool
	ready    atomic.Bool
	closed   atomic.Bool

	pendingMu sync.Mutex
	pending   map[string]bool

	// mu guards the tables below.
	mu        sync.RWMutex
	functions map[string]*Function
	defs      map[string]map[string]*Function
	builtin   builtins.Table
	variables map[string][]*Variable
	varCount  int
	ranges    map[string][]extract.FunctionRange
	spans     map[string][]span.Span
	docs      map[string]*textdoc.Document
	fileFuncs map[string]map[string]bool
	fileVars  map[string]map[string]bool
	seq       uint64

	subMu   sync.Mutex
	subs    []subscriber
	nextSub int
}

type subscriber struct {
	id int
	fn func(Event)
}

// New creates an Indexer. Nothing is indexed until BuildAll or IndexFile.
func New(opts Options) *Indexer {
	ix := &Indexer{
		root:     opts.Root,
		source:   opts.Source,
		discover: opts.Discover,
		builtins: opts.Builtins,
		metrics:  newMetrics(opts.Registerer),
		pending:  make(map[string]bool),
	}
	if ix.source == nil {
		ix.source = textdoc.NewOverlay()
	}
	if ix.discover == nil {
		finder := discovery.Finder{Extensions: opts.Extensions, Exclude: opts.Exclude}
		ix.discover = finder.Find
	}
	delay := opts.Debounce
	if delay <= 0 {
		delay = DefaultDebounce
	}
	ix.debounce = debounce.New(opts.Clock, delay)
	ix.resetTables()
	return ix
}

// resetTables clears every table. The caller holds mu or has exclusive
// access.
func (ix *Indexer) resetTables() {
	ix.functions = make(map[string]*Function)
	ix.defs = make(map[string]map[string]*Function)
	ix.builtin = nil
	ix.variables = make(map[string][]*Variable)
	ix.varCount = 0
	ix.ranges = make(map[string][]extract.FunctionRange)
	ix.spans = make(map[string][]span.Span)
	ix.docs = make(map[string]*textdoc.Document)
	ix.fileFuncs = make(map[string]map[string]bool)
	ix.fileVars = make(map[string]map[string]bool)
}

// Root returns the workspace root.
func (ix *Indexer) Root() string {
	return ix.root
}

// Ready reports whether a full build has completed.
func (ix *Indexer) Ready() bool {
	return ix.ready.Load()
}

// Subscribe registers fn for index events. Subscribers run synchronously,
// in subscription order, on the goroutine that changed the index. The
// returned function removes the subscription.
func (ix *Indexer) Subscribe(fn func(Event)) (unsubscribe func()) {
	ix.subMu.Lock()
	defer ix.subMu.Unlock()
	ix.nextSub++
	id := ix.nextSub
	ix.subs = append(ix.subs, subscriber{id: id, fn: fn})
	return func() {
		ix.subMu.Lock()
		defer ix.subMu.Unlock()
		for i, s := range ix.subs {
			if s.id == id {
				ix.subs = append(ix.subs[:i:i], ix.subs[i+1:]...)
				return
			}
		}
	}
}

func (ix *Indexer) notify(events ...Event) {
	if len(events) == 0 {
		return
	}
	ix.subMu.Lock()
	subs := append([]subscriber(nil), ix.subs...)
	ix.subMu.Unlock()
	for _, ev := range events {
		for _, s := range subs {
			s.fn(ev)
		}
	}
}

// Close stops pending debounced updates and drops all subscribers.
// Queries keep working on the last state.
func (ix *Indexer) Close() error {
	if ix.closed.Swap(true) {
		return nil
	}
	ix.version.Add(1)
	ix.debounce.Stop()
	ix.subMu.Lock()
	ix.subs = nil
	ix.subMu.Unlock()
	log.Printf("indexer: closed")
	return nil
}
