package indexer

import (
	"context"
	"errors"
	"runtime"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.lsp.dev/protocol"

	"github.com/albertocavalcante/cix/internal/cicode/builtins"
	"github.com/albertocavalcante/cix/internal/cicode/debounce"
	"github.com/albertocavalcante/cix/internal/cicode/lang"
	"github.com/albertocavalcante/cix/internal/cicode/scope"
	"github.com/albertocavalcante/cix/internal/cicode/textdoc"
)

// hookSource wraps an overlay and calls onRead before each read.
type hookSource struct {
	*textdoc.Overlay
	onRead func(path string)
}

func (h *hookSource) ReadFile(path string) (string, error) {
	if h.onRead != nil {
		h.onRead(path)
	}
	return h.Overlay.ReadFile(path)
}

type fixture struct {
	ix      *Indexer
	overlay *textdoc.Overlay
	source  *hookSource
	clock   *debounce.FakeClock
	files   []string
	reg     *prometheus.Registry
}

func newFixture(t *testing.T, files map[string]string, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		overlay: textdoc.NewOverlay(),
		clock:   debounce.NewFakeClock(time.Unix(0, 0)),
		reg:     prometheus.NewRegistry(),
	}
	for path, text := range files {
		f.overlay.Open(path, text)
		f.files = append(f.files, path)
	}
	slices.Sort(f.files)
	f.source = &hookSource{Overlay: f.overlay}

	opts.Root = "/ws"
	opts.Source = f.source
	opts.Clock = f.clock
	opts.Registerer = f.reg
	if opts.Discover == nil {
		opts.Discover = func(string) ([]string, error) { return f.files, nil }
	}
	f.ix = New(opts)
	t.Cleanup(func() { _ = f.ix.Close() })
	return f
}

func (f *fixture) build(t *testing.T) {
	t.Helper()
	if err := f.ix.BuildAll(context.Background()); err != nil {
		t.Fatalf("BuildAll() error = %v", err)
	}
}

func (f *fixture) record(t *testing.T) *[]Event {
	t.Helper()
	var events []Event
	f.ix.Subscribe(func(ev Event) { events = append(events, ev) })
	return &events
}

var ignoreSeq = cmpopts.IgnoreUnexported(Function{})

func TestBuildAll_Function(t *testing.T) {
	const path = "/ws/add.ci"
	text := "INT FUNCTION Add(INT a, INT b)\n    RETURN a + b;\nEND\n"
	f := newFixture(t, map[string]string{path: text}, Options{})
	f.build(t)

	if !f.ix.Ready() {
		t.Error("Ready() = false after BuildAll")
	}
	got, ok := f.ix.Function("ADD")
	if !ok {
		t.Fatal("Function(ADD) not found")
	}
	uri := textdoc.URIFromPath(path)
	nameRange := protocol.Range{
		Start: protocol.Position{Line: 0, Character: 13},
		End:   protocol.Position{Line: 0, Character: 16},
	}
	body := protocol.Range{
		Start: protocol.Position{Line: 0, Character: 30},
		End:   protocol.Position{Line: 2, Character: 3},
	}
	want := Function{
		Name:       "Add",
		ReturnType: "INT",
		Params:     []string{"INT a", "INT b"},
		File:       path,
		Location:   &protocol.Location{URI: uri, Range: nameRange},
		BodyRange:  &body,
	}
	if diff := cmp.Diff(want, got, ignoreSeq); diff != "" {
		t.Errorf("Function() mismatch (-want +got):\n%s", diff)
	}

	vars := f.ix.FileVariables(path)
	if len(vars) != 2 {
		t.Fatalf("FileVariables() = %d entries, want 2", len(vars))
	}
	for i, name := range []string{"a", "b"} {
		v := vars[i]
		if v.Name != name || v.Type != "INT" || !v.IsParam || v.Scope != scope.Local {
			t.Errorf("vars[%d] = %+v", i, v)
		}
		if v.ScopeID != "/ws/add.ci#add" {
			t.Errorf("vars[%d].ScopeID = %q", i, v.ScopeID)
		}
		if v.Offset != 13 || text[v.DeclOffset:v.DeclOffset+1] != name {
			t.Errorf("vars[%d] offsets = %d, %d", i, v.Offset, v.DeclOffset)
		}
	}
	if n := f.ix.VariableCount(); n != 2 {
		t.Errorf("VariableCount() = %d, want 2", n)
	}
	if r, ok := f.ix.FunctionAt(path, strings.Index(text, "RETURN")); !ok || r.Name != "Add" {
		t.Errorf("FunctionAt(RETURN) = %v, %v", r.Name, ok)
	}
	if _, ok := f.ix.FunctionAt(path, len(text)); ok {
		t.Error("FunctionAt(EOF) should find nothing")
	}
}

func TestBuildAll_UntypedParam(t *testing.T) {
	const path = "/ws/beep.ci"
	f := newFixture(t, map[string]string{path: "FUNCTION Beep(count, INT tone)\nEND\n"}, Options{})
	f.build(t)

	var got []string
	for _, v := range f.ix.FileVariables(path) {
		got = append(got, v.Type+" "+v.Name)
	}
	want := []string{lang.Unknown + " count", "INT tone"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parameter types mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveFile(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/ws/a.ci": "GLOBAL INT gShared;\nFUNCTION Foo()\n\tINT i;\nEND\n",
		"/ws/b.ci": "FUNCTION Bar(STRING s)\nEND\n",
	}, Options{})
	f.build(t)
	events := f.record(t)

	f.ix.RemoveFile("/ws/a.ci")

	if f.ix.HasFunction("foo") {
		t.Error("Foo still indexed after removal")
	}
	if !f.ix.HasFunction("bar") {
		t.Error("Bar lost after removing another file")
	}
	if vs := f.ix.Variables("gShared"); vs != nil {
		t.Errorf("Variables(gShared) = %v, want none", vs)
	}
	if vs := f.ix.FileVariables("/ws/a.ci"); vs != nil {
		t.Errorf("FileVariables(a) = %v, want none", vs)
	}
	if n := f.ix.VariableCount(); n != 1 {
		t.Errorf("VariableCount() = %d, want 1", n)
	}
	if f.ix.FunctionRanges("/ws/a.ci") != nil || f.ix.IgnoreSpans("/ws/a.ci") != nil {
		t.Error("ranges or spans of a removed file remain")
	}
	if diff := cmp.Diff([]string{"/ws/b.ci"}, f.ix.Files()); diff != "" {
		t.Errorf("Files() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Event{{File: "/ws/a.ci"}}, *events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestIndexFile_ReplacesContribution(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/ws/a.ci": "FUNCTION Old()\n\tINT x;\nEND\n",
	}, Options{})
	f.build(t)

	f.overlay.Update("/ws/a.ci", "STRING FUNCTION New()\n\tREAL y, z;\nEND\n")
	if err := f.ix.IndexFile(context.Background(), "/ws/a.ci"); err != nil {
		t.Fatalf("IndexFile() error = %v", err)
	}
	if f.ix.HasFunction("Old") || f.ix.Variables("x") != nil {
		t.Error("stale entries survived re-index")
	}
	fn, ok := f.ix.Function("new")
	if !ok || fn.ReturnType != "STRING" {
		t.Errorf("Function(new) = %+v, %v", fn, ok)
	}
	if n := f.ix.VariableCount(); n != 2 {
		t.Errorf("VariableCount() = %d, want 2", n)
	}
}

func TestIndexFile_ReadError(t *testing.T) {
	f := newFixture(t, nil, Options{})
	err := f.ix.IndexFile(context.Background(), "/ws/does-not-exist.ci")
	if err == nil {
		t.Fatal("IndexFile() of a missing file should fail")
	}
	if got := testutil.ToFloat64(f.ix.metrics.indexErrors); got != 1 {
		t.Errorf("index errors = %v, want 1", got)
	}
}

func TestCrossFileDuplicates(t *testing.T) {
	provider := builtins.ProviderFunc(func() (builtins.Table, error) {
		return builtins.Table{"shared": {Name: "Shared", ReturnType: "REAL"}}, nil
	})
	f := newFixture(t, map[string]string{
		"/ws/a.ci": "INT FUNCTION Shared()\nEND\n",
		"/ws/b.ci": "STRING FUNCTION Shared()\nEND\n",
	}, Options{Builtins: provider})
	f.build(t)

	ret := func() string {
		fn, ok := f.ix.Function("shared")
		if !ok {
			return ""
		}
		return fn.ReturnType
	}
	if got := ret(); got != "STRING" {
		t.Fatalf("after build ReturnType = %q, want the last indexed definition", got)
	}
	if defs := f.ix.Definitions("shared"); len(defs) != 2 || defs[0].File != "/ws/a.ci" {
		t.Errorf("Definitions() = %+v", defs)
	}

	f.ix.RemoveFile("/ws/b.ci")
	if got := ret(); got != "INT" {
		t.Errorf("after removing b ReturnType = %q, want INT from a", got)
	}
	f.ix.RemoveFile("/ws/a.ci")
	fn, ok := f.ix.Function("shared")
	if !ok || !fn.IsBuiltin() || fn.ReturnType != "REAL" {
		t.Errorf("after removing both = %+v, %v; want the builtin", fn, ok)
	}
}

func TestBuiltinsSeeding(t *testing.T) {
	provider := builtins.ProviderFunc(func() (builtins.Table, error) {
		return builtins.Table{
			"abs":   {Name: "Abs", ReturnType: "INT", Params: []string{"INT Number"}, Summary: "Absolute value."},
			"sleep": {Name: "Sleep", Params: []string{"INT Seconds"}},
		}, nil
	})
	f := newFixture(t, map[string]string{"/ws/a.ci": "FUNCTION Main()\nEND\n"}, Options{Builtins: provider})
	f.build(t)

	if !f.ix.Builtins() {
		t.Error("Builtins() = false after seeding")
	}
	abs, ok := f.ix.Function("ABS")
	if !ok || !abs.IsBuiltin() || abs.Location != nil || abs.BodyRange != nil {
		t.Fatalf("Function(ABS) = %+v, %v", abs, ok)
	}
	if abs.Doc.Summary != "Absolute value." {
		t.Errorf("Doc.Summary = %q", abs.Doc.Summary)
	}
	if sleep, _ := f.ix.Function("sleep"); sleep.ReturnType != "VOID" {
		t.Errorf("Sleep ReturnType = %q, want VOID", sleep.ReturnType)
	}
	names := make([]string, 0, 3)
	for _, fn := range f.ix.Functions() {
		names = append(names, fn.Name)
	}
	if diff := cmp.Diff([]string{"Abs", "Main", "Sleep"}, names); diff != "" {
		t.Errorf("Functions() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuiltinsFailure(t *testing.T) {
	provider := builtins.ProviderFunc(func() (builtins.Table, error) {
		return nil, errors.New("no table")
	})
	f := newFixture(t, map[string]string{"/ws/a.ci": "FUNCTION Main()\nEND\n"}, Options{Builtins: provider})
	f.build(t)
	if f.ix.Builtins() || !f.ix.HasFunction("main") {
		t.Error("a failing provider should leave an unseeded but usable index")
	}
}

func TestResolveVariable(t *testing.T) {
	a := "GLOBAL INT x;\nFUNCTION F()\n\tINT x;\n\tx = 1;\nEND\n"
	b := "INT x;\nFUNCTION G()\n\tx = 2;\nEND\n"
	c := "FUNCTION H()\n\tx = 3;\nEND\n"
	f := newFixture(t, map[string]string{"/ws/a.ci": a, "/ws/b.ci": b, "/ws/c.ci": c}, Options{})
	f.build(t)

	tests := []struct {
		file      string
		offset    int
		wantScope scope.Kind
		wantID    string
	}{
		{"/ws/a.ci", strings.Index(a, "x = 1"), scope.Local, "/ws/a.ci#f"},
		{"/ws/b.ci", strings.Index(b, "x = 2"), scope.Module, "/ws/b.ci"},
		{"/ws/c.ci", strings.Index(c, "x = 3"), scope.Global, GlobalScopeID},
		{"/ws/a.ci", 0, scope.Global, GlobalScopeID},
	}
	for _, tt := range tests {
		v, ok := f.ix.ResolveVariable("X", tt.file, tt.offset)
		if !ok {
			t.Errorf("ResolveVariable(%s@%d) not found", tt.file, tt.offset)
			continue
		}
		if v.Scope != tt.wantScope || v.ScopeID != tt.wantID {
			t.Errorf("ResolveVariable(%s@%d) = %v %q, want %v %q", tt.file, tt.offset, v.Scope, v.ScopeID, tt.wantScope, tt.wantID)
		}
	}
	if _, ok := f.ix.ResolveVariable("nope", "/ws/a.ci", 0); ok {
		t.Error("ResolveVariable(nope) found something")
	}

	globals := f.ix.FindVariables(func(v Variable) bool { return v.Scope == scope.Global })
	if len(globals) != 1 || globals[0].File != "/ws/a.ci" {
		t.Errorf("FindVariables(global) = %+v", globals)
	}
}

func TestMoveFile(t *testing.T) {
	text := "MODULE INT mCount;\nFUNCTION Foo(INT n)\n\tSTRING s;\nEND\n"
	f := newFixture(t, map[string]string{"/ws/old.ci": text}, Options{})
	f.build(t)
	before, _ := f.ix.Function("foo")
	events := f.record(t)

	if err := f.ix.MoveFile("/ws/old.ci", "/ws/new.ci"); err != nil {
		t.Fatalf("MoveFile() error = %v", err)
	}

	fn, ok := f.ix.Function("foo")
	if !ok || fn.File != "/ws/new.ci" || fn.Location.URI != textdoc.URIFromPath("/ws/new.ci") {
		t.Fatalf("Function(foo) = %+v", fn)
	}
	if diff := cmp.Diff(before.Location.Range, fn.Location.Range); diff != "" {
		t.Errorf("range changed by move (-want +got):\n%s", diff)
	}
	if before.File != "/ws/old.ci" {
		t.Errorf("copy returned before the move was modified: %q", before.File)
	}
	if diff := cmp.Diff([]string{"/ws/new.ci"}, f.ix.Files()); diff != "" {
		t.Errorf("Files() mismatch (-want +got):\n%s", diff)
	}
	ids := map[string]string{}
	for _, v := range f.ix.FileVariables("/ws/new.ci") {
		ids[v.Name] = v.ScopeID
	}
	want := map[string]string{"mCount": "/ws/new.ci", "n": "/ws/new.ci#foo", "s": "/ws/new.ci#foo"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("scope IDs mismatch (-want +got):\n%s", diff)
	}
	if doc, ok := f.ix.Document("/ws/new.ci"); !ok || doc.Path != "/ws/new.ci" || doc.Text != text {
		t.Error("document not moved")
	}
	if diff := cmp.Diff([]Event{{File: "/ws/old.ci"}, {File: "/ws/new.ci"}}, *events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	err := f.ix.MoveFile("/ws/missing.ci", "/ws/x.ci")
	if !errors.Is(err, ErrNotIndexed) {
		t.Errorf("MoveFile(missing) error = %v, want ErrNotIndexed", err)
	}
}

func TestMoveFile_OntoIndexedFile(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/ws/a.ci": "FUNCTION A()\nEND\n",
		"/ws/b.ci": "FUNCTION B()\nEND\n",
	}, Options{})
	f.build(t)
	if err := f.ix.MoveFile("/ws/a.ci", "/ws/b.ci"); err != nil {
		t.Fatal(err)
	}
	if f.ix.HasFunction("b") {
		t.Error("contribution of the overwritten file survived")
	}
	if fn, _ := f.ix.Function("a"); fn.File != "/ws/b.ci" {
		t.Errorf("A.File = %q", fn.File)
	}
}

func TestRequestUpdate_Debounced(t *testing.T) {
	f := newFixture(t, map[string]string{"/ws/a.ci": "FUNCTION One()\nEND\n"}, Options{})
	f.build(t)
	events := f.record(t)

	f.overlay.Update("/ws/a.ci", "FUNCTION Two()\nEND\n")
	f.ix.RequestUpdate("/ws/a.ci")
	f.clock.Advance(200 * time.Millisecond)
	f.ix.RequestUpdate("/ws/a.ci")
	f.clock.Advance(DefaultDebounce - time.Millisecond)
	if f.ix.HasFunction("two") {
		t.Fatal("update applied before the quiet period elapsed")
	}
	f.clock.Advance(time.Millisecond)
	if !f.ix.HasFunction("two") || f.ix.HasFunction("one") {
		t.Error("update not applied after the quiet period")
	}
	if diff := cmp.Diff([]Event{{File: "/ws/a.ci"}}, *events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestRequestUpdate_DeferredDuringBuild(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/ws/a.ci": "FUNCTION A()\nEND\n",
		"/ws/b.ci": "FUNCTION B()\nEND\n",
	}, Options{})
	// c.ci is open in the editor but not discovered.
	f.overlay.Open("/ws/c.ci", "FUNCTION C()\nEND\n")

	var once sync.Once
	f.source.onRead = func(path string) {
		once.Do(func() {
			f.ix.RequestUpdate("/ws/c.ci")
			f.clock.Advance(DefaultDebounce)
			if f.ix.HasFunction("c") {
				t.Error("update applied while the build was running")
			}
		})
	}
	events := f.record(t)
	f.build(t)

	if !f.ix.HasFunction("c") {
		t.Error("deferred update not applied after the build")
	}
	if diff := cmp.Diff([]Event{{Full: true}, {File: "/ws/c.ci"}}, *events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildAll_Superseded(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/ws/a.ci": "FUNCTION A()\nEND\n",
		"/ws/b.ci": "FUNCTION B()\nEND\n",
	}, Options{})

	second := make(chan error, 1)
	var once sync.Once
	f.source.onRead = func(path string) {
		once.Do(func() {
			go func() { second <- f.ix.BuildAll(context.Background()) }()
			for f.ix.version.Load() < 2 {
				runtime.Gosched()
			}
		})
	}
	events := f.record(t)
	f.build(t)
	if err := <-second; err != nil {
		t.Fatalf("second BuildAll() error = %v", err)
	}

	if got := testutil.ToFloat64(f.ix.metrics.superseded); got != 1 {
		t.Errorf("superseded builds = %v, want 1", got)
	}
	if !f.ix.Ready() || !f.ix.HasFunction("a") || !f.ix.HasFunction("b") {
		t.Error("the newer build did not complete")
	}
	if diff := cmp.Diff([]Event{{Full: true}}, *events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildAll_ReadFailureContinues(t *testing.T) {
	f := newFixture(t, map[string]string{"/ws/a.ci": "FUNCTION A()\nEND\n"}, Options{})
	f.files = append(f.files, "/ws/gone.ci")
	f.build(t)

	if diff := cmp.Diff([]string{"/ws/a.ci"}, f.ix.Files()); diff != "" {
		t.Errorf("Files() mismatch (-want +got):\n%s", diff)
	}
	if got := testutil.ToFloat64(f.ix.metrics.indexErrors); got != 1 {
		t.Errorf("index errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(f.ix.metrics.filesIndexed); got != 1 {
		t.Errorf("files indexed = %v, want 1", got)
	}
}

func TestBuildAll_Canceled(t *testing.T) {
	f := newFixture(t, map[string]string{"/ws/a.ci": "FUNCTION A()\nEND\n"}, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.ix.BuildAll(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("BuildAll() error = %v, want context.Canceled", err)
	}
	if f.ix.Ready() {
		t.Error("Ready() after a canceled build")
	}
}

func TestBuildAll_DiscoverError(t *testing.T) {
	f := newFixture(t, nil, Options{
		Discover: func(string) ([]string, error) { return nil, errors.New("boom") },
	})
	if err := f.ix.BuildAll(context.Background()); err == nil {
		t.Error("BuildAll() should report a discovery failure")
	}
}

func TestSubscribe_Order(t *testing.T) {
	f := newFixture(t, map[string]string{"/ws/a.ci": "FUNCTION A()\nEND\n"}, Options{})
	var got []string
	unsub := f.ix.Subscribe(func(ev Event) { got = append(got, "first:"+ev.File) })
	f.ix.Subscribe(func(ev Event) { got = append(got, "second:"+ev.File) })

	ctx := context.Background()
	if err := f.ix.IndexFile(ctx, "/ws/a.ci"); err != nil {
		t.Fatal(err)
	}
	unsub()
	if err := f.ix.IndexFile(ctx, "/ws/a.ci"); err != nil {
		t.Fatal(err)
	}
	want := []string{"first:/ws/a.ci", "second:/ws/a.ci", "second:/ws/a.ci"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestDuplicateFunctions(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/ws/a.ci": "FUNCTION Dup()\nEND\nFUNCTION dup()\nEND\n",
		"/ws/b.ci": "FUNCTION Dup()\nEND\n",
	}, Options{})
	f.build(t)
	got := f.ix.DuplicateFunctions()
	if len(got) != 1 || len(got["/ws/a.ci"]) != 1 || len(got["/ws/a.ci"][0]) != 2 {
		t.Errorf("DuplicateFunctions() = %v", got)
	}
}

func TestClose(t *testing.T) {
	f := newFixture(t, map[string]string{"/ws/a.ci": "FUNCTION A()\nEND\n"}, Options{})
	f.build(t)
	if err := f.ix.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.ix.BuildAll(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("BuildAll() after Close = %v, want ErrClosed", err)
	}
	if !f.ix.HasFunction("a") {
		t.Error("queries stopped working after Close")
	}
}

func TestMetricsRegistered(t *testing.T) {
	f := newFixture(t, map[string]string{"/ws/a.ci": "FUNCTION A(INT x)\nEND\n"}, Options{})
	f.build(t)
	n, err := testutil.GatherAndCount(f.reg)
	if err != nil {
		t.Fatal(err)
	}
	if n != 6 {
		t.Errorf("registered metrics = %d, want 6", n)
	}
	if got := testutil.ToFloat64(f.ix.metrics.variables); got != 1 {
		t.Errorf("variables gauge = %v, want 1", got)
	}
}

func TestFunctionSignature(t *testing.T) {
	tests := []struct {
		fn   Function
		want string
	}{
		{Function{Name: "Add", ReturnType: "INT", Params: []string{"INT a", "INT b = 0"}}, "INT FUNCTION Add(INT a, INT b = 0)"},
		{Function{Name: "Main", ReturnType: "VOID"}, "FUNCTION Main()"},
		{Function{Name: "Beep"}, "FUNCTION Beep()"},
	}
	for _, tt := range tests {
		if got := tt.fn.Signature(); got != tt.want {
			t.Errorf("Signature() = %q, want %q", got, tt.want)
		}
	}
}

func TestParamName(t *testing.T) {
	for raw, want := range map[string]string{
		"INT a":               "a",
		"[INT Mode = 0]":      "Mode",
		"STRING sText = \"\"": "sText",
		"x":                   "x",
		"":                    "",
	} {
		if got := ParamName(raw); got != want {
			t.Errorf("ParamName(%q) = %q, want %q", raw, got, want)
		}
	}
}
