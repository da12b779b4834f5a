package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/albertocavalcante/cix/internal/cicode/builtins"
)

func TestDefaultProvider(t *testing.T) {
	tab, err := NewDefaultProvider().Builtins()
	if err != nil {
		t.Fatalf("Builtins() error = %v", err)
	}
	fn, ok := tab.Lookup("TAGREAD")
	if !ok {
		t.Fatal("TagRead missing from default table")
	}
	if fn.Name != "TagRead" || fn.ReturnType != "STRING" || len(fn.Params) != 3 {
		t.Errorf("TagRead = %+v", fn)
	}
	for key, fn := range tab {
		if builtins.Key(fn.Name) != key {
			t.Errorf("entry %q has name %q", key, fn.Name)
		}
	}
}

func TestJSONProvider(t *testing.T) {
	p := &JSONProvider{
		path: "b.json",
		dataFS: &memFS{files: map[string][]byte{
			"b.json": []byte(`{"foo": {"name": "Foo", "returnType": "INT", "params": ["INT a", "[INT b]"]}, "bar": {}}`),
		}},
	}
	got, err := p.Builtins()
	if err != nil {
		t.Fatalf("Builtins() error = %v", err)
	}
	want := builtins.Table{
		"foo": {Name: "Foo", ReturnType: "INT", Params: []string{"INT a", "[INT b]"}},
		"bar": {Name: "bar"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Builtins() mismatch (-want +got):\n%s", diff)
	}

	got["foo"] = builtins.Function{}
	again, _ := p.Builtins()
	if again["foo"].Name != "Foo" {
		t.Error("mutating a returned table changed the provider's cache")
	}
}

func TestJSONProvider_Errors(t *testing.T) {
	if _, err := NewJSONProvider(filepath.Join(t.TempDir(), "missing.json")).Builtins(); err == nil {
		t.Error("missing file should fail")
	}
	bad := &JSONProvider{path: "x", dataFS: &memFS{files: map[string][]byte{"x": []byte("{")}}}
	if _, err := bad.Builtins(); err == nil {
		t.Error("malformed JSON should fail")
	}
}

func TestEncodeDecodeCache(t *testing.T) {
	tab := builtins.Table{
		"message": {
			Name:       "Message",
			ReturnType: "INT",
			Params:     []string{"STRING Title", "STRING Message", "INT Mode"},
			Summary:    "Displays a message box.",
			ParamDocs:  map[string]string{"Mode": "Box mode."},
			HelpURL:    "https://example.com/message",
		},
	}
	data, err := EncodeCache("v1", tab)
	if err != nil {
		t.Fatalf("EncodeCache() error = %v", err)
	}
	key, got, err := DecodeCache(data)
	if err != nil {
		t.Fatalf("DecodeCache() error = %v", err)
	}
	if key != "v1" {
		t.Errorf("key = %q, want v1", key)
	}
	if diff := cmp.Diff(tab, got); diff != "" {
		t.Errorf("DecodeCache() mismatch (-want +got):\n%s", diff)
	}

	if _, _, err := DecodeCache([]byte("not a proto \xff")); err == nil {
		t.Error("DecodeCache() of garbage should fail")
	}
}

type countingProvider struct {
	calls int
	table builtins.Table
}

func (c *countingProvider) Builtins() (builtins.Table, error) {
	c.calls++
	return c.table, nil
}

func TestCacheProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache", "builtins.pb")
	src := &countingProvider{table: builtins.Table{"sleep": {Name: "Sleep", Params: []string{"INT Seconds"}}}}

	first, err := NewCacheProvider(path, "k1", src).Builtins()
	if err != nil {
		t.Fatalf("Builtins() error = %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("source calls = %d, want 1", src.calls)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("cache not written: %v", err)
	}

	second, err := NewCacheProvider(path, "k1", src).Builtins()
	if err != nil {
		t.Fatalf("cached Builtins() error = %v", err)
	}
	if src.calls != 1 {
		t.Errorf("source calls = %d after cache hit, want 1", src.calls)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached table mismatch (-want +got):\n%s", diff)
	}

	if _, err := NewCacheProvider(path, "k2", src).Builtins(); err != nil {
		t.Fatal(err)
	}
	if src.calls != 2 {
		t.Errorf("source calls = %d after key change, want 2", src.calls)
	}
}

func TestCacheProvider_CorruptCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "builtins.pb")
	if err := os.WriteFile(path, []byte("\xff\xff\xff"), 0o644); err != nil {
		t.Fatal(err)
	}
	src := &countingProvider{table: builtins.Table{"abs": {Name: "Abs"}}}
	got, err := NewCacheProvider(path, "", src).Builtins()
	if err != nil {
		t.Fatalf("Builtins() error = %v", err)
	}
	if _, ok := got.Lookup("abs"); !ok || src.calls != 1 {
		t.Errorf("corrupt cache not rebuilt: %v, calls=%d", got, src.calls)
	}
}
