package builtins

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTable(t *testing.T) {
	tab := make(Table)
	tab.Add(Function{Name: "TagRead", ReturnType: "STRING"})
	tab.Add(Function{Name: "message"})
	tab.Add(Function{Name: "Message", ReturnType: "INT"})

	fn, ok := tab.Lookup("TAGREAD")
	if !ok || fn.Name != "TagRead" {
		t.Errorf("Lookup(TAGREAD) = %+v, %v", fn, ok)
	}
	if fn, _ := tab.Lookup("message"); fn.ReturnType != "INT" {
		t.Errorf("last Add should win, got %+v", fn)
	}
	if diff := cmp.Diff([]string{"Message", "TagRead"}, tab.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestTable_Normalize(t *testing.T) {
	tab := Table{"sleep": {}, "WRONG": {Name: "StrLeft"}}
	got := tab.Normalize()
	want := Table{"sleep": {Name: "sleep"}, "strleft": {Name: "StrLeft"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
	}
}

func TestChainProvider(t *testing.T) {
	a := ProviderFunc(func() (Table, error) {
		return Table{"f": {Name: "F", ReturnType: "INT"}, "g": {Name: "G"}}, nil
	})
	b := ProviderFunc(func() (Table, error) {
		return Table{"f": {Name: "F", ReturnType: "REAL"}}, nil
	})
	broken := ProviderFunc(func() (Table, error) { return nil, errors.New("boom") })

	got, err := NewChainProvider(a, broken, b).Builtins()
	if err != nil {
		t.Fatalf("Builtins() error = %v", err)
	}
	if got["f"].ReturnType != "REAL" || got["g"].Name != "G" {
		t.Errorf("Builtins() = %+v", got)
	}

	if _, err := NewChainProvider(broken).Builtins(); err == nil {
		t.Error("Builtins() with only failing providers should fail")
	}
	if got, err := NewChainProvider().Builtins(); err != nil || len(got) != 0 {
		t.Errorf("empty chain = %v, %v", got, err)
	}
}
