package lang

import (
	"slices"
	"testing"
)

func TestKeywordClasses(t *testing.T) {
	tests := []struct {
		word      string
		isType    bool
		isKeyword bool
		isBlock   bool
	}{
		{"int", true, true, false},
		{"Timestamp", true, true, false},
		{"if", false, true, true},
		{"Select", false, true, false},
		{"function", false, true, false},
		{"bitand", false, true, false},
		{"void", false, true, false},
		{"Count", false, false, false},
	}
	for _, tt := range tests {
		if got := IsType(tt.word); got != tt.isType {
			t.Errorf("IsType(%q) = %v, want %v", tt.word, got, tt.isType)
		}
		if got := IsKeyword(tt.word); got != tt.isKeyword {
			t.Errorf("IsKeyword(%q) = %v, want %v", tt.word, got, tt.isKeyword)
		}
		if got := IsBlockOpener(tt.word); got != tt.isBlock {
			t.Errorf("IsBlockOpener(%q) = %v, want %v", tt.word, got, tt.isBlock)
		}
	}
	if !IsScopeQualifier("global") || !IsScopeQualifier("MODULE") || IsScopeQualifier("local") {
		t.Error("IsScopeQualifier misclassifies GLOBAL/MODULE")
	}
	if !IsModifier("private") {
		t.Error("IsModifier(private) = false")
	}
}

func TestKeywords(t *testing.T) {
	kws := Keywords()
	for _, want := range []string{"FUNCTION", "GLOBAL", "INT", "END", "MOD", "PUBLIC"} {
		if !slices.Contains(kws, want) {
			t.Errorf("Keywords() is missing %s", want)
		}
	}
	for _, kw := range kws {
		if !IsKeyword(kw) {
			t.Errorf("Keywords() contains %s, but IsKeyword is false", kw)
		}
	}
}

func TestIsIdent(t *testing.T) {
	for s, want := range map[string]bool{
		"Main":   true,
		"_tmp1":  true,
		"1abc":   false,
		"a-b":    false,
		"":       false,
		"gCount": true,
	} {
		if got := IsIdent(s); got != want {
			t.Errorf("IsIdent(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestIndexWord(t *testing.T) {
	text := "Add(x); AddAll(); y = add;"
	tests := []struct {
		from int
		want int
	}{
		{0, 0},
		{1, 22},
		{23, -1},
	}
	for _, tt := range tests {
		if got := IndexWord(text, "ADD", tt.from); got != tt.want {
			t.Errorf("IndexWord(from=%d) = %d, want %d", tt.from, got, tt.want)
		}
	}
	if got := IndexWord(text, "", 0); got != -1 {
		t.Errorf("IndexWord(empty) = %d, want -1", got)
	}
}

func TestWordAt(t *testing.T) {
	text := "total = Add(1);"
	tests := []struct {
		offset    int
		word      string
		start, to int
	}{
		{0, "total", 0, 5},
		{5, "total", 0, 5},
		{9, "Add", 8, 11},
		{6, "", 6, 6},
		{12, "", 12, 12},
		{99, "", 99, 99},
	}
	for _, tt := range tests {
		word, start, end := WordAt(text, tt.offset)
		if word != tt.word || start != tt.start || end != tt.to {
			t.Errorf("WordAt(%d) = %q [%d,%d), want %q [%d,%d)", tt.offset, word, start, end, tt.word, tt.start, tt.to)
		}
	}
}
