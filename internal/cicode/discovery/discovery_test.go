package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFinder_Find(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"main.ci",
		"Lib/Alarm.CI",
		"lib/notes.txt",
		".git/hooks/x.ci",
		"backup/old.ci",
		"src/gen/auto.ci",
		"src/keep.ci",
	)

	f := Finder{Exclude: []string{"backup", "src/**/gen"}}
	got, err := f.Find(root)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	var rel []string
	for _, p := range got {
		r, _ := filepath.Rel(root, p)
		rel = append(rel, filepath.ToSlash(r))
	}
	want := []string{"Lib/Alarm.CI", "main.ci", "src/keep.ci"}
	if diff := cmp.Diff(want, rel); diff != "" {
		t.Errorf("Find() mismatch (-want +got):\n%s", diff)
	}
}

func TestFinder_FindSingleFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "one.ci")
	p := filepath.Join(root, "one.ci")
	got, err := Finder{}.Find(p)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{p}, got); diff != "" {
		t.Errorf("Find() mismatch (-want +got):\n%s", diff)
	}
}

func TestFinder_FindMissingRoot(t *testing.T) {
	got, err := Finder{}.Find(filepath.Join(t.TempDir(), "nope"))
	if err != nil || got != nil {
		t.Errorf("Find() = %v, %v; want nil, nil", got, err)
	}
}

func TestFinder_Extensions(t *testing.T) {
	f := Finder{Extensions: []string{".cicode", ".ci"}}
	for name, want := range map[string]bool{
		"a.ci":     true,
		"a.CICODE": true,
		"a.cia":    false,
		"ci":       false,
	} {
		if got := f.IsSource(name); got != want {
			t.Errorf("IsSource(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern, name string
		want          bool
	}{
		{"*.bak.ci", "a/b/x.bak.ci", true},
		{"vendor", "x/vendor/y.ci", true},
		{"vendor/*.ci", "vendor/y.ci", true},
		{"vendor/*.ci", "x/vendor/y.ci", false},
		{"**/tmp/**", "a/b/tmp/c/d.ci", true},
		{"**/tmp/**", "tmp/d.ci", true},
		{"src/**/*.ci", "src/a.ci", true},
		{"src/**/*.ci", "lib/a.ci", false},
		{"./build/", "build", true},
		{"*.{bak,tmp}.ci", "x/y.tmp.ci", true},
		{"{build,out}/**", "out/a.ci", true},
		{"{build,out}/**", "src/out.ci", false},
		{"[", "a.ci", false},
	}
	for _, tt := range tests {
		if got := Match(tt.pattern, tt.name); got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.name, got, tt.want)
		}
	}
}
