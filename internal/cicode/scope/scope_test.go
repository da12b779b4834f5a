package scope

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/albertocavalcante/cix/internal/cicode/extract"
	"github.com/albertocavalcante/cix/internal/cicode/lang"
	"github.com/albertocavalcante/cix/internal/cicode/span"
	"github.com/albertocavalcante/cix/internal/cicode/textdoc"
)

func scan(text string) []Declaration {
	doc := textdoc.New("test.ci", text)
	spans := span.Compute(text, span.Options{})
	return Scan(doc, spans, extract.Functions(doc, spans))
}

type decl struct {
	Name, Type string
	Kind       Kind
	Function   string
}

func summarize(ds []Declaration) []decl {
	var out []decl
	for _, d := range ds {
		out = append(out, decl{d.Name, d.Type, d.Kind, d.Function})
	}
	return out
}

func TestScan_Kinds(t *testing.T) {
	text := `GLOBAL INT gCount = 0;
MODULE STRING mName;
REAL mRate, mLimit = 1.5;

INT FUNCTION Work(INT n)
	INT i, j = 2;
	GLOBAL STRING gLast;
	MODULE INT forcedLocal;
	IF n > 0 THEN
		RETURN n;
	END
	RETURN 0;
END

OBJECT mTail;
`
	got := summarize(scan(text))
	want := []decl{
		{"i", "INT", Local, "Work"},
		{"j", "INT", Local, "Work"},
		{"gLast", "STRING", Global, "Work"},
		{"forcedLocal", "INT", Local, "Work"},
		{"gCount", "INT", Global, ""},
		{"mName", "STRING", Module, ""},
		{"mRate", "REAL", Module, ""},
		{"mLimit", "REAL", Module, ""},
		{"mTail", "OBJECT", Module, ""},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Scan() mismatch (-want +got):\n%s", diff)
	}
}

func TestScan_Offsets(t *testing.T) {
	text := "STRING a, b = \"x,y\", c[4];\n"
	ds := scan(text)
	var names []string
	for _, d := range ds {
		names = append(names, d.Name)
		if text[d.Offset:d.End] != d.Name {
			t.Errorf("%s: text at offset = %q", d.Name, text[d.Offset:d.End])
		}
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if ds[1].Offset != strings.Index(text, "b =") {
		t.Errorf("b offset = %d", ds[1].Offset)
	}
}

func TestScan_IgnoresNonDeclarations(t *testing.T) {
	text := `// INT commented;
s = "INT quoted";
FUNCTION F()
	FOR i = 0 TO 5 DO
	END
	Foo(INT);
	/* REAL hidden; */
END
`
	if got := scan(text); len(got) != 0 {
		t.Errorf("Scan() = %+v, want none", summarize(got))
	}
}

func TestParams(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Param
	}{
		{
			name: "typed",
			text: "INT a, STRING b",
			want: []Param{
				{Name: "a", Type: "INT", Raw: "INT a"},
				{Name: "b", Type: "STRING", Raw: "STRING b"},
			},
		},
		{
			name: "defaults",
			text: `STRING sTag = "a,b", INT  iMode = 0`,
			want: []Param{
				{Name: "sTag", Type: "STRING", Default: `"a,b"`, Raw: `STRING sTag = "a,b"`},
				{Name: "iMode", Type: "INT", Default: "0", Raw: "INT iMode = 0"},
			},
		},
		{
			name: "untyped",
			text: "x, y",
			want: []Param{
				{Name: "x", Type: lang.Unknown, Raw: "x"},
				{Name: "y", Type: lang.Unknown, Raw: "y"},
			},
		},
		{
			name: "optional brackets",
			text: "INT a, [INT b]",
			want: []Param{
				{Name: "a", Type: "INT", Raw: "INT a"},
				{Name: "b", Type: "INT", Raw: "[INT b]"},
			},
		},
		{
			name: "empty",
			text: "  ",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans := span.Compute(tt.text, span.Options{})
			got := Params(tt.text, 0, len(tt.text), spans)
			if diff := cmp.Diff(tt.want, got, cmpopts.IgnoreFields(Param{}, "Offset")); diff != "" {
				t.Errorf("Params() mismatch (-want +got):\n%s", diff)
			}
			for _, p := range got {
				if tt.text[p.Offset:p.Offset+len(p.Name)] != p.Name {
					t.Errorf("%s: offset %d points at %q", p.Name, p.Offset, tt.text[p.Offset:])
				}
			}
		})
	}
}

func TestKindString(t *testing.T) {
	for k, want := range map[Kind]string{Local: "local", Module: "module", Global: "global"} {
		if got := k.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", k, got, want)
		}
	}
}
