package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/albertocavalcante/cix/internal/cicode/indexer"
	"github.com/albertocavalcante/cix/internal/cicode/lang"
	"github.com/albertocavalcante/cix/internal/cicode/refs"
	"github.com/albertocavalcante/cix/internal/cicode/textdoc"
)

// refresh re-indexes an open file whose buffer has moved ahead of the
// index, so positions sent by the client match the indexed text.
func (s *Server) refresh(ctx context.Context, ix *indexer.Indexer, path string) {
	if !s.overlay.IsOpen(path) {
		return
	}
	text, err := s.overlay.ReadFile(path)
	if err != nil {
		return
	}
	if doc, ok := ix.Document(path); ok && doc.Text == text {
		return
	}
	if err := ix.IndexFile(ctx, path); err != nil {
		log.Printf("lsp: refreshing %s: %v", path, err)
	}
}

// symbolAt resolves the symbol under pos in the document at uri.
func (s *Server) symbolAt(ctx context.Context, uri protocol.DocumentURI, pos protocol.Position) (refs.Symbol, *textdoc.Document, int, error) {
	ix := s.Index()
	path := uriToPath(uri)
	s.refresh(ctx, ix, path)

	doc, ok := ix.Document(path)
	if !ok {
		return refs.Symbol{}, nil, 0, indexer.ErrNotIndexed
	}
	offset := doc.OffsetAt(pos)
	sym, err := refs.Resolve(ix, path, offset)
	return sym, doc, offset, err
}

// handleHover shows the signature and documentation of the symbol under
// the cursor.
func (s *Server) handleHover(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.HoverParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	sym, doc, offset, err := s.symbolAt(ctx, p.TextDocument.URI, p.Position)
	if err != nil {
		return nil, nil
	}

	var value string
	if sym.Function != nil {
		value = functionMarkdown(*sym.Function)
	} else {
		value = variableMarkdown(*sym.Variable)
	}

	_, start, end := lang.WordAt(doc.Text, offset)
	rng := doc.RangeOf(start, end)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: value},
		Range:    &rng,
	}, nil
}

func functionMarkdown(fn indexer.Function) string {
	var b strings.Builder
	fmt.Fprintf(&b, "```cicode\n%s\n```\n", fn.Signature())
	if fn.Doc.Summary != "" {
		fmt.Fprintf(&b, "\n%s\n", fn.Doc.Summary)
	}

	var params []string
	for _, raw := range fn.Params {
		name := indexer.ParamName(raw)
		if desc := fn.Doc.Param(name); desc != "" {
			params = append(params, fmt.Sprintf("- `%s`: %s", name, desc))
		}
	}
	if len(params) > 0 {
		fmt.Fprintf(&b, "\n**Parameters**\n\n%s\n", strings.Join(params, "\n"))
	}
	if fn.Doc.Returns != "" {
		fmt.Fprintf(&b, "\n**Returns** %s\n", fn.Doc.Returns)
	}

	switch {
	case fn.IsBuiltin() && fn.HelpURL != "":
		fmt.Fprintf(&b, "\n[Reference](%s)\n", fn.HelpURL)
	case fn.IsBuiltin():
		b.WriteString("\n_builtin_\n")
	case fn.Location != nil:
		fmt.Fprintf(&b, "\nDefined in `%s` line %d\n", fn.File, fn.Location.Range.Start.Line+1)
	}
	return b.String()
}

func variableMarkdown(v indexer.Variable) string {
	kind := v.Scope.String()
	if v.IsParam {
		kind = "parameter"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "```cicode\n%s %s\n```\n", v.Type, v.Name)
	if v.Function != "" {
		fmt.Fprintf(&b, "\n%s variable in `%s`\n", kind, v.Function)
	} else {
		fmt.Fprintf(&b, "\n%s variable\n", kind)
	}
	return b.String()
}

// handleDefinition jumps to the declaration of a user function or
// variable. Builtins have no location.
func (s *Server) handleDefinition(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.DefinitionParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	sym, _, _, err := s.symbolAt(ctx, p.TextDocument.URI, p.Position)
	if err != nil {
		return nil, nil
	}

	if fn := sym.Function; fn != nil {
		if fn.Location == nil {
			return nil, nil
		}
		return []protocol.Location{*fn.Location}, nil
	}
	return []protocol.Location{s.declaration(*sym.Variable)}, nil
}

// declaration returns the location of v's name token. For parameters this
// is inside the parameter list rather than at the function name.
func (s *Server) declaration(v indexer.Variable) protocol.Location {
	doc, ok := s.Index().Document(v.File)
	if !ok {
		return v.Location
	}
	return protocol.Location{
		URI:   textdoc.URIFromPath(v.File),
		Range: doc.RangeOf(v.DeclOffset, v.DeclOffset+len(v.Name)),
	}
}
