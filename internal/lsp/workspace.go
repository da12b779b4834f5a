package lsp

import (
	"cmp"
	"context"
	"encoding/json"
	"slices"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/albertocavalcante/cix/internal/cicode/indexer"
	"github.com/albertocavalcante/cix/internal/cicode/scope"
	"github.com/albertocavalcante/cix/internal/cicode/textdoc"
)

// handleDocumentSymbol lists the functions of a file, each with its
// parameters and locals as children, followed by module-level variables.
func (s *Server) handleDocumentSymbol(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.DocumentSymbolParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	ix := s.Index()
	path := uriToPath(p.TextDocument.URI)
	s.refresh(ctx, ix, path)

	doc, ok := ix.Document(path)
	if !ok {
		return nil, nil
	}
	vars := ix.FileVariables(path)

	symbols := []protocol.DocumentSymbol{}
	for _, r := range ix.FunctionRanges(path) {
		fn := protocol.DocumentSymbol{
			Name:           r.Name,
			Detail:         r.ReturnType,
			Kind:           protocol.SymbolKindFunction,
			Range:          doc.RangeOf(r.HeaderStart, r.BodyEnd),
			SelectionRange: r.NameRange,
		}
		for _, v := range vars {
			if v.Function == "" || !r.Contains(v.DeclOffset) {
				continue
			}
			fn.Children = append(fn.Children, variableSymbol(doc, v))
		}
		symbols = append(symbols, fn)
	}
	for _, v := range vars {
		if v.Function == "" {
			symbols = append(symbols, variableSymbol(doc, v))
		}
	}
	slices.SortStableFunc(symbols, func(a, b protocol.DocumentSymbol) int {
		return cmp.Or(
			cmp.Compare(a.Range.Start.Line, b.Range.Start.Line),
			cmp.Compare(a.Range.Start.Character, b.Range.Start.Character),
		)
	})
	return symbols, nil
}

func variableSymbol(doc *textdoc.Document, v indexer.Variable) protocol.DocumentSymbol {
	rng := doc.RangeOf(v.DeclOffset, v.DeclOffset+len(v.Name))
	return protocol.DocumentSymbol{
		Name:           v.Name,
		Detail:         v.Type,
		Kind:           protocol.SymbolKindVariable,
		Range:          rng,
		SelectionRange: rng,
	}
}

// handleWorkspaceSymbol searches user functions and module or global
// variables whose name contains the query, ignoring case.
func (s *Server) handleWorkspaceSymbol(params json.RawMessage) (any, error) {
	var p protocol.WorkspaceSymbolParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	ix := s.Index()
	query := strings.ToLower(p.Query)
	match := func(name string) bool {
		return strings.Contains(strings.ToLower(name), query)
	}

	symbols := []protocol.SymbolInformation{}
	for _, fn := range ix.Functions() {
		if fn.IsBuiltin() || fn.Location == nil || !match(fn.Name) {
			continue
		}
		symbols = append(symbols, protocol.SymbolInformation{
			Name:     fn.Name,
			Kind:     protocol.SymbolKindFunction,
			Location: *fn.Location,
		})
	}
	vars := ix.FindVariables(func(v indexer.Variable) bool {
		return v.Scope != scope.Local && match(v.Name)
	})
	for _, v := range vars {
		symbols = append(symbols, protocol.SymbolInformation{
			Name:          v.Name,
			Kind:          protocol.SymbolKindVariable,
			Location:      v.Location,
			ContainerName: v.Scope.String(),
		})
	}
	return symbols, nil
}
