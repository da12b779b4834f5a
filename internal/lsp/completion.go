package lsp

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/albertocavalcante/cix/internal/cicode/indexer"
	"github.com/albertocavalcante/cix/internal/cicode/lang"
	"github.com/albertocavalcante/cix/internal/cicode/scope"
	"github.com/albertocavalcante/cix/internal/cicode/span"
)

// handleCompletion offers keywords, functions and the variables visible at
// the cursor, filtered by the identifier prefix typed so far.
func (s *Server) handleCompletion(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.CompletionParams
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
	offset := doc.OffsetAt(p.Position)
	if span.Ignored(offset, ix.IgnoreSpans(path)) {
		return nil, nil
	}
	start := offset
	for start > 0 && lang.IsIdentChar(doc.Text[start-1]) {
		start--
	}
	prefix := strings.ToLower(doc.Text[start:offset])
	match := func(name string) bool {
		return strings.HasPrefix(strings.ToLower(name), prefix)
	}

	var items []protocol.CompletionItem
	seen := make(map[string]bool)

	// Variables first so a local hides a function of the same name.
	for _, v := range visibleVariables(ix, path, offset) {
		key := lang.Key(v.Name)
		if seen[key] || !match(v.Name) {
			continue
		}
		seen[key] = true
		items = append(items, protocol.CompletionItem{
			Label:  v.Name,
			Kind:   protocol.CompletionItemKindVariable,
			Detail: v.Type + " (" + v.Scope.String() + ")",
		})
	}

	for _, fn := range ix.Functions() {
		key := lang.Key(fn.Name)
		if seen[key] || !match(fn.Name) {
			continue
		}
		seen[key] = true
		item := protocol.CompletionItem{
			Label:  fn.Name,
			Kind:   protocol.CompletionItemKindFunction,
			Detail: fn.Signature(),
		}
		if fn.Doc.Summary != "" {
			item.Documentation = fn.Doc.Summary
		}
		items = append(items, item)
	}

	keywords := lang.Keywords()
	sort.Strings(keywords)
	for _, kw := range keywords {
		if seen[lang.Key(kw)] || !match(kw) {
			continue
		}
		items = append(items, protocol.CompletionItem{
			Label: kw,
			Kind:  protocol.CompletionItemKindKeyword,
		})
	}

	return &protocol.CompletionList{
		IsIncomplete: false,
		Items:        items,
	}, nil
}

// visibleVariables returns the variables in scope at offset of path, the
// narrowest scope first.
func visibleVariables(ix *indexer.Indexer, path string, offset int) []indexer.Variable {
	localID := ""
	if r, ok := ix.FunctionAt(path, offset); ok {
		localID = indexer.LocalScopeID(path, r.Name)
	}
	vars := ix.FindVariables(func(v indexer.Variable) bool {
		switch v.Scope {
		case scope.Local:
			return localID != "" && v.ScopeID == localID
		case scope.Module:
			return v.File == path
		default:
			return true
		}
	})
	sort.SliceStable(vars, func(i, j int) bool {
		return vars[i].Scope < vars[j].Scope
	})
	return vars
}
