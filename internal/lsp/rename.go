package lsp

import (
	"context"
	"encoding/json"
	"log"

	"go.lsp.dev/protocol"

	"github.com/albertocavalcante/cix/internal/cicode/lang"
	"github.com/albertocavalcante/cix/internal/cicode/refs"
	"github.com/albertocavalcante/cix/internal/cicode/textdoc"
)

// handlePrepareRename validates that a symbol at the given position can be renamed.
// Returns a Range if the symbol can be renamed, or nil if not.
func (s *Server) handlePrepareRename(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.PrepareRenameParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	sym, doc, offset, err := s.symbolAt(ctx, p.TextDocument.URI, p.Position)
	if err != nil {
		return nil, nil
	}

	// Can't rename builtins
	if sym.Function != nil && sym.Function.IsBuiltin() {
		log.Printf("prepareRename: %q is a builtin, cannot rename", sym.Name)
		return nil, nil
	}

	_, start, end := lang.WordAt(doc.Text, offset)
	rng := doc.RangeOf(start, end)
	return &rng, nil
}

// handleRename renames the symbol at the cursor in every file it occurs in.
func (s *Server) handleRename(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.RenameParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	sym, _, _, err := s.symbolAt(ctx, p.TextDocument.URI, p.Position)
	if err != nil {
		return nil, nil
	}

	edits, err := refs.Rename(s.Index(), sym, p.NewName)
	if err != nil {
		return nil, &ResponseError{Code: CodeInvalidParams, Message: err.Error()}
	}

	changes := make(map[protocol.DocumentURI][]protocol.TextEdit, len(edits))
	n := 0
	for file, fileEdits := range edits {
		changes[textdoc.URIFromPath(file)] = refs.TextEdits(fileEdits)
		n += len(fileEdits)
	}

	log.Printf("rename: %q -> %q, %d edits in %d files", sym.Name, p.NewName, n, len(changes))

	return &protocol.WorkspaceEdit{Changes: changes}, nil
}
