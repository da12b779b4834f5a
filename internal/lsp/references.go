package lsp

import (
	"context"
	"encoding/json"
	"log"

	"go.lsp.dev/protocol"

	"github.com/albertocavalcante/cix/internal/cicode/refs"
)

// handleReferences returns all references to the symbol at the given position.
func (s *Server) handleReferences(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.ReferenceParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	sym, _, _, err := s.symbolAt(ctx, p.TextDocument.URI, p.Position)
	if err != nil {
		return nil, nil
	}

	var decl protocol.Location
	switch {
	case sym.Function != nil && sym.Function.Location != nil:
		decl = *sym.Function.Location
	case sym.Variable != nil:
		decl = s.declaration(*sym.Variable)
	}

	occs := refs.References(s.Index(), sym)
	locs := make([]protocol.Location, 0, len(occs))
	for _, o := range occs {
		loc := o.Location()
		if !p.Context.IncludeDeclaration && loc.URI == decl.URI && loc.Range.Start == decl.Range.Start {
			continue
		}
		locs = append(locs, loc)
	}

	log.Printf("references: found %d references to %q", len(locs), sym.Name)

	return locs, nil
}
