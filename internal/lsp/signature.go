package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"go.lsp.dev/protocol"

	"github.com/albertocavalcante/cix/internal/cicode/checker"
	"github.com/albertocavalcante/cix/internal/cicode/indexer"
	"github.com/albertocavalcante/cix/internal/cicode/span"
)

// handleSignatureHelp returns signature information for the function call at the cursor position.
func (s *Server) handleSignatureHelp(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.SignatureHelpParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("parsing signature help params: %w", err)
	}

	ix := s.Index()
	path := uriToPath(p.TextDocument.URI)
	s.refresh(ctx, ix, path)

	doc, ok := ix.Document(path)
	if !ok {
		return nil, nil
	}
	offset := doc.OffsetAt(p.Position)
	spans := span.Compute(doc.Text, span.Options{Headers: true})
	call, arg, ok := checker.CallAt(doc.Text, spans, offset)
	if !ok {
		return nil, nil
	}
	fn, ok := ix.Function(call.Name)
	if !ok {
		return nil, nil
	}

	log.Printf("signatureHelp: %s arg %d", fn.Name, arg)

	info := protocol.SignatureInformation{
		Label:      fn.Signature(),
		Parameters: make([]protocol.ParameterInformation, 0, len(fn.Params)),
	}
	if fn.Doc.Summary != "" {
		info.Documentation = fn.Doc.Summary
	}
	for _, raw := range fn.Params {
		pi := protocol.ParameterInformation{Label: raw}
		if desc := fn.Doc.Param(indexer.ParamName(raw)); desc != "" {
			pi.Documentation = desc
		}
		info.Parameters = append(info.Parameters, pi)
	}

	active := uint32(arg)
	if n := len(fn.Params); n > 0 && arg >= n {
		active = uint32(n - 1)
	}
	return &protocol.SignatureHelp{
		Signatures:      []protocol.SignatureInformation{info},
		ActiveSignature: 0,
		ActiveParameter: active,
	}, nil
}
