package lsp

import (
	"context"
	"encoding/json"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/albertocavalcante/cix/internal/cicode/textdoc"
)

// handleFoldingRange returns a region for each function, from the first
// header line to its END, and a comment range for each block comment
// spanning several lines.
func (s *Server) handleFoldingRange(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.FoldingRangeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	ix := s.Index()
	path := uriToPath(p.TextDocument.URI)
	s.refresh(ctx, ix, path)

	doc, ok := ix.Document(path)
	if !ok {
		return []protocol.FoldingRange{}, nil
	}

	ranges := []protocol.FoldingRange{}
	for _, sp := range ix.IgnoreSpans(path) {
		if strings.HasPrefix(doc.Text[sp.Start:], "/*") {
			ranges = appendFold(ranges, doc, sp.Start, sp.End, protocol.CommentFoldingRange)
		}
	}
	for _, r := range ix.FunctionRanges(path) {
		ranges = appendFold(ranges, doc, r.HeaderStart, r.BodyEnd, protocol.RegionFoldingRange)
	}
	return ranges, nil
}

// appendFold adds [start, end) as a range when it covers more than one
// line.
func appendFold(ranges []protocol.FoldingRange, doc *textdoc.Document, start, end int, kind protocol.FoldingRangeKind) []protocol.FoldingRange {
	if end <= start {
		return ranges
	}
	first, last := doc.LineOf(start), doc.LineOf(end-1)
	if last <= first {
		return ranges
	}
	return append(ranges, protocol.FoldingRange{
		StartLine: uint32(first),
		EndLine:   uint32(last),
		Kind:      kind,
	})
}
