package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.lsp.dev/protocol"

	"github.com/albertocavalcante/cix/internal/cicode/builtins"
	"github.com/albertocavalcante/cix/internal/cicode/checker"
	"github.com/albertocavalcante/cix/internal/cicode/debounce"
	"github.com/albertocavalcante/cix/internal/cicode/indexer"
	"github.com/albertocavalcante/cix/internal/cicode/textdoc"
	"github.com/albertocavalcante/cix/internal/version"
)

// Options configures the index behind a Server.
type Options struct {
	Exclude    []string
	Extensions []string
	Debounce   time.Duration
	// Builtins seeds the function table; nil leaves it unseeded.
	Builtins builtins.Provider
	// CheckDisable lists diagnostic codes that are not published.
	CheckDisable []string
	Registerer   prometheus.Registerer
	// Clock drives re-index debouncing; nil means the real clock.
	Clock debounce.Clock
	// Files reads files without an open buffer; nil means the disk.
	Files textdoc.Reader
}

// Server handles LSP requests for Cicode files.
type Server struct {
	conn Notifier

	// State
	mu          sync.RWMutex
	initialized bool
	shutdown    bool
	rootPath    string
	open        map[string]int32

	opts    Options
	overlay *textdoc.Overlay
	index   *indexer.Indexer
	checker *checker.Checker
	unsub   func()

	// builds tracks the background initial build; stopBuild cancels it.
	builds    sync.WaitGroup
	stopBuild context.CancelFunc

	// Callbacks
	onExit func()
}

// Notifier sends notifications to the client. *Conn satisfies it.
type Notifier interface {
	Notify(ctx context.Context, method string, params any) error
}

// NewServer creates a server. The index is created on initialize.
func NewServer(onExit func(), opts Options) *Server {
	overlay := textdoc.NewOverlay()
	if opts.Files != nil {
		overlay = textdoc.NewOverlayOn(opts.Files)
	}
	return &Server{
		open:    make(map[string]int32),
		opts:    opts,
		overlay: overlay,
		onExit:  onExit,
	}
}

// SetConn sets the connection for sending notifications.
func (s *Server) SetConn(conn Notifier) {
	s.conn = conn
}

// Index returns the workspace index, or nil before initialize.
func (s *Server) Index() *indexer.Indexer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// Handle implements Handler interface - routes requests to methods.
func (s *Server) Handle(ctx context.Context, req *Request) (any, error) {
	s.mu.RLock()
	shutdown := s.shutdown
	initialized := s.index != nil
	s.mu.RUnlock()

	// Check shutdown state - only allow exit after shutdown
	if shutdown && req.Method != "exit" {
		return nil, &ResponseError{
			Code:    CodeInvalidRequest,
			Message: "server is shutting down",
		}
	}

	// Check initialization - only lifecycle methods allowed before initialize
	if !initialized {
		switch req.Method {
		case "initialize", "shutdown", "exit":
		default:
			return nil, &ResponseError{
				Code:    CodeInvalidRequest,
				Message: "server not initialized",
			}
		}
	}

	switch req.Method {
	// Lifecycle
	case "initialize":
		return s.handleInitialize(ctx, req.Params)
	case "initialized":
		return s.handleInitialized(ctx)
	case "shutdown":
		return s.handleShutdown()
	case "exit":
		return s.handleExit()

	// Text document sync
	case "textDocument/didOpen":
		return s.handleDidOpen(ctx, req.Params)
	case "textDocument/didChange":
		return s.handleDidChange(req.Params)
	case "textDocument/didClose":
		return s.handleDidClose(ctx, req.Params)
	case "textDocument/didSave":
		return s.handleDidSave(ctx, req.Params)

	// Workspace
	case "workspace/didRenameFiles":
		return s.handleDidRenameFiles(ctx, req.Params)
	case "workspace/didChangeWatchedFiles":
		return s.handleDidChangeWatchedFiles(req.Params)
	case "workspace/symbol":
		return s.handleWorkspaceSymbol(req.Params)

	// Language features
	case "textDocument/hover":
		return s.handleHover(ctx, req.Params)
	case "textDocument/definition":
		return s.handleDefinition(ctx, req.Params)
	case "textDocument/completion":
		return s.handleCompletion(ctx, req.Params)
	case "textDocument/references":
		return s.handleReferences(ctx, req.Params)
	case "textDocument/prepareRename":
		return s.handlePrepareRename(ctx, req.Params)
	case "textDocument/rename":
		return s.handleRename(ctx, req.Params)
	case "textDocument/documentSymbol":
		return s.handleDocumentSymbol(ctx, req.Params)
	case "textDocument/signatureHelp":
		return s.handleSignatureHelp(ctx, req.Params)
	case "textDocument/foldingRange":
		return s.handleFoldingRange(ctx, req.Params)

	default:
		if req.IsNotification() {
			return nil, nil
		}
		log.Printf("lsp: unhandled method: %s", req.Method)
		return nil, ErrMethodNotFound
	}
}

// --- Lifecycle methods ---

func (s *Server) handleInitialize(_ context.Context, params json.RawMessage) (any, error) {
	var p protocol.InitializeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("parsing initialize params: %w", err)
	}

	var root string
	if p.RootPath != "" {
		root = filepath.Clean(p.RootPath)
	}
	if len(p.WorkspaceFolders) > 0 {
		root = uriToPath(protocol.DocumentURI(p.WorkspaceFolders[0].URI))
	} else if p.RootURI != "" {
		root = uriToPath(p.RootURI)
	}

	ix := indexer.New(indexer.Options{
		Root:       root,
		Exclude:    s.opts.Exclude,
		Extensions: s.opts.Extensions,
		Debounce:   s.opts.Debounce,
		Clock:      s.opts.Clock,
		Source:     s.overlay,
		Builtins:   s.opts.Builtins,
		Registerer: s.opts.Registerer,
	})

	s.mu.Lock()
	if s.index != nil {
		s.mu.Unlock()
		_ = ix.Close()
		return nil, &ResponseError{Code: CodeInvalidRequest, Message: "server already initialized"}
	}
	s.rootPath = root
	s.index = ix
	s.checker = checker.New(ix, checker.Options{Disable: s.opts.CheckDisable})
	s.unsub = ix.Subscribe(func(ev indexer.Event) { s.onIndexEvent(context.Background(), ev) })
	s.mu.Unlock()

	log.Printf("lsp: initialize: root=%s", root)

	fileGlob := protocol.FileOperationFilter{
		Scheme:  "file",
		Pattern: protocol.FileOperationPattern{Glob: "**/*.ci"},
	}
	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save: &protocol.SaveOptions{
					IncludeText: true,
				},
			},
			HoverProvider:           true,
			DefinitionProvider:      true,
			ReferencesProvider:      true,
			DocumentSymbolProvider:  true,
			WorkspaceSymbolProvider: true,
			FoldingRangeProvider:    true,
			RenameProvider: &protocol.RenameOptions{
				PrepareProvider: true,
			},
			CompletionProvider: &protocol.CompletionOptions{},
			SignatureHelpProvider: &protocol.SignatureHelpOptions{
				TriggerCharacters:   []string{"(", ","},
				RetriggerCharacters: []string{","},
			},
			Workspace: &protocol.ServerCapabilitiesWorkspace{
				FileOperations: &protocol.ServerCapabilitiesWorkspaceFileOperations{
					DidRename: &protocol.FileOperationRegistrationOptions{
						Filters: []protocol.FileOperationFilter{fileGlob},
					},
				},
			},
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    "cixls",
			Version: version.Version,
		},
	}, nil
}

// handleInitialized starts the first full build in the background so the
// connection keeps serving requests meanwhile. Diagnostics are published
// from the build's notifications; Ready reports when it has finished.
func (s *Server) handleInitialized(context.Context) (any, error) {
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.initialized || s.shutdown {
		s.mu.Unlock()
		cancel()
		return nil, nil
	}
	s.initialized = true
	s.stopBuild = cancel
	ix := s.index
	s.builds.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.builds.Done()
		defer cancel()
		start := time.Now()
		if err := ix.BuildAll(ctx); err != nil {
			log.Printf("lsp: initial build: %v", err)
			return
		}
		log.Printf("lsp: initialized: %d files indexed in %v", len(ix.Files()), time.Since(start).Round(time.Millisecond))
	}()
	return nil, nil
}

// waitBuild blocks until the initial build has returned.
func (s *Server) waitBuild() {
	s.builds.Wait()
}

func (s *Server) handleShutdown() (any, error) {
	s.mu.Lock()
	s.shutdown = true
	ix, unsub, stop := s.index, s.unsub, s.stopBuild
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	s.waitBuild()
	if unsub != nil {
		unsub()
	}
	if ix != nil {
		_ = ix.Close()
	}
	log.Printf("lsp: shutdown")
	return nil, nil
}

func (s *Server) handleExit() (any, error) {
	log.Printf("lsp: exit")
	if s.onExit != nil {
		s.onExit()
	}
	return nil, nil
}

// --- Text document sync ---

func (s *Server) handleDidOpen(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.DidOpenTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	path := uriToPath(p.TextDocument.URI)

	s.mu.Lock()
	s.open[path] = p.TextDocument.Version
	s.mu.Unlock()
	s.overlay.Open(path, p.TextDocument.Text)

	if err := s.Index().IndexFile(ctx, path); err != nil {
		log.Printf("lsp: didOpen %s: %v", path, err)
	}
	return nil, nil
}

func (s *Server) handleDidChange(params json.RawMessage) (any, error) {
	var p protocol.DidChangeTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	if len(p.ContentChanges) == 0 {
		return nil, nil
	}
	path := uriToPath(p.TextDocument.URI)

	s.mu.Lock()
	s.open[path] = p.TextDocument.Version
	s.mu.Unlock()

	// Full sync - take the last change
	s.overlay.Update(path, p.ContentChanges[len(p.ContentChanges)-1].Text)
	s.Index().RequestUpdate(path)
	return nil, nil
}

func (s *Server) handleDidClose(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.DidCloseTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	path := uriToPath(p.TextDocument.URI)

	s.mu.Lock()
	delete(s.open, path)
	s.mu.Unlock()
	s.overlay.Close(path)

	// The file reverts to its disk contents, or leaves the index when it
	// only ever existed in the editor.
	ix := s.Index()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		ix.RemoveFile(path)
		s.publish(ctx, path, []protocol.Diagnostic{})
		return nil, nil
	}
	ix.RequestUpdate(path)
	return nil, nil
}

func (s *Server) handleDidSave(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.DidSaveTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	path := uriToPath(p.TextDocument.URI)
	if p.Text != "" {
		s.overlay.Update(path, p.Text)
	}
	if err := s.Index().IndexFile(ctx, path); err != nil {
		log.Printf("lsp: didSave %s: %v", path, err)
	}
	return nil, nil
}

// --- Workspace notifications ---

func (s *Server) handleDidRenameFiles(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.RenameFilesParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	ix := s.Index()
	for _, f := range p.Files {
		oldPath := uriToPath(protocol.DocumentURI(f.OldURI))
		newPath := uriToPath(protocol.DocumentURI(f.NewURI))

		s.mu.Lock()
		if v, ok := s.open[oldPath]; ok {
			delete(s.open, oldPath)
			s.open[newPath] = v
		}
		s.mu.Unlock()

		err := ix.MoveFile(oldPath, newPath)
		if errors.Is(err, indexer.ErrNotIndexed) {
			err = ix.IndexFile(ctx, newPath)
		}
		if err != nil {
			log.Printf("lsp: rename %s -> %s: %v", oldPath, newPath, err)
			continue
		}
		s.publish(ctx, oldPath, []protocol.Diagnostic{})
	}
	return nil, nil
}

func (s *Server) handleDidChangeWatchedFiles(params json.RawMessage) (any, error) {
	var p protocol.DidChangeWatchedFilesParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	ix := s.Index()
	for _, change := range p.Changes {
		path := uriToPath(change.URI)
		if s.overlay.IsOpen(path) {
			continue
		}
		switch change.Type {
		case protocol.FileChangeTypeDeleted:
			ix.RemoveFile(path)
		default:
			ix.RequestUpdate(path)
		}
	}
	return nil, nil
}

// --- Diagnostics ---

// onIndexEvent publishes diagnostics for the changed file and every open
// document, whose call checks may depend on it. A full build publishes
// for every indexed file.
func (s *Server) onIndexEvent(ctx context.Context, ev indexer.Event) {
	s.mu.RLock()
	ix, chk := s.index, s.checker
	targets := make(map[string]bool, len(s.open)+1)
	for path := range s.open {
		targets[path] = true
	}
	s.mu.RUnlock()

	if ev.Full {
		for _, f := range ix.Files() {
			targets[f] = true
		}
	} else {
		targets[ev.File] = true
	}

	for path := range targets {
		if _, ok := ix.Document(path); !ok {
			s.publish(ctx, path, []protocol.Diagnostic{})
			continue
		}
		diags := chk.CheckFile(path)
		out := make([]protocol.Diagnostic, 0, len(diags))
		for _, d := range diags {
			out = append(out, toProtocolDiagnostic(d))
		}
		s.publish(ctx, path, out)
	}
}

func (s *Server) publish(ctx context.Context, path string, diags []protocol.Diagnostic) {
	if s.conn == nil {
		return
	}
	params := protocol.PublishDiagnosticsParams{
		URI:         textdoc.URIFromPath(path),
		Diagnostics: diags,
	}
	s.mu.RLock()
	if v, ok := s.open[path]; ok && v > 0 {
		params.Version = uint32(v)
	}
	s.mu.RUnlock()
	if err := s.conn.Notify(ctx, "textDocument/publishDiagnostics", params); err != nil {
		log.Printf("lsp: publishing diagnostics for %s: %v", path, err)
	}
}

func toProtocolDiagnostic(d checker.Diagnostic) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range:    d.Range,
		Severity: d.Severity.Protocol(),
		Code:     d.Code,
		Source:   "cix",
		Message:  d.Message,
	}
}

// uriToPath converts a document URI to the cleaned path used as the index
// key.
func uriToPath(uri protocol.DocumentURI) string {
	return filepath.Clean(textdoc.PathFromURI(uri))
}
