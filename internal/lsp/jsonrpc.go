// Package lsp implements a Language Server Protocol server for Cicode on
// top of the workspace indexer.
package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
)

// JSON-RPC 2.0 message types

// Request is a JSON-RPC request or notification.
type Request struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"` // nil for notifications
	Method  string           `json:"method"`
	Params  json.RawMessage  `json:"params,omitempty"`
}

// IsNotification reports whether the request expects no response.
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// Response is a JSON-RPC response.
type Response struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id"`
	Result  any              `json:"result"`
	Error   *ResponseError   `json:"error,omitempty"`
}

// MarshalJSON emits exactly one of result and error; a nil result is
// encoded as null.
func (r Response) MarshalJSON() ([]byte, error) {
	type wire struct {
		JSONRPC string           `json:"jsonrpc"`
		ID      *json.RawMessage `json:"id"`
		Result  *json.RawMessage `json:"result,omitempty"`
		Error   *ResponseError   `json:"error,omitempty"`
	}
	w := wire{JSONRPC: r.JSONRPC, ID: r.ID, Error: r.Error}
	if r.Error == nil {
		data, err := json.Marshal(r.Result)
		if err != nil {
			return nil, err
		}
		raw := json.RawMessage(data)
		w.Result = &raw
	}
	return json.Marshal(w)
}

// ResponseError is a JSON-RPC error.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// LSP-specific error codes
	CodeRequestCancelled = -32800
	CodeContentModified  = -32801
)

// Conn handles JSON-RPC communication over an io.ReadWriteCloser.
type Conn struct {
	rwc     io.ReadWriteCloser
	reader  *bufio.Reader
	writeMu sync.Mutex

	handler Handler

	// inflight maps request IDs to the cancel functions of their contexts.
	inflightMu sync.Mutex
	inflight   map[string]context.CancelFunc
	wg         sync.WaitGroup
}

// Handler processes incoming requests.
type Handler interface {
	Handle(ctx context.Context, req *Request) (result any, err error)
}

// HandlerFunc is an adapter to use functions as Handler.
type HandlerFunc func(ctx context.Context, req *Request) (any, error)

func (f HandlerFunc) Handle(ctx context.Context, req *Request) (any, error) {
	return f(ctx, req)
}

// NewConn creates a new JSON-RPC connection.
func NewConn(rwc io.ReadWriteCloser, handler Handler) *Conn {
	return &Conn{
		rwc:      rwc,
		reader:   bufio.NewReader(rwc),
		handler:  handler,
		inflight: make(map[string]context.CancelFunc),
	}
}

// Run reads and handles messages until EOF, error or ctx is done. Requests
// are handled concurrently; notifications are handled in arrival order so
// document changes are never reordered.
func (c *Conn) Run(ctx context.Context) error {
	defer c.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		req, err := c.readRequest()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading request: %w", err)
		}

		if req.Method == "$/cancelRequest" {
			c.cancel(req.Params)
			continue
		}
		if req.IsNotification() {
			c.handleRequest(ctx, req)
			continue
		}

		reqCtx, cancel := context.WithCancel(ctx)
		key := string(*req.ID)
		c.inflightMu.Lock()
		c.inflight[key] = cancel
		c.inflightMu.Unlock()

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			defer func() {
				c.inflightMu.Lock()
				delete(c.inflight, key)
				c.inflightMu.Unlock()
				cancel()
			}()
			c.handleRequest(reqCtx, req)
		}()
	}
}

func (c *Conn) cancel(params json.RawMessage) {
	var p struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return
	}
	c.inflightMu.Lock()
	cancel, ok := c.inflight[string(p.ID)]
	c.inflightMu.Unlock()
	if ok {
		cancel()
	}
}

func (c *Conn) readRequest() (*Request, error) {
	// Read headers
	contentLength := -1
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break // End of headers
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid Content-Length: %w", err)
		}
		contentLength = n
	}

	if contentLength <= 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(c.reader, body); err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("parsing request: %w", err)
	}
	return &req, nil
}

func (c *Conn) handleRequest(ctx context.Context, req *Request) {
	result, err := c.handler.Handle(ctx, req)

	// Notifications don't get responses
	if req.IsNotification() {
		if err != nil {
			log.Printf("lsp: %s: %v", req.Method, err)
		}
		return
	}

	resp := Response{JSONRPC: "2.0", ID: req.ID}
	if err != nil {
		resp.Error = toResponseError(ctx, err)
	} else {
		resp.Result = result
	}

	if err := c.write(&resp); err != nil {
		log.Printf("lsp: writing response to %s: %v", req.Method, err)
	}
}

func toResponseError(ctx context.Context, err error) *ResponseError {
	var rpcErr *ResponseError
	switch {
	case errors.As(err, &rpcErr):
		return rpcErr
	case ctx.Err() != nil:
		return &ResponseError{Code: CodeRequestCancelled, Message: err.Error()}
	default:
		return &ResponseError{Code: CodeInternalError, Message: err.Error()}
	}
}

// write frames msg with a Content-Length header.
func (c *Conn) write(msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(body))
	if _, err := io.WriteString(c.rwc, header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := c.rwc.Write(body); err != nil {
		return fmt.Errorf("writing body: %w", err)
	}
	return nil
}

// Notify sends a notification to the client (no response expected).
func (c *Conn) Notify(_ context.Context, method string, params any) error {
	req := Request{JSONRPC: "2.0", Method: method}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshaling params: %w", err)
		}
		req.Params = data
	}
	return c.write(&req)
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.rwc.Close()
}

// ErrMethodNotFound is returned when a method is not implemented.
var ErrMethodNotFound = &ResponseError{
	Code:    CodeMethodNotFound,
	Message: "method not found",
}
