package lsp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
)

func frame(body string) string {
	return fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(body), body)
}

func TestReadRequest(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"canonical header", frame(`{"jsonrpc":"2.0","id":1,"method":"test","params":{}}`)},
		{
			"lower-case header with content type",
			"content-length: 52\r\nContent-Type: application/vscode-jsonrpc; charset=utf-8\r\n\r\n" +
				`{"jsonrpc":"2.0","id":1,"method":"test","params":{}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := NewConn(&mockConn{
				Reader: strings.NewReader(tt.input),
				Writer: io.Discard,
			}, nil)

			req, err := conn.readRequest()
			if err != nil {
				t.Fatalf("readRequest failed: %v", err)
			}
			if req.Method != "test" {
				t.Errorf("Method = %q, want %q", req.Method, "test")
			}
			if req.IsNotification() {
				t.Error("request with id should not be a notification")
			}
		})
	}
}

func TestReadRequest_MissingLength(t *testing.T) {
	conn := NewConn(&mockConn{
		Reader: strings.NewReader("X-Other: 1\r\n\r\n{}"),
		Writer: io.Discard,
	}, nil)
	if _, err := conn.readRequest(); err == nil {
		t.Fatal("readRequest should fail without Content-Length")
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	conn := NewConn(&mockConn{
		Reader: bytes.NewReader(nil),
		Writer: &buf,
	}, nil)

	id := json.RawMessage(`1`)
	if err := conn.write(&Response{JSONRPC: "2.0", ID: &id, Result: map[string]string{"status": "ok"}}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	output := buf.String()
	body := `{"jsonrpc":"2.0","id":1,"result":{"status":"ok"}}`
	if output != frame(body) {
		t.Errorf("output = %q, want %q", output, frame(body))
	}
}

func TestResponse_MarshalJSON(t *testing.T) {
	id := json.RawMessage(`7`)
	tests := []struct {
		name string
		resp Response
		want string
	}{
		{"nil result is null", Response{JSONRPC: "2.0", ID: &id}, `{"jsonrpc":"2.0","id":7,"result":null}`},
		{
			"error omits result",
			Response{JSONRPC: "2.0", ID: &id, Error: &ResponseError{Code: CodeInternalError, Message: "boom"}},
			`{"jsonrpc":"2.0","id":7,"error":{"code":-32603,"message":"boom"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.resp)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal = %s, want %s", data, tt.want)
			}
		})
	}
}

func TestResponseError(t *testing.T) {
	err := &ResponseError{
		Code:    CodeMethodNotFound,
		Message: "method not found",
	}

	if err.Error() != "jsonrpc error -32601: method not found" {
		t.Errorf("Error() = %q, want %q", err.Error(), "jsonrpc error -32601: method not found")
	}
}

func TestToResponseError(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		err  error
		want int
	}{
		{"rpc error kept", context.Background(), fmt.Errorf("wrapped: %w", ErrMethodNotFound), CodeMethodNotFound},
		{"canceled", canceled, errors.New("stopped"), CodeRequestCancelled},
		{"other", context.Background(), errors.New("boom"), CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toResponseError(tt.ctx, tt.err).Code; got != tt.want {
				t.Errorf("Code = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHandlerFunc(t *testing.T) {
	called := false
	h := HandlerFunc(func(ctx context.Context, req *Request) (any, error) {
		called = true
		return "ok", nil
	})

	result, err := h.Handle(context.Background(), &Request{Method: "test"})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !called {
		t.Error("handler was not called")
	}
	if result != "ok" {
		t.Errorf("result = %v, want %q", result, "ok")
	}
}

func TestConnRun(t *testing.T) {
	input := frame(`{"jsonrpc":"2.0","method":"note","params":{"n":1}}`) +
		frame(`{"jsonrpc":"2.0","id":2,"method":"ping"}`) +
		frame(`{"jsonrpc":"2.0","id":3,"method":"missing"}`)

	var out syncBuffer
	var mu sync.Mutex
	var notes []string
	h := HandlerFunc(func(ctx context.Context, req *Request) (any, error) {
		switch req.Method {
		case "note":
			mu.Lock()
			notes = append(notes, string(req.Params))
			mu.Unlock()
			return nil, nil
		case "ping":
			return "pong", nil
		}
		return nil, ErrMethodNotFound
	})

	conn := NewConn(&mockConn{Reader: strings.NewReader(input), Writer: &out}, h)
	if err := conn.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(notes) != 1 || notes[0] != `{"n":1}` {
		t.Errorf("notifications = %v", notes)
	}
	got := out.String()
	for _, want := range []string{
		`{"jsonrpc":"2.0","id":2,"result":"pong"}`,
		`{"jsonrpc":"2.0","id":3,"error":{"code":-32601,"message":"method not found"}}`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q does not contain %s", got, want)
		}
	}
	if strings.Count(got, "Content-Length") != 2 {
		t.Errorf("want 2 responses, got output %q", got)
	}
}

func TestNotify(t *testing.T) {
	var buf bytes.Buffer
	conn := NewConn(&mockConn{Reader: bytes.NewReader(nil), Writer: &buf}, nil)
	if err := conn.Notify(context.Background(), "window/logMessage", map[string]any{"type": 3}); err != nil {
		t.Fatal(err)
	}
	want := frame(`{"jsonrpc":"2.0","method":"window/logMessage","params":{"type":3}}`)
	if buf.String() != want {
		t.Errorf("Notify wrote %q, want %q", buf.String(), want)
	}
}

type mockConn struct {
	io.Reader
	io.Writer
}

func (m *mockConn) Close() error {
	return nil
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
