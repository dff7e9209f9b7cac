package rpc

import (
	"bytes"
	"testing"
)

func TestWriteThenReadRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Notify("textDocument/didOpen", map[string]string{"uri": "file:///a.beancount"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := NewReader(&buf)
	msg, err := r.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Method != "textDocument/didOpen" {
		t.Fatalf("expected method textDocument/didOpen, got %q", msg.Method)
	}
}

func TestReadMissingContentLengthErrors(t *testing.T) {
	buf := bytes.NewBufferString("\r\n{}")
	r := NewReader(buf)
	if _, err := r.Read(); err == nil {
		t.Fatalf("expected error for missing Content-Length")
	}
}

func TestRespondErrorShapesMessage(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.RespondError([]byte("1"), ErrMethodNotFound, "not found"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := NewReader(&buf)
	msg, err := r.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Error == nil || msg.Error.Code != ErrMethodNotFound {
		t.Fatalf("expected method-not-found error, got %+v", msg.Error)
	}
}
