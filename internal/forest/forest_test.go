package forest

import (
	"fmt"
	"testing"
	"time"
)

func TestOpenAndReparseSkipsUnchanged(t *testing.T) {
	f := New()
	doc := f.Open("file:///a.beancount", 1, "2024-01-01 open Assets:Checking USD\n")
	if doc.Tree == nil {
		t.Fatalf("expected parsed tree")
	}
	if changed := doc.Reparse(); changed {
		t.Fatalf("expected no change on identical reparse")
	}
	doc.Text.Insert(doc.Text.Len(), "2024-01-02 open Assets:Savings USD\n")
	if changed := doc.Reparse(); !changed {
		t.Fatalf("expected change after edit")
	}
}

func TestCloseKeepsDocumentTracked(t *testing.T) {
	f := New()
	f.Open("file:///a.beancount", 1, "")
	f.Close("file:///a.beancount")
	doc := f.Get("file:///a.beancount")
	if doc == nil {
		t.Fatalf("expected document to remain tracked after close")
	}
	if doc.Open {
		t.Fatalf("expected document marked not-open")
	}
}

func TestEnsureLoadsUntrackedDocumentOnce(t *testing.T) {
	f := New()
	loads := 0
	loader := func() (string, error) {
		loads++
		return "2024-01-01 open Assets:Checking USD\n", nil
	}
	doc1, err := f.Ensure("file:///b.beancount", loader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc2, err := f.Ensure("file:///b.beancount", loader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc1 != doc2 {
		t.Fatalf("expected same document instance on repeat Ensure")
	}
	if loads != 1 {
		t.Fatalf("expected loader called once, got %d", loads)
	}
}

func TestRemoveDropsDocument(t *testing.T) {
	f := New()
	f.Open("file:///c.beancount", 1, "")
	f.Remove("file:///c.beancount")
	if f.Get("file:///c.beancount") != nil {
		t.Fatalf("expected document removed")
	}
}

func TestResolveIncludesRecordsGlobPattern(t *testing.T) {
	f := New()
	doc := f.Open("file:///main.beancount", 1, `include "accounts/*.beancount"`+"\n")
	includes := ResolveIncludes(doc, "/workspace")
	if len(includes) != 1 {
		t.Fatalf("expected 1 include directive, got %d", len(includes))
	}
	if includes[0].Pattern != "accounts/*.beancount" {
		t.Fatalf("expected pattern accounts/*.beancount, got %q", includes[0].Pattern)
	}
}

func TestRebuilderDebouncesBursts(t *testing.T) {
	fired := make(chan []string, 1)
	r := NewRebuilder(20*time.Millisecond, func(uris []string) {
		fired <- uris
	})
	for i := 0; i < 5; i++ {
		r.Schedule(fmt.Sprintf("file:///n%d.beancount", i))
	}
	select {
	case uris := <-fired:
		if len(uris) != 5 {
			t.Fatalf("expected 5 coalesced URIs, got %d", len(uris))
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("rebuilder never fired")
	}
}
