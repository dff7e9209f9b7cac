// Package forest implements the multi-document workspace: one Document
// per URI (open or merely included), include-directive resolution
// across the workspace, and a filesystem watcher that keeps
// included-but-unopened files current.
//
// It's organized around a file-to-parsed-state index, heuristic
// include resolution, and an fsnotify-plus-debounce rebuild path,
// generalized from "arbitrary source files in a project" to "beancount
// files reachable from a set of open entrypoints via include directives".
package forest

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/polarmutex/beancount-language-server/internal/rope"
	"github.com/polarmutex/beancount-language-server/internal/semantic"
	"github.com/polarmutex/beancount-language-server/internal/syntax"
)

// Document is one file in the forest: its live text, parse tree,
// derived semantic record, and whether it's currently open in the
// editor (vs. merely reachable via include).
type Document struct {
	URI      string
	Version  int
	Open     bool
	Text     *rope.Rope
	Tree     *syntax.Tree
	Semantic *semantic.Document
	hash     uint64
}

// Reparse re-lexes/parses/extracts the document's current text and
// updates its derived state. Returns true if the content actually
// changed (by content hash), so callers can skip downstream work
// (diagnostics, dependent re-extraction) when it didn't.
func (d *Document) Reparse() (changed bool) {
	text := d.Text.Bytes()
	h := xxhash.Sum64(text)
	if h == d.hash && d.Tree != nil {
		return false
	}
	d.hash = h
	d.Tree = syntax.Parse(text)
	d.Semantic = semantic.Extract(d.Tree)
	return true
}

// Forest owns every Document known to the server, keyed by URI.
type Forest struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// New creates an empty Forest.
func New() *Forest {
	return &Forest{docs: make(map[string]*Document)}
}

// Open creates or replaces a document marked as editor-open.
func (f *Forest) Open(uri string, version int, text string) *Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := &Document{URI: uri, Version: version, Open: true, Text: rope.New(text)}
	doc.Reparse()
	f.docs[uri] = doc
	return doc
}

// Close marks a document as no longer editor-open. The document stays in
// the forest whether or not any include still reaches it; Close never
// removes it.
func (f *Forest) Close(uri string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docs[uri]; ok {
		doc.Open = false
	}
}

// Ensure returns the document for uri, loading it from disk content if
// it isn't already tracked (the include-resolution path for files the
// editor never opened directly).
func (f *Forest) Ensure(uri string, loadText func() (string, error)) (*Document, error) {
	f.mu.RLock()
	doc, ok := f.docs[uri]
	f.mu.RUnlock()
	if ok {
		return doc, nil
	}
	text, err := loadText()
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docs[uri]; ok {
		return doc, nil
	}
	doc = &Document{URI: uri, Text: rope.New(text)}
	doc.Reparse()
	f.docs[uri] = doc
	return doc, nil
}

// Get returns the document for uri, or nil if untracked.
func (f *Forest) Get(uri string) *Document {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.docs[uri]
}

// Remove drops a document entirely (used when a watched file is
// deleted and is no longer reachable by any include chain).
func (f *Forest) Remove(uri string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, uri)
}

// URIs returns every tracked document URI.
func (f *Forest) URIs() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.docs))
	for u := range f.docs {
		out = append(out, u)
	}
	return out
}

// All returns every tracked Document, for operations that scan the
// whole forest (workspace-wide references/rename).
func (f *Forest) All() []*Document {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*Document, 0, len(f.docs))
	for _, d := range f.docs {
		out = append(out, d)
	}
	return out
}
