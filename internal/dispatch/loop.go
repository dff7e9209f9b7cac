package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/polarmutex/beancount-language-server/internal/completion"
	"github.com/polarmutex/beancount-language-server/internal/config"
	"github.com/polarmutex/beancount-language-server/internal/debug"
	"github.com/polarmutex/beancount-language-server/internal/diagnostics"
	"github.com/polarmutex/beancount-language-server/internal/forest"
	"github.com/polarmutex/beancount-language-server/internal/format"
	"github.com/polarmutex/beancount-language-server/internal/inlay"
	"github.com/polarmutex/beancount-language-server/internal/lsp"
	"github.com/polarmutex/beancount-language-server/internal/rpc"
	"github.com/polarmutex/beancount-language-server/internal/semantic"
	"github.com/polarmutex/beancount-language-server/internal/symbols"
)

var loopLog = debug.Component("dispatch")

// Loop is the server's single main loop: it consumes envelopes from
// the transport in arrival order, runs document mutations and cheap
// queries inline, and offloads validator runs to the bounded Pool.
type Loop struct {
	reader *rpc.Reader
	writer *rpc.Writer

	forest  *forest.Forest
	fuzzy   *semantic.FuzzyMatcher
	cfg     *config.Config
	pool    *Pool
	queue   *Queue
	watcher *forest.Watcher

	workspaceRoot string
	uriForPath    func(string) string
	rootFile      func() string
	lastURI       string

	diagnosticsPipeline *diagnostics.Pipeline
	rebuilder           *forest.Rebuilder

	shutdown bool
}

// resolveRootFile resolves the root file: the configured journal_file
// or the saved document. l.cfg.JournalFile
// (kept current across initializationOptions updates, unlike the
// constructor's rootFile closure which can go stale once initialize
// replaces l.cfg) wins when set; otherwise fall back to whatever the
// caller-supplied rootFile closure reports, then to the most recently
// opened/saved document.
func (l *Loop) resolveRootFile() string {
	if l.cfg != nil && l.cfg.JournalFile != "" {
		return l.cfg.JournalFile
	}
	if l.rootFile != nil {
		if r := l.rootFile(); r != "" {
			return r
		}
	}
	if l.lastURI != "" {
		return uriToPath(l.lastURI)
	}
	return ""
}

// NewLoop wires every core component into one dispatcher, dividing
// work between main-loop work (parse/derive, completion, references,
// formatting, inlay hints) and pool-offloaded work (the validator
// subprocess).
func NewLoop(r io.Reader, w io.Writer, cfg *config.Config, registry *diagnostics.Registry, workspaceRoot string, uriForPath func(string) string, rootFile func() string) *Loop {
	f := forest.New()
	l := &Loop{
		reader:        rpc.NewReader(r),
		writer:        rpc.NewWriter(w),
		forest:        f,
		fuzzy:         semantic.NewFuzzyMatcher(0.80),
		cfg:           cfg,
		pool:          NewPool(4),
		queue:         NewQueue(),
		workspaceRoot: workspaceRoot,
		uriForPath:    uriForPath,
		rootFile:      rootFile,
	}
	l.diagnosticsPipeline = diagnostics.NewPipeline(registry, time.Duration(cfg.BeanCheck.TimeoutSec)*time.Second, l.resolveRootFile, uriForPath)
	l.rebuilder = forest.NewRebuilder(200*time.Millisecond, l.onDiagnosticsDue)
	watcher, err := forest.NewWatcher(l.onFileChanged, l.onFileRemoved)
	if err != nil {
		loopLog.Warn("file watcher unavailable, includes won't auto-reload: %v", err)
	}
	l.watcher = watcher
	return l
}

// Run drives the loop until the transport closes or shutdown is
// requested. Returns the process exit code to report to the OS.
func (l *Loop) Run() int {
	for !l.shutdown {
		msg, err := l.reader.Read()
		if err == io.EOF {
			return 0
		}
		if err != nil {
			loopLog.Error("transport read failed: %v", err)
			return 1
		}
		l.dispatch(msg)
	}
	return 0
}

func (l *Loop) dispatch(msg *rpc.Message) {
	if msg.Method == "" {
		return // a response to a request we never issued; ignore
	}

	switch msg.Method {
	case "initialize":
		l.handleInitialize(msg)
	case "shutdown":
		l.writer.Respond(msg.ID, nil)
	case "exit":
		l.shutdown = true
	case "$/cancelRequest":
		l.handleCancel(msg)
	case "textDocument/didOpen":
		l.handleDidOpen(msg)
	case "textDocument/didChange":
		l.handleDidChange(msg)
	case "textDocument/didClose":
		l.handleDidClose(msg)
	case "textDocument/didSave":
		l.handleDidSave(msg)
	case "textDocument/completion":
		l.handleCompletion(msg)
	case "textDocument/formatting":
		l.handleFormatting(msg)
	case "textDocument/references":
		l.handleReferences(msg)
	case "textDocument/rename":
		l.handleRename(msg)
	case "textDocument/inlayHint":
		l.handleInlayHint(msg)
	default:
		if msg.ID != nil {
			l.writer.RespondError(msg.ID, rpc.ErrMethodNotFound, "method not found: "+msg.Method)
		}
	}
}

type initializeParams struct {
	InitializationOptions *config.InitializationOptions `json:"initializationOptions"`
}

func (l *Loop) handleInitialize(msg *rpc.Message) {
	var p initializeParams
	if err := json.Unmarshal(msg.Params, &p); err == nil && p.InitializationOptions != nil {
		if cfg, err := config.Load(l.workspaceRoot, p.InitializationOptions); err != nil {
			loopLog.Warn("failed to apply initializationOptions: %v", err)
		} else {
			l.cfg = cfg
			registry := diagnostics.NewRegistry(
				&diagnostics.SystemValidator{Cmd: cfg.BeanCheck.BeanCheckCmd},
				&diagnostics.PythonSystemValidator{PythonCmd: cfg.BeanCheck.PythonCmd},
			)
			l.diagnosticsPipeline = diagnostics.NewPipeline(registry, time.Duration(cfg.BeanCheck.TimeoutSec)*time.Second, l.resolveRootFile, l.uriForPath)
		}
	}

	result := map[string]interface{}{
		"capabilities": map[string]interface{}{
			"textDocumentSync": 1,
			"completionProvider": map[string]interface{}{
				"triggerCharacters": []string{":", "#", "^", "\"", "2"},
				"resolveProvider":   false,
			},
			"documentFormattingProvider": true,
			"referencesProvider":         true,
			"renameProvider":             true,
			"inlayHintProvider":          true,
		},
	}
	l.writer.Respond(msg.ID, result)
}

func (l *Loop) handleCancel(msg *rpc.Message) {
	var params struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return
	}
	l.queue.Cancel(RequestID(params.ID))
}

type didOpenParams struct {
	TextDocument struct {
		URI     string `json:"uri"`
		Version int    `json:"version"`
		Text    string `json:"text"`
	} `json:"textDocument"`
}

func (l *Loop) handleDidOpen(msg *rpc.Message) {
	var p didOpenParams
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		loopLog.Warn("malformed didOpen params: %v", err)
		return
	}
	doc := l.forest.Open(p.TextDocument.URI, p.TextDocument.Version, p.TextDocument.Text)
	l.lastURI = p.TextDocument.URI
	l.resolveAndWatchIncludes(doc)
	l.scheduleDiagnostics()
}

// uriToPath reverses the file:// URIs this server hands out; it's the
// inverse of the uriForPath closure supplied to NewLoop.
func uriToPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

// resolveAndWatchIncludes pulls every file doc's `include` directives
// reach (transitively) into the forest and starts watching them, so
// included-but-unopened files stay current even though the editor only
// ever sent didOpen for the entrypoint.
func (l *Loop) resolveAndWatchIncludes(doc *forest.Document) {
	if doc == nil {
		return
	}
	baseDirOf := func(uri string) string { return filepath.Dir(uriToPath(uri)) }
	loadText := func(uri string) (string, error) {
		b, err := os.ReadFile(uriToPath(uri))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	uris := l.forest.Worklist([]string{doc.URI}, baseDirOf, l.uriForPath, loadText)
	if l.watcher == nil {
		return
	}
	for _, u := range uris {
		l.watcher.Watch(uriToPath(u))
	}
}

// onFileChanged re-reads a watched-but-possibly-unopened file from disk
// and reschedules diagnostics. Editor-open documents are left alone —
// their content comes from didChange, not the filesystem.
func (l *Loop) onFileChanged(path string) {
	uri := l.uriForPath(path)
	doc := l.forest.Get(uri)
	if doc != nil && doc.Open {
		return
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return
	}
	if doc == nil {
		doc, err = l.forest.Ensure(uri, func() (string, error) { return string(text), nil })
		if err != nil {
			return
		}
	} else {
		doc.Text.ReplaceAll(string(text))
	}
	doc.Reparse()
	l.resolveAndWatchIncludes(doc)
	l.scheduleDiagnostics()
}

// onFileRemoved drops a deleted included file from the forest.
func (l *Loop) onFileRemoved(path string) {
	uri := l.uriForPath(path)
	if doc := l.forest.Get(uri); doc != nil && doc.Open {
		return
	}
	l.forest.Remove(uri)
	l.scheduleDiagnostics()
}

type didChangeParams struct {
	TextDocument struct {
		URI     string `json:"uri"`
		Version int    `json:"version"`
	} `json:"textDocument"`
	ContentChanges []struct {
		Range *lsp.Range `json:"range"`
		Text  string     `json:"text"`
	} `json:"contentChanges"`
}

func (l *Loop) handleDidChange(msg *rpc.Message) {
	var p didChangeParams
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		loopLog.Warn("malformed didChange params: %v", err)
		return
	}
	doc := l.forest.Get(p.TextDocument.URI)
	if doc == nil {
		return
	}
	for _, change := range p.ContentChanges {
		if change.Range == nil {
			doc.Text.ReplaceAll(change.Text)
			continue
		}
		start := doc.Text.PositionToOffset(change.Range.Start.Line, change.Range.Start.Character)
		end := doc.Text.PositionToOffset(change.Range.End.Line, change.Range.End.Character)
		doc.Text.Replace(start, end, change.Text)
	}
	doc.Version = p.TextDocument.Version
	doc.Reparse()
	l.scheduleDiagnostics()
}

type didCloseParams struct {
	TextDocument struct {
		URI string `json:"uri"`
	} `json:"textDocument"`
}

func (l *Loop) handleDidClose(msg *rpc.Message) {
	var p didCloseParams
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return
	}
	l.forest.Close(p.TextDocument.URI)
}

type didSaveParams struct {
	TextDocument struct {
		URI string `json:"uri"`
	} `json:"textDocument"`
}

func (l *Loop) handleDidSave(msg *rpc.Message) {
	var p didSaveParams
	if err := json.Unmarshal(msg.Params, &p); err == nil && p.TextDocument.URI != "" {
		l.lastURI = p.TextDocument.URI
	}
	l.scheduleDiagnostics()
}

func (l *Loop) scheduleDiagnostics() {
	l.rebuilder.Schedule("workspace")
}

// progressToken identifies the one work-done progress stream this
// server reports: the diagnostics validator run.
const progressToken = "beanls/diagnostics"

func (l *Loop) onDiagnosticsDue(_ []string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(l.cfg.BeanCheck.TimeoutSec)*time.Second)
		defer cancel()
		l.pool.Run(ctx, func() {
			label := "validator"
			if v := l.diagnosticsPipeline.Registry().Select(); v != nil {
				label = v.Name()
			}
			l.reportProgress(lsp.WorkDoneProgress{Kind: "begin", Title: "Running " + label, Cancellable: false})
			diags := l.diagnosticsPipeline.Run(ctx)
			l.reportProgress(lsp.WorkDoneProgress{Kind: "end"})
			for uri, d := range diags {
				l.writer.Notify("textDocument/publishDiagnostics", map[string]interface{}{"uri": uri, "diagnostics": d})
			}
		})
	}()
}

func (l *Loop) reportProgress(p lsp.WorkDoneProgress) {
	l.writer.Notify("$/progress", map[string]interface{}{"token": progressToken, "value": p})
}

type textDocumentPositionParams struct {
	TextDocument struct {
		URI string `json:"uri"`
	} `json:"textDocument"`
	Position lsp.Position `json:"position"`
}

func (l *Loop) handleCompletion(msg *rpc.Message) {
	var p textDocumentPositionParams
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		l.writer.RespondError(msg.ID, rpc.ErrInvalidParams, "malformed completion params")
		return
	}
	doc := l.forest.Get(p.TextDocument.URI)
	items := completion.Complete(completion.Request{Doc: doc, Position: p.Position, Forest: l.forest, Fuzzy: l.fuzzy})
	l.writer.Respond(msg.ID, items)
}

type documentURIParams struct {
	TextDocument struct {
		URI string `json:"uri"`
	} `json:"textDocument"`
}

func (l *Loop) handleFormatting(msg *rpc.Message) {
	var p documentURIParams
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		l.writer.RespondError(msg.ID, rpc.ErrInvalidParams, "malformed formatting params")
		return
	}
	doc := l.forest.Get(p.TextDocument.URI)
	if doc == nil || doc.Tree == nil {
		l.writer.Respond(msg.ID, []lsp.TextEdit{})
		return
	}
	opts := format.Options{
		PrefixWidth:           l.cfg.Formatting.PrefixWidth,
		NumWidth:              l.cfg.Formatting.NumWidth,
		CurrencyColumn:        l.cfg.Formatting.CurrencyColumn,
		AccountAmountSpacing:  l.cfg.Formatting.AccountAmountSpacing,
		NumberCurrencySpacing: l.cfg.Formatting.NumberCurrencySpacing,
	}
	edits := format.Format(doc.Tree, doc.Text.LineBytes, opts)
	l.writer.Respond(msg.ID, edits)
}

func (l *Loop) handleReferences(msg *rpc.Message) {
	var p textDocumentPositionParams
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		l.writer.RespondError(msg.ID, rpc.ErrInvalidParams, "malformed references params")
		return
	}
	doc := l.forest.Get(p.TextDocument.URI)
	if doc == nil {
		l.writer.Respond(msg.ID, []lsp.Location{})
		return
	}
	offset := doc.Text.PositionToOffset(p.Position.Line, p.Position.Character)
	kind, name, ok := symbols.AtCursor(doc, offset)
	if !ok {
		l.writer.Respond(msg.ID, []lsp.Location{})
		return
	}
	occ := symbols.References(l.forest, kind, name)
	locs := make([]lsp.Location, 0, len(occ))
	for _, o := range occ {
		locs = append(locs, lsp.Location{URI: o.URI, Range: o.Range})
	}
	l.writer.Respond(msg.ID, locs)
}

type renameParams struct {
	textDocumentPositionParams
	NewName string `json:"newName"`
}

func (l *Loop) handleRename(msg *rpc.Message) {
	var p renameParams
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		l.writer.RespondError(msg.ID, rpc.ErrInvalidParams, "malformed rename params")
		return
	}
	doc := l.forest.Get(p.TextDocument.URI)
	if doc == nil {
		l.writer.RespondError(msg.ID, rpc.ErrInvalidRequest, "unknown document")
		return
	}
	offset := doc.Text.PositionToOffset(p.Position.Line, p.Position.Character)
	kind, name, ok := symbols.AtCursor(doc, offset)
	if !ok {
		l.writer.RespondError(msg.ID, rpc.ErrInvalidRequest, "cursor is not on a renameable symbol")
		return
	}
	edit, err := symbols.Rename(l.forest, kind, name, p.NewName)
	if err != nil {
		l.writer.RespondError(msg.ID, rpc.ErrInvalidRequest, err.Error())
		return
	}
	l.writer.Respond(msg.ID, edit)
}

type inlayHintParams struct {
	TextDocument struct {
		URI string `json:"uri"`
	} `json:"textDocument"`
	Range lsp.Range `json:"range"`
}

func (l *Loop) handleInlayHint(msg *rpc.Message) {
	var p inlayHintParams
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		l.writer.RespondError(msg.ID, rpc.ErrInvalidParams, "malformed inlayHint params")
		return
	}
	doc := l.forest.Get(p.TextDocument.URI)
	if doc == nil || doc.Tree == nil {
		l.writer.Respond(msg.ID, []lsp.InlayHint{})
		return
	}
	start := doc.Text.PositionToOffset(p.Range.Start.Line, p.Range.Start.Character)
	end := doc.Text.PositionToOffset(p.Range.End.Line, p.Range.End.Character)
	posToLSP := func(offset int) lsp.Position {
		line, col := doc.Text.OffsetToPosition(offset)
		return lsp.Position{Line: line, Character: col}
	}
	hints := inlay.Compute(doc.Tree, posToLSP, start, end)
	out := make([]lsp.InlayHint, 0, len(hints))
	for _, h := range hints {
		out = append(out, lsp.InlayHint{Position: h.Position, Label: h.Label, Kind: lsp.InlayHintKindType, PaddingLeft: true})
	}
	l.writer.Respond(msg.ID, out)
}
