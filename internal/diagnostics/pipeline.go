package diagnostics

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/polarmutex/beancount-language-server/internal/debug"
	"github.com/polarmutex/beancount-language-server/internal/lsp"
)

var pipelineLog = debug.Component("diagnostics")

// rawRecord is one element of bean-check's `errors[]`/`flagged[]` JSON
// arrays.
type rawRecord struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// parseValidatorOutput reads the validator's wire contract literally:
// two lines on stdout, each a bare JSON array (errors then flagged),
// rather than one enclosing JSON object. Blank lines are skipped so trailing
// newlines or a validator that pads its output don't misalign the two
// records.
func parseValidatorOutput(stdout []byte) (errors, flagged []rawRecord, err error) {
	scanner := bufio.NewScanner(bytes.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var lines [][]byte
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), line...))
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return nil, nil, scanErr
	}
	if len(lines) < 2 {
		return nil, nil, fmt.Errorf("expected 2 JSON array lines, got %d", len(lines))
	}
	if err := json.Unmarshal(lines[0], &errors); err != nil {
		return nil, nil, fmt.Errorf("errors line: %w", err)
	}
	if err := json.Unmarshal(lines[1], &flagged); err != nil {
		return nil, nil, fmt.Errorf("flagged line: %w", err)
	}
	return errors, flagged, nil
}

// Pipeline runs a configured Validator against a root file, parses its
// output, and tracks the last-published diagnostic set per URI so only
// deltas are re-published.
type Pipeline struct {
	registry   *Registry
	timeout    time.Duration
	rootFile   func() string
	uriForPath func(path string) string

	mu        sync.Mutex
	published map[string][]lsp.Diagnostic
	notices   map[string]bool // URIs last sent a notice instead of their stored set
}

// NewPipeline creates a diagnostics pipeline. rootFile returns the
// currently configured/derived root file; uriForPath maps a bean-check
// file path to an LSP URI.
func NewPipeline(registry *Registry, timeout time.Duration, rootFile func() string, uriForPath func(string) string) *Pipeline {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Pipeline{registry: registry, timeout: timeout, rootFile: rootFile, uriForPath: uriForPath, published: make(map[string][]lsp.Diagnostic)}
}

// Registry exposes the pipeline's validator registry, so callers can
// report a human-readable label for the strategy about to run (for
// progress notifications that name the active validator strategy)
// without duplicating selection logic.
func (p *Pipeline) Registry() *Registry {
	return p.registry
}

// Run executes one validation pass and returns the set of
// publishDiagnostics calls the caller should make: a map from URI to
// its new diagnostic set, containing only URIs whose set changed
// (including URIs that need to be cleared to empty).
func (p *Pipeline) Run(ctx context.Context) map[string][]lsp.Diagnostic {
	root := p.rootFile()
	if root == "" {
		return nil
	}

	v := p.registry.Select()
	if v == nil {
		return p.delta(map[string][]lsp.Diagnostic{
			p.uriForPath(root): {{
				Range:    lsp.Range{},
				Severity: lsp.SeverityError,
				Source:   "beanls",
				Message:  "no beancount validator is available (configure bean_check in initializationOptions or .beanls.kdl)",
			}},
		})
	}

	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	stdout, _, _, err := v.Run(runCtx, root)
	if runCtx.Err() == context.DeadlineExceeded {
		pipelineLog.Warn("validator %s timed out after %s", v.Name(), p.timeout)
		return p.notice(p.uriForPath(root), lsp.Diagnostic{Severity: lsp.SeverityWarning, Source: "beanls", Message: fmt.Sprintf("%s timed out after %s; previous diagnostics retained", v.Name(), p.timeout)})
	}
	if err != nil {
		pipelineLog.Warn("validator %s failed: %v", v.Name(), err)
		return p.delta(map[string][]lsp.Diagnostic{
			p.uriForPath(root): {{Severity: lsp.SeverityError, Source: "beanls", Message: fmt.Sprintf("validator %s failed: %v", v.Name(), err)}},
		})
	}

	errRecs, flaggedRecs, err := parseValidatorOutput(stdout)
	if err != nil {
		pipelineLog.Warn("validator %s produced malformed output: %v", v.Name(), err)
		return p.notice(p.uriForPath(root), lsp.Diagnostic{Severity: lsp.SeverityWarning, Source: "beanls", Message: "validator produced malformed output; previous diagnostics retained"})
	}

	buckets := make(map[string][]lsp.Diagnostic)
	for _, rec := range errRecs {
		bucketRecord(buckets, rec, root, lsp.SeverityError, p.uriForPath)
	}
	for _, rec := range flaggedRecs {
		bucketRecord(buckets, rec, root, lsp.SeverityWarning, p.uriForPath)
	}

	return p.delta(buckets)
}

func bucketRecord(buckets map[string][]lsp.Diagnostic, rec rawRecord, rootFile string, sev lsp.DiagnosticSeverity, uriForPath func(string) string) {
	file := rec.File
	line := rec.Line
	if file == "" {
		file = rootFile
		line = 1
	}
	if line < 1 {
		line = 1
	}
	uri := uriForPath(file)
	buckets[uri] = append(buckets[uri], lsp.Diagnostic{
		Range: lsp.Range{
			Start: lsp.Position{Line: line - 1, Character: 0},
			End:   lsp.Position{Line: line, Character: 0},
		},
		Severity: sev,
		Source:   "bean-check",
		Message:  rec.Message,
	})
}

// notice returns a one-diagnostic publication for uri without touching
// the stored set, so the previous diagnostics are kept; the next delta
// republishes uri regardless of whether its stored set changed.
func (p *Pipeline) notice(uri string, d lsp.Diagnostic) map[string][]lsp.Diagnostic {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.notices == nil {
		p.notices = make(map[string]bool)
	}
	p.notices[uri] = true
	return map[string][]lsp.Diagnostic{uri: {d}}
}

// delta compares the new bucket set against the last publication and
// returns only what changed, plus empty-set publications for URIs that
// previously had diagnostics and no longer do.
func (p *Pipeline) delta(next map[string][]lsp.Diagnostic) map[string][]lsp.Diagnostic {
	p.mu.Lock()
	defer p.mu.Unlock()

	changed := make(map[string][]lsp.Diagnostic)
	for uri, diags := range next {
		if p.notices[uri] || !reflect.DeepEqual(p.published[uri], diags) {
			changed[uri] = diags
		}
	}
	for uri := range p.published {
		if _, present := next[uri]; !present {
			changed[uri] = nil
		}
	}
	for uri := range p.notices {
		if _, present := next[uri]; !present {
			changed[uri] = nil
		}
	}
	p.notices = nil

	for uri, diags := range next {
		p.published[uri] = diags
	}
	for uri := range p.published {
		if _, present := next[uri]; !present {
			delete(p.published, uri)
		}
	}

	return changed
}
