package dispatch

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/polarmutex/beancount-language-server/internal/config"
	"github.com/polarmutex/beancount-language-server/internal/diagnostics"
	"github.com/polarmutex/beancount-language-server/internal/rpc"
)

func uriForPathTest(root string) func(string) string {
	return func(path string) string {
		if filepath.IsAbs(path) {
			return "file://" + path
		}
		return "file://" + filepath.Join(root, path)
	}
}

func newTestLoop(t *testing.T, input *bytes.Buffer, output *bytes.Buffer, root string) *Loop {
	t.Helper()
	cfg := config.Default()
	registry := diagnostics.NewRegistry()
	return NewLoop(input, output, cfg, registry, root, uriForPathTest(root), func() string { return "" })
}

func writeMessage(t *testing.T, w *rpc.Writer, id string, method string, params interface{}) {
	t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	msg := &rpc.Message{JSONRPC: "2.0", Method: method, Params: raw}
	if id != "" {
		msg.ID = json.RawMessage(id)
	}
	if err := w.Write(msg); err != nil {
		t.Fatalf("write message: %v", err)
	}
}

func TestHandleInitializeAppliesInitializationOptions(t *testing.T) {
	var input, output bytes.Buffer
	root := t.TempDir()
	loop := newTestLoop(t, &input, &output, root)

	w := rpc.NewWriter(&input)
	writeMessage(t, w, `1`, "initialize", map[string]interface{}{
		"initializationOptions": map[string]interface{}{
			"bean_check": map[string]interface{}{"bean_check_cmd": "custom-bean-check"},
		},
	})
	writeMessage(t, w, "", "exit", nil)

	if code := loop.Run(); code != 0 {
		t.Fatalf("expected clean exit, got code %d", code)
	}

	if loop.cfg.BeanCheck.BeanCheckCmd != "custom-bean-check" {
		t.Fatalf("expected initializationOptions to override bean_check_cmd, got %q", loop.cfg.BeanCheck.BeanCheckCmd)
	}

	r := rpc.NewReader(&output)
	resp, err := r.Read()
	if err != nil {
		t.Fatalf("unexpected error reading response: %v", err)
	}
	var result struct {
		Capabilities struct {
			DocumentFormattingProvider bool `json:"documentFormattingProvider"`
		} `json:"capabilities"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if !result.Capabilities.DocumentFormattingProvider {
		t.Fatalf("expected documentFormattingProvider capability to be advertised")
	}
}

func TestDidOpenPullsInIncludedFile(t *testing.T) {
	root := t.TempDir()
	includedPath := filepath.Join(root, "accounts.beancount")
	if err := os.WriteFile(includedPath, []byte("2024-01-01 open Assets:Checking USD\n"), 0o644); err != nil {
		t.Fatalf("write included file: %v", err)
	}

	var input, output bytes.Buffer
	loop := newTestLoop(t, &input, &output, root)

	w := rpc.NewWriter(&input)
	mainURI := "file://" + filepath.Join(root, "main.beancount")
	writeMessage(t, w, "", "textDocument/didOpen", map[string]interface{}{
		"textDocument": map[string]interface{}{
			"uri":     mainURI,
			"version": 1,
			"text":    "include \"accounts.beancount\"\n",
		},
	})
	writeMessage(t, w, "", "exit", nil)

	if code := loop.Run(); code != 0 {
		t.Fatalf("expected clean exit, got code %d", code)
	}

	includedURI := "file://" + includedPath
	if doc := loop.forest.Get(includedURI); doc == nil {
		t.Fatalf("expected included file %s to be loaded into the forest", includedURI)
	}
}

func TestUriToPathStripsFileScheme(t *testing.T) {
	if got := uriToPath("file:///tmp/foo.beancount"); got != "/tmp/foo.beancount" {
		t.Fatalf("expected /tmp/foo.beancount, got %q", got)
	}
}

func TestResolveRootFileFallsBackToSavedDocument(t *testing.T) {
	var input, output bytes.Buffer
	root := t.TempDir()
	loop := newTestLoop(t, &input, &output, root)

	if got := loop.resolveRootFile(); got != "" {
		t.Fatalf("expected no root file before any document is touched, got %q", got)
	}

	mainPath := filepath.Join(root, "main.beancount")
	loop.lastURI = "file://" + mainPath
	if got := loop.resolveRootFile(); got != mainPath {
		t.Fatalf("expected fallback to the last-touched document %q, got %q", mainPath, got)
	}

	loop.cfg.JournalFile = filepath.Join(root, "journal.beancount")
	if got := loop.resolveRootFile(); got != loop.cfg.JournalFile {
		t.Fatalf("expected configured journal_file to take precedence, got %q", got)
	}
}

func TestDidSaveTracksLastURIForRootFallback(t *testing.T) {
	var input, output bytes.Buffer
	root := t.TempDir()
	loop := newTestLoop(t, &input, &output, root)

	w := rpc.NewWriter(&input)
	savedURI := "file://" + filepath.Join(root, "ledger.beancount")
	writeMessage(t, w, "", "textDocument/didSave", map[string]interface{}{
		"textDocument": map[string]interface{}{"uri": savedURI},
	})
	writeMessage(t, w, "", "exit", nil)

	if code := loop.Run(); code != 0 {
		t.Fatalf("expected clean exit, got code %d", code)
	}
	if loop.lastURI != savedURI {
		t.Fatalf("expected lastURI to be set from didSave, got %q", loop.lastURI)
	}
}
