package diagnostics

import (
	"context"
	"testing"
)

type fakeValidator struct {
	name      string
	available bool
	stdout    string
}

func (f *fakeValidator) Name() string    { return f.name }
func (f *fakeValidator) Available() bool { return f.available }
func (f *fakeValidator) Run(ctx context.Context, rootFile string) ([]byte, []byte, int, error) {
	return []byte(f.stdout), nil, 0, nil
}

func uriForPath(p string) string { return "file://" + p }

func TestPipelineBucketsErrorsAndFlagged(t *testing.T) {
	v := &fakeValidator{name: "fake", available: true, stdout: "[{\"file\": \"/root/a.beancount\", \"line\": 3, \"message\": \"boom\"}]\n" +
		"[{\"file\": \"/root/a.beancount\", \"line\": 5, \"message\": \"flagged\"}]\n"}
	p := NewPipeline(NewRegistry(v), 0, func() string { return "/root/a.beancount" }, uriForPath)
	result := p.Run(context.Background())
	diags := result["file:///root/a.beancount"]
	if len(diags) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(diags))
	}
}

func TestPipelineDeltaSkipsUnchanged(t *testing.T) {
	v := &fakeValidator{name: "fake", available: true, stdout: "[{\"file\":\"/root/a.beancount\",\"line\":1,\"message\":\"x\"}]\n[]\n"}
	p := NewPipeline(NewRegistry(v), 0, func() string { return "/root/a.beancount" }, uriForPath)

	first := p.Run(context.Background())
	if len(first) == 0 {
		t.Fatalf("expected first run to publish")
	}
	second := p.Run(context.Background())
	if len(second) != 0 {
		t.Fatalf("expected second identical run to publish nothing, got %+v", second)
	}
}

func TestPipelineClearsStaleURIs(t *testing.T) {
	v := &fakeValidator{name: "fake", available: true, stdout: "[{\"file\":\"/root/a.beancount\",\"line\":1,\"message\":\"x\"}]\n[]\n"}
	p := NewPipeline(NewRegistry(v), 0, func() string { return "/root/a.beancount" }, uriForPath)
	p.Run(context.Background())

	v.stdout = "[]\n[]\n"
	result := p.Run(context.Background())
	diags, present := result["file:///root/a.beancount"]
	if !present {
		t.Fatalf("expected stale URI to be republished with empty set")
	}
	if len(diags) != 0 {
		t.Fatalf("expected empty diagnostic set, got %+v", diags)
	}
}

func TestPipelineNoValidatorAvailable(t *testing.T) {
	v := &fakeValidator{name: "fake", available: false}
	p := NewPipeline(NewRegistry(v), 0, func() string { return "/root/a.beancount" }, uriForPath)
	result := p.Run(context.Background())
	diags := result["file:///root/a.beancount"]
	if len(diags) != 1 {
		t.Fatalf("expected 1 workspace-level error diagnostic, got %+v", diags)
	}
}

func TestPipelineMalformedOutputRetainsPrevious(t *testing.T) {
	v := &fakeValidator{name: "fake", available: true, stdout: "[{\"file\":\"/root/a.beancount\",\"line\":1,\"message\":\"x\"}]\n[]\n"}
	p := NewPipeline(NewRegistry(v), 0, func() string { return "/root/a.beancount" }, uriForPath)
	p.Run(context.Background())

	v.stdout = "not json at all"
	result := p.Run(context.Background())
	diags := result["file:///root/a.beancount"]
	if len(diags) != 1 || diags[0].Severity != 2 {
		t.Fatalf("expected 1 warning diagnostic on malformed output, got %+v", diags)
	}
	if p.published["file:///root/a.beancount"][0].Message != "x" {
		t.Fatalf("expected previous diagnostics retained in published store")
	}
}

func TestRegistrySelectsFirstAvailable(t *testing.T) {
	a := &fakeValidator{name: "a", available: false}
	b := &fakeValidator{name: "b", available: true}
	r := NewRegistry(a, b)
	if got := r.Select(); got == nil || got.Name() != "b" {
		t.Fatalf("expected b selected, got %v", got)
	}
}
