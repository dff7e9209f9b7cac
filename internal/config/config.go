// Package config holds server configuration: defaults, an optional on-disk
// project file, and the LSP initializationOptions object, merged so
// later sources win over earlier ones.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config is the fully resolved server configuration.
type Config struct {
	JournalFile string
	Formatting  Formatting
	BeanCheck   BeanCheck
}

// Formatter defaults.
type Formatting struct {
	PrefixWidth           int // 0 = auto
	NumWidth              int // 0 = auto
	CurrencyColumn        int // 0 = off
	AccountAmountSpacing  int
	NumberCurrencySpacing int
}

// ValidatorMethod names a diagnostics strategy. It is read into
// BeanCheck.Method from .beanls.kdl and initializationOptions, but
// validator selection does not consult it: the server's registry always
// probes the system strategy, then python-system.
type ValidatorMethod string

const (
	MethodAuto           ValidatorMethod = ""
	MethodSystem         ValidatorMethod = "system"
	MethodPythonSystem   ValidatorMethod = "python-system"
	MethodPythonEmbedded ValidatorMethod = "python-embedded"
)

// BeanCheck configures the external validator invocation.
type BeanCheck struct {
	Method       ValidatorMethod
	BeanCheckCmd string
	PythonCmd    string
	TimeoutSec   int
}

// Default returns the baseline configuration before any file or
// initializationOptions overrides are applied.
func Default() *Config {
	return &Config{
		Formatting: Formatting{
			AccountAmountSpacing:  2,
			NumberCurrencySpacing: 1,
		},
		BeanCheck: BeanCheck{
			Method:     MethodAuto,
			TimeoutSec: 30,
		},
	}
}

// Load resolves configuration for a workspace root: defaults, then an
// optional `.beanls.kdl` in the workspace root, then the caller-supplied
// initializationOptions JSON object (already unmarshaled into an
// InitializationOptions value) always wins: project config overrides
// base defaults.
func Load(workspaceRoot string, opts *InitializationOptions) (*Config, error) {
	cfg := Default()

	if kdlCfg, err := LoadKDL(workspaceRoot); err != nil {
		return nil, fmt.Errorf("load .beanls.kdl: %w", err)
	} else if kdlCfg != nil {
		cfg = kdlCfg
	}

	if opts != nil {
		opts.ApplyTo(cfg, workspaceRoot)
	}

	return cfg, nil
}

// ResolveJournalFile expands ~ and resolves a possibly-relative journal_file
// path against the workspace root.
func ResolveJournalFile(journalFile, workspaceRoot string) (string, error) {
	if journalFile == "" {
		return "", nil
	}
	expanded, err := expandHome(journalFile)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(expanded) {
		return filepath.Clean(expanded), nil
	}
	return filepath.Clean(filepath.Join(workspaceRoot, expanded)), nil
}

func expandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	if path != "~" && !strings.HasPrefix(path, "~/") {
		// "~otheruser/..." is not expanded; leave as-is.
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}
