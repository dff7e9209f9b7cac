package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL attempts to load `.beanls.kdl` from workspaceRoot. It returns
// (nil, nil) when no such file exists, so callers can fall through to
// Default().
func LoadKDL(workspaceRoot string) (*Config, error) {
	kdlPath := filepath.Join(workspaceRoot, ".beanls.kdl")

	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, fmt.Errorf("read .beanls.kdl: %w", err)
	}

	return parseKDL(string(content), workspaceRoot)
}

func parseKDL(content, workspaceRoot string) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse .beanls.kdl: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "journal_file":
			if s, ok := firstStringArg(n); ok {
				if resolved, err := ResolveJournalFile(s, workspaceRoot); err == nil {
					cfg.JournalFile = resolved
				} else {
					cfg.JournalFile = s
				}
			}
		case "formatting":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "prefix_width":
					if v, ok := firstIntArg(cn); ok {
						cfg.Formatting.PrefixWidth = v
					}
				case "num_width":
					if v, ok := firstIntArg(cn); ok {
						cfg.Formatting.NumWidth = v
					}
				case "currency_column":
					if v, ok := firstIntArg(cn); ok {
						cfg.Formatting.CurrencyColumn = v
					}
				case "account_amount_spacing":
					if v, ok := firstIntArg(cn); ok {
						cfg.Formatting.AccountAmountSpacing = v
					}
				case "number_currency_spacing":
					if v, ok := firstIntArg(cn); ok {
						cfg.Formatting.NumberCurrencySpacing = v
					}
				}
			}
		case "bean_check":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "method":
					if s, ok := firstStringArg(cn); ok {
						cfg.BeanCheck.Method = ValidatorMethod(s)
					}
				case "bean_check_cmd":
					if s, ok := firstStringArg(cn); ok {
						cfg.BeanCheck.BeanCheckCmd = s
					}
				case "python_cmd":
					if s, ok := firstStringArg(cn); ok {
						cfg.BeanCheck.PythonCmd = s
					}
				case "timeout_sec":
					if v, ok := firstIntArg(cn); ok {
						cfg.BeanCheck.TimeoutSec = v
					}
				}
			}
		}
	}

	return cfg, nil
}

// Helper functions over kdl-go's document model.

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}
