package inlay

import (
	"strings"
	"testing"

	"github.com/polarmutex/beancount-language-server/internal/lsp"
	"github.com/polarmutex/beancount-language-server/internal/syntax"
)

func identityPos(offset int) lsp.Position {
	return lsp.Position{Line: 0, Character: offset}
}

func TestComputeHintsOmittedAmount(t *testing.T) {
	src := `2024-03-14 * "Market" "Groceries"
  Assets:Checking -45.00 USD
  Expenses:Groceries
`
	tree := syntax.Parse([]byte(src))
	hints := Compute(tree, identityPos, 0, len(src))
	if len(hints) != 1 {
		t.Fatalf("expected 1 hint, got %d: %+v", len(hints), hints)
	}
	if !strings.Contains(hints[0].Label, "45.00") || !strings.Contains(hints[0].Label, "USD") {
		t.Fatalf("expected hint mentioning 45.00 USD, got %q", hints[0].Label)
	}
}

func TestComputeWarnsOnNonZeroSum(t *testing.T) {
	src := `2024-03-14 * "Market" "Groceries"
  Assets:Checking -40.00 USD
  Expenses:Groceries 45.00 USD
`
	tree := syntax.Parse([]byte(src))
	hints := Compute(tree, identityPos, 0, len(src))
	if len(hints) != 1 {
		t.Fatalf("expected 1 warning hint, got %d", len(hints))
	}
	if !strings.Contains(hints[0].Label, "⚠") {
		t.Fatalf("expected warning marker, got %q", hints[0].Label)
	}
}

func TestComputeSkipsBalancedTransaction(t *testing.T) {
	src := `2024-03-14 * "Market" "Groceries"
  Assets:Checking -45.00 USD
  Expenses:Groceries 45.00 USD
`
	tree := syntax.Parse([]byte(src))
	hints := Compute(tree, identityPos, 0, len(src))
	if len(hints) != 0 {
		t.Fatalf("expected no hints on balanced transaction, got %+v", hints)
	}
}

func TestComputeSkipsMultiCurrency(t *testing.T) {
	src := `2024-03-14 * "Market" "Groceries"
  Assets:Checking -45.00 USD
  Expenses:Groceries
  Assets:Savings 10.00 EUR
`
	tree := syntax.Parse([]byte(src))
	hints := Compute(tree, identityPos, 0, len(src))
	if len(hints) != 0 {
		t.Fatalf("expected no hints for multi-currency transaction, got %+v", hints)
	}
}

func TestComputeRespectsVisibleRange(t *testing.T) {
	src := `2024-03-14 * "Market" "Groceries"
  Assets:Checking -45.00 USD
  Expenses:Groceries
`
	tree := syntax.Parse([]byte(src))
	hints := Compute(tree, identityPos, len(src), len(src))
	if len(hints) != 0 {
		t.Fatalf("expected no hints outside visible range, got %+v", hints)
	}
}
