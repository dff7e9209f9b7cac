// Package inlay implements transaction-balancing inlay hints: the
// omitted-amount hint on an under-specified posting, and the
// non-zero-sum warning hint on a fully-specified transaction. It uses
// the same two-field decimal-plus-currency Amount{Value, Currency}
// shape common across beancount tooling, built on shopspring/decimal
// instead of float64 since balance checking requires fixed-point
// precision that a bare float64 can't guarantee.
package inlay

import (
	"fmt"

	"github.com/polarmutex/beancount-language-server/internal/lsp"
	"github.com/polarmutex/beancount-language-server/internal/syntax"
	"github.com/shopspring/decimal"
)

// Hint is one computed inlay hint for a transaction or posting.
type Hint struct {
	Position lsp.Position
	Label    string
}

// postingAmount is a parsed (value, currency) pair for one posting, or
// the zero value if the posting had no amount at all.
type postingAmount struct {
	node     *syntax.Node
	value    decimal.Decimal
	currency string
	present  bool
}

// Compute derives the inlay hints for every transaction in tree whose
// start byte falls within [visibleStart, visibleEnd).
func Compute(tree *syntax.Tree, posToLSP func(byteOffset int) lsp.Position, visibleStart, visibleEnd int) []Hint {
	if tree == nil || tree.Root == nil {
		return nil
	}

	var hints []Hint
	for _, txn := range syntax.FindAll(tree.Root, syntax.KindTransaction) {
		if txn.StartByte() < visibleStart || txn.StartByte() >= visibleEnd {
			continue
		}
		hints = append(hints, computeTransaction(txn, posToLSP)...)
	}
	return hints
}

func computeTransaction(txn *syntax.Node, posToLSP func(int) lsp.Position) []Hint {
	postings := syntax.Postings(txn)
	amounts := make([]postingAmount, 0, len(postings))
	currencies := make(map[string]int)

	for _, p := range postings {
		pa := postingAmount{node: p}
		amt := p.ChildByFieldName(syntax.FieldAmount)
		if amt != nil {
			num := amt.ChildByFieldName(syntax.FieldNumber)
			cur := amt.ChildByFieldName(syntax.FieldCurrency)
			if num != nil && cur != nil {
				if v, err := decimal.NewFromString(num.Value()); err == nil {
					pa.value = v
					pa.currency = cur.Value()
					pa.present = true
					currencies[cur.Value()]++
				}
			}
		}
		amounts = append(amounts, pa)
	}

	if len(currencies) > 1 {
		// Multi-currency transactions emit no hints.
		return nil
	}

	majority := majorityCurrency(currencies)

	var missing []int
	for i, a := range amounts {
		if !a.present {
			missing = append(missing, i)
		}
	}

	if len(missing) == 1 {
		sum := decimal.Zero
		for i, a := range amounts {
			if i == missing[0] {
				continue
			}
			sum = sum.Add(a.value)
		}
		negated := sum.Neg()
		places := int32(0)
		if exp := negated.Exponent(); exp < 0 {
			places = -exp
		}
		hintNode := amounts[missing[0]].node
		hints := []Hint{{
			Position: posToLSP(hintNode.EndByte()),
			Label:    fmt.Sprintf("%s %s", negated.StringFixed(places), majority),
		}}
		return hints
	}

	if len(missing) == 0 && len(postings) > 0 {
		sum := decimal.Zero
		for _, a := range amounts {
			sum = sum.Add(a.value)
		}
		if !sum.IsZero() {
			return []Hint{{
				Position: posToLSP(txn.EndByte()),
				Label:    fmt.Sprintf("= %s %s ⚠", sum.String(), majority),
			}}
		}
	}

	return nil
}

func majorityCurrency(counts map[string]int) string {
	best := ""
	bestCount := -1
	for c, n := range counts {
		if n > bestCount {
			best = c
			bestCount = n
		}
	}
	return best
}
