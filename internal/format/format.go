// Package format implements the posting-alignment formatter: compute
// the minimal set of insertions/deletions needed to align postings'
// numbers into a column, without rewriting whole lines. It produces
// the smallest edit set that reaches the target state, never a
// full-document rewrite.
package format

import (
	"github.com/polarmutex/beancount-language-server/internal/lsp"
	"github.com/polarmutex/beancount-language-server/internal/syntax"
)

// Options configures the formatter's column widths and spacing.
type Options struct {
	PrefixWidth          int // 0 = auto
	NumWidth             int // 0 = auto
	CurrencyColumn       int // 0 = off
	AccountAmountSpacing int // default 2
	NumberCurrencySpacing int // default 1
}

// DefaultOptions returns the formatter's documented defaults.
func DefaultOptions() Options {
	return Options{AccountAmountSpacing: 2, NumberCurrencySpacing: 1}
}

type alignable struct {
	node       *syntax.Node
	prefixEnd  int // byte column, end of account name
	numberStart int
	numberEnd   int
	numberLen   int
}

// Format computes the TextEdit set that aligns every posting/balance
// number column in tree.
func Format(tree *syntax.Tree, line func(row int) []byte, opts Options) []lsp.TextEdit {
	if tree == nil || tree.Root == nil {
		return nil
	}

	var targets []alignable
	for _, n := range syntax.FindAllAny(tree.Root, syntax.KindPosting, syntax.KindBalance) {
		acct := n.ChildByFieldName(syntax.FieldAccount)
		amt := n.ChildByFieldName(syntax.FieldAmount)
		if acct == nil || amt == nil {
			continue
		}
		num := amt.ChildByFieldName(syntax.FieldNumber)
		if num == nil {
			continue
		}
		targets = append(targets, alignable{
			node:        n,
			prefixEnd:   acct.EndPosition().Column,
			numberStart: num.StartPosition().Column,
			numberEnd:   num.EndPosition().Column,
			numberLen:   num.EndByte() - num.StartByte(),
		})
	}
	if len(targets) == 0 {
		return nil
	}

	maxPrefix := 0
	maxNumberLen := 0
	for _, a := range targets {
		if a.prefixEnd > maxPrefix {
			maxPrefix = a.prefixEnd
		}
		if a.numberLen > maxNumberLen {
			maxNumberLen = a.numberLen
		}
	}
	if opts.PrefixWidth > 0 {
		maxPrefix = opts.PrefixWidth
	}
	if opts.NumWidth > 0 {
		maxNumberLen = opts.NumWidth
	}

	var edits []lsp.TextEdit
	for _, a := range targets {
		var target int
		if opts.CurrencyColumn > 0 {
			target = opts.CurrencyColumn - opts.NumberCurrencySpacing - a.numberLen
			if target < a.prefixEnd {
				// Natural length would push the currency past the
				// configured column; leave this posting as-is and let
				// the caller attach a diagnostic.
				continue
			}
		} else {
			target = maxPrefix + opts.AccountAmountSpacing + (maxNumberLen - a.numberLen)
		}

		row := a.node.StartPosition().Row
		if a.numberStart < a.prefixEnd {
			row = amountRow(a)
		}

		if target == a.numberStart {
			continue
		}
		edits = append(edits, lsp.TextEdit{
			Range: lsp.Range{
				Start: lsp.Position{Line: row, Character: uint16Col(a.prefixEnd)},
				End:   lsp.Position{Line: row, Character: uint16Col(a.numberStart)},
			},
			NewText: spaces(target - a.prefixEnd),
		})
	}
	return edits
}

func amountRow(a alignable) int {
	return a.node.ChildByFieldName(syntax.FieldAmount).StartPosition().Row
}

func spaces(n int) string {
	if n < 0 {
		n = 0
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

// uint16Col is a narrow shim: byte columns and UTF-16 columns coincide
// for the ASCII-only gap between an account name and its number, so no
// conversion table lookup is needed here.
func uint16Col(byteCol int) int { return byteCol }

// Diagnostic is emitted for a posting the currency-column mode could
// not align without pushing past the configured column.
type Diagnostic struct {
	Node *syntax.Node
}

// Overflowing re-runs the currency-column check and returns every
// posting it had to skip, so callers can attach a diagnostic to each.
func Overflowing(tree *syntax.Tree, opts Options) []Diagnostic {
	if opts.CurrencyColumn <= 0 || tree == nil || tree.Root == nil {
		return nil
	}
	var out []Diagnostic
	for _, n := range syntax.FindAllAny(tree.Root, syntax.KindPosting, syntax.KindBalance) {
		acct := n.ChildByFieldName(syntax.FieldAccount)
		amt := n.ChildByFieldName(syntax.FieldAmount)
		if acct == nil || amt == nil {
			continue
		}
		num := amt.ChildByFieldName(syntax.FieldNumber)
		if num == nil {
			continue
		}
		numberLen := num.EndByte() - num.StartByte()
		target := opts.CurrencyColumn - opts.NumberCurrencySpacing - numberLen
		if target < acct.EndPosition().Column {
			out = append(out, Diagnostic{Node: n})
		}
	}
	return out
}
