package completion

import (
	"sort"

	"github.com/polarmutex/beancount-language-server/internal/forest"
	"github.com/polarmutex/beancount-language-server/internal/lsp"
	"github.com/polarmutex/beancount-language-server/internal/semantic"
)

// Request bundles everything a completion query needs, decoupled from
// the transport layer.
type Request struct {
	Doc      *forest.Document
	Position lsp.Position
	Forest   *forest.Forest
	Fuzzy    *semantic.FuzzyMatcher
}

// Complete runs the completion pipeline end to end: classify, dispatch
// to providers for every expected kind, merge, rank, and cap at
// MaxCandidates.
func Complete(req Request) []lsp.CompletionItem {
	if req.Doc == nil || req.Doc.Tree == nil {
		return nil
	}
	source := req.Doc.Text.Bytes()
	byteOffset := req.Doc.Text.PositionToOffset(req.Position.Line, req.Position.Character)

	ctx := Classify(req.Doc.Tree, source, byteOffset)

	var items []lsp.CompletionItem
	for _, k := range ctx.ExpectedKind {
		switch k {
		case KindDate:
			items = append(items, DateCandidates()...)
		case KindTxnKind:
			items = append(items, TxnKindCandidates()...)
		case KindFlag:
			items = append(items, FlagCandidates()...)
		case KindPayee:
			items = append(items, StringCandidates(collectPayees(req.Forest), ctx.Prefix)...)
		case KindNarration:
			items = append(items, StringCandidates(collectNarrations(req.Forest), ctx.Prefix)...)
		case KindAccount:
			items = append(items, AccountCandidates(collectAccounts(req.Forest), ctx.Prefix, req.Fuzzy)...)
		case KindCurrency:
			items = append(items, CurrencyCandidates(collectCurrencies(req.Forest), ctx.Prefix)...)
		case KindAmount:
			items = append(items, AmountCandidates()...)
		case KindTag:
			items = append(items, TagLinkCandidates(collectTags(req.Forest), ctx.Prefix, lsp.KindConstant)...)
		case KindLink:
			items = append(items, TagLinkCandidates(collectLinks(req.Forest), ctx.Prefix, lsp.KindConstant)...)
		}
	}

	return rank(items, ctx.Prefix)
}

// rank applies the final ranking pass across the merged candidate set:
// exact prefix matches first, then the provider's own order (already
// fuzzy-scored where relevant), finally lexicographic, capped at
// MaxCandidates.
func rank(items []lsp.CompletionItem, prefix string) []lsp.CompletionItem {
	sort.SliceStable(items, func(i, j int) bool {
		ei, ej := items[i].Label == prefix, items[j].Label == prefix
		if ei != ej {
			return ei
		}
		return items[i].SortText < items[j].SortText
	})
	if len(items) > MaxCandidates {
		items = items[:MaxCandidates]
	}
	return items
}

func collectAccounts(f *forest.Forest) []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range f.All() {
		if d.Semantic == nil {
			continue
		}
		for _, n := range d.Semantic.AccountNames() {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

func collectPayees(f *forest.Forest) []string {
	var out []string
	for _, d := range f.All() {
		if d.Semantic == nil {
			continue
		}
		for _, p := range d.Semantic.Payees {
			out = append(out, p.Value)
		}
	}
	return out
}

func collectNarrations(f *forest.Forest) []string {
	var out []string
	for _, d := range f.All() {
		if d.Semantic == nil {
			continue
		}
		for _, n := range d.Semantic.Narrations {
			out = append(out, n.Value)
		}
	}
	return out
}

func collectCurrencies(f *forest.Forest) map[string]bool {
	out := make(map[string]bool)
	for _, d := range f.All() {
		if d.Semantic == nil {
			continue
		}
		for c := range d.Semantic.Currencies {
			out[c] = true
		}
	}
	return out
}

func collectTags(f *forest.Forest) []string {
	var out []string
	for _, d := range f.All() {
		if d.Semantic == nil {
			continue
		}
		for _, t := range d.Semantic.Tags {
			out = append(out, t.Name)
		}
	}
	return out
}

func collectLinks(f *forest.Forest) []string {
	var out []string
	for _, d := range f.All() {
		if d.Semantic == nil {
			continue
		}
		for _, l := range d.Semantic.Links {
			out = append(out, l.Name)
		}
	}
	return out
}
