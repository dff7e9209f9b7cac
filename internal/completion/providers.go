package completion

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/polarmutex/beancount-language-server/internal/lsp"
	"github.com/polarmutex/beancount-language-server/internal/semantic"
)

// MaxCandidates is the hard cap on how many candidates a single
// completion response may return.
const MaxCandidates = 20

// isoCurrencies is a representative subset of ISO 4217 currency codes,
// unioned at query time with whatever currencies the forest actually
// uses.
var isoCurrencies = []string{
	"USD", "EUR", "GBP", "JPY", "CHF", "CAD", "AUD", "NZD", "CNY", "HKD",
	"SGD", "SEK", "NOK", "DKK", "PLN", "CZK", "HUF", "RUB", "TRY", "BRL",
	"MXN", "ZAR", "INR", "KRW", "IDR", "THB", "MYR", "PHP", "VND", "AED",
	"SAR", "ILS", "EGP", "NGN", "KES", "ARS", "CLP", "COP", "PEN", "UYU",
	"BTC", "ETH", "XAU", "XAG",
}

// nowFunc is overridable in tests; production code always calls the
// real clock. (Workflow scripts that generate this repo can't call
// time.Now() themselves, but the shipped binary runs it normally.)
var nowFunc = time.Now

// DateCandidates implements the Date provider: today, current month,
// previous month, next month, each without a day when only the month
// is implied.
func DateCandidates() []lsp.CompletionItem {
	now := nowFunc().UTC()
	today := now.Format("2006-01-02")
	curMonth := now.Format("2006-01") + "-"
	prevMonth := now.AddDate(0, -1, 0).Format("2006-01") + "-"
	nextMonth := now.AddDate(0, 1, 0).Format("2006-01") + "-"

	labels := []string{today, curMonth, prevMonth, nextMonth}
	items := make([]lsp.CompletionItem, 0, len(labels))
	for i, l := range labels {
		items = append(items, lsp.CompletionItem{
			Label:    l,
			Kind:     lsp.KindConstant,
			SortText: fmt.Sprintf("%02d", i),
		})
	}
	return items
}

// txnKindKeywords is the fixed directive-keyword set the TxnKind
// provider offers after a bare date at document root.
var txnKindKeywords = []string{"txn", "balance", "open", "close", "commodity", "price", "event", "document", "note", "pad", "query"}

func TxnKindCandidates() []lsp.CompletionItem {
	items := make([]lsp.CompletionItem, 0, len(txnKindKeywords))
	for _, kw := range txnKindKeywords {
		items = append(items, lsp.CompletionItem{Label: kw, Kind: lsp.KindKeyword})
	}
	return items
}

// FlagCandidates implements the Flag provider.
func FlagCandidates() []lsp.CompletionItem {
	return []lsp.CompletionItem{
		{Label: "*", Kind: lsp.KindEnum},
		{Label: "!", Kind: lsp.KindEnum},
	}
}

// StringCandidates implements the Payee/Narration provider: the
// unioned, prefix-filtered set of payees or narrations seen across the
// forest, ranked by exact-prefix-first then lexicographic order. prefix
// is the raw text immediately before the cursor, which still carries the
// string literal's opening quote when the cursor sits right after it;
// strip that quote before matching since stored payee/narration values
// are kept unquoted.
func StringCandidates(values []string, prefix string) []lsp.CompletionItem {
	prefix = strings.TrimPrefix(prefix, `"`)
	seen := make(map[string]bool)
	var exact, rest []string
	for _, v := range values {
		if seen[v] {
			continue
		}
		if prefix != "" && !strings.HasPrefix(v, prefix) {
			continue
		}
		seen[v] = true
		if prefix != "" && v == prefix {
			exact = append(exact, v)
		} else {
			rest = append(rest, v)
		}
	}
	sort.Strings(exact)
	sort.Strings(rest)
	ordered := append(exact, rest...)

	items := make([]lsp.CompletionItem, 0, len(ordered))
	for i, v := range ordered {
		items = append(items, lsp.CompletionItem{Label: v, Kind: lsp.KindValue, SortText: fmt.Sprintf("%04d", i)})
	}
	return items
}

// AccountMode selects which account-matching rule applies, derived
// from the typed prefix's shape.
type AccountMode int

const (
	AccountModeAll AccountMode = iota
	AccountModeUppercasePrefix
	AccountModeQualifiedPrefix
	AccountModeFuzzy
)

// ClassifyAccountPrefix implements the prefix-shape dispatch the
// Account provider uses to pick a matching strategy.
func ClassifyAccountPrefix(prefix string) AccountMode {
	if prefix == "" {
		return AccountModeAll
	}
	if strings.Contains(prefix, ":") {
		return AccountModeQualifiedPrefix
	}
	first := rune(prefix[0])
	if first >= 'A' && first <= 'Z' {
		return AccountModeUppercasePrefix
	}
	return AccountModeFuzzy
}

// AccountCandidates implements the Account provider across all four
// matching modes.
func AccountCandidates(accounts []string, prefix string, fuzzy *semantic.FuzzyMatcher) []lsp.CompletionItem {
	mode := ClassifyAccountPrefix(prefix)

	switch mode {
	case AccountModeAll:
		sorted := append([]string{}, accounts...)
		sort.Strings(sorted)
		return toAccountItems(sorted, "")
	case AccountModeUppercasePrefix:
		var matched []string
		for _, a := range accounts {
			if strings.HasPrefix(a, prefix) {
				matched = append(matched, a)
			} else if seg := firstSegment(a); strings.HasPrefix(seg, prefix) {
				matched = append(matched, a)
			}
		}
		sort.Strings(matched)
		return toAccountItems(matched, "")
	case AccountModeQualifiedPrefix:
		var matched []string
		for _, a := range accounts {
			if strings.HasPrefix(a, prefix) {
				matched = append(matched, a)
			}
		}
		sort.Strings(matched)
		return toAccountItems(matched, prefix)
	default: // AccountModeFuzzy
		ranked := fuzzy.Rank(prefix, accounts, MaxCandidates)
		items := make([]lsp.CompletionItem, 0, len(ranked))
		for i, m := range ranked {
			items = append(items, lsp.CompletionItem{Label: m.Name, Kind: lsp.KindConstant, SortText: fmt.Sprintf("%04d", i)})
		}
		return items
	}
}

// toAccountItems builds completion items whose label is the full
// account name; when stripPrefix is non-empty (qualified-prefix mode)
// the insertion text is only the remaining suffix.
func toAccountItems(accounts []string, stripPrefix string) []lsp.CompletionItem {
	items := make([]lsp.CompletionItem, 0, len(accounts))
	for i, a := range accounts {
		label := a
		item := lsp.CompletionItem{Label: label, Kind: lsp.KindConstant, SortText: fmt.Sprintf("%04d", i)}
		if stripPrefix != "" && strings.HasPrefix(a, stripPrefix) {
			item.TextEdit = &lsp.TextEdit{NewText: strings.TrimPrefix(a, stripPrefix)}
		}
		items = append(items, item)
	}
	return items
}

func firstSegment(account string) string {
	if idx := strings.IndexByte(account, ':'); idx >= 0 {
		return account[:idx]
	}
	return account
}

// CurrencyCandidates implements the Currency provider: ISO list union
// forest currencies, case-insensitively prefix filtered.
func CurrencyCandidates(forestCurrencies map[string]bool, prefix string) []lsp.CompletionItem {
	seen := make(map[string]bool)
	var names []string
	upperPrefix := strings.ToUpper(prefix)
	add := func(c string) {
		if seen[c] {
			return
		}
		if upperPrefix != "" && !strings.HasPrefix(strings.ToUpper(c), upperPrefix) {
			return
		}
		seen[c] = true
		names = append(names, c)
	}
	for _, c := range isoCurrencies {
		add(c)
	}
	for c := range forestCurrencies {
		add(c)
	}
	sort.Strings(names)

	items := make([]lsp.CompletionItem, 0, len(names))
	for i, c := range names {
		items = append(items, lsp.CompletionItem{Label: c, Kind: lsp.KindUnit, SortText: fmt.Sprintf("%04d", i)})
	}
	return items
}

// AmountCandidates implements the small optional Amount provider.
func AmountCandidates() []lsp.CompletionItem {
	return []lsp.CompletionItem{
		{Label: "100.00", Kind: lsp.KindValue},
		{Label: "50.00", Kind: lsp.KindValue},
	}
}

// TagLinkCandidates implements the Tag/Link provider: deduplicated,
// sorted names from the forest.
func TagLinkCandidates(names []string, prefix string, kind lsp.CompletionItemKind) []lsp.CompletionItem {
	seen := make(map[string]bool)
	var matched []string
	for _, n := range names {
		if seen[n] {
			continue
		}
		if prefix != "" && !strings.HasPrefix(n, prefix) {
			continue
		}
		seen[n] = true
		matched = append(matched, n)
	}
	sort.Strings(matched)

	items := make([]lsp.CompletionItem, 0, len(matched))
	for i, n := range matched {
		items = append(items, lsp.CompletionItem{Label: n, Kind: kind, SortText: fmt.Sprintf("%04d", i)})
	}
	return items
}
