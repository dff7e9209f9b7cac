package completion

import (
	"testing"
	"time"

	"github.com/polarmutex/beancount-language-server/internal/forest"
	"github.com/polarmutex/beancount-language-server/internal/semantic"
)

func TestClassifyEmptyDocumentExpectsDate(t *testing.T) {
	f := forest.New()
	doc := f.Open("file:///a.beancount", 1, "")
	ctx := Classify(doc.Tree, doc.Text.Bytes(), 0)
	if ctx.Structure != StructureDocumentRoot {
		t.Fatalf("expected document root, got %v", ctx.Structure)
	}
	if len(ctx.ExpectedKind) != 1 || ctx.ExpectedKind[0] != KindDate {
		t.Fatalf("expected [Date], got %v", ctx.ExpectedKind)
	}
}

func TestDateCandidatesIncludesToday(t *testing.T) {
	old := nowFunc
	defer func() { nowFunc = old }()
	nowFunc = func() time.Time { return time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC) }

	items := DateCandidates()
	var labels []string
	for _, it := range items {
		labels = append(labels, it.Label)
	}
	wantToday := "2024-03-14"
	wantMonth := "2024-03-"
	foundToday, foundMonth := false, false
	for _, l := range labels {
		if l == wantToday {
			foundToday = true
		}
		if l == wantMonth {
			foundMonth = true
		}
	}
	if !foundToday || !foundMonth {
		t.Fatalf("expected %q and %q among %v", wantToday, wantMonth, labels)
	}
}

func TestAccountCandidatesUppercasePrefixExcludesOtherSegments(t *testing.T) {
	accounts := []string{"Assets:Checking", "Assets:Savings", "Expenses:Groceries"}
	items := AccountCandidates(accounts, "As", semantic.NewFuzzyMatcher(0.8))
	if len(items) == 0 {
		t.Fatalf("expected matches")
	}
	for _, it := range items {
		if it.Label == "Expenses:Groceries" {
			t.Fatalf("did not expect Expenses:Groceries for prefix As")
		}
	}
}

func TestAccountCandidatesQualifiedPrefixStripsPrefix(t *testing.T) {
	accounts := []string{"Assets:Checking"}
	items := AccountCandidates(accounts, "Assets:Che", semantic.NewFuzzyMatcher(0.8))
	if len(items) != 1 {
		t.Fatalf("expected 1 match, got %d", len(items))
	}
	if items[0].TextEdit == nil || items[0].TextEdit.NewText != "cking" {
		t.Fatalf("expected suffix-only insert text 'cking', got %+v", items[0].TextEdit)
	}
}

func TestAccountCandidatesFuzzyLowercasePrefix(t *testing.T) {
	accounts := []string{"Assets:Checking", "Assets:Savings"}
	items := AccountCandidates(accounts, "check", semantic.NewFuzzyMatcher(0.3))
	if len(items) == 0 {
		t.Fatalf("expected at least one fuzzy match")
	}
}

func TestCurrencyCandidatesUnionsForestAndISO(t *testing.T) {
	items := CurrencyCandidates(map[string]bool{"XYZ": true}, "")
	found := false
	for _, it := range items {
		if it.Label == "XYZ" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected forest-only currency XYZ to appear")
	}
}

func TestStringCandidatesStripsOpeningQuote(t *testing.T) {
	items := StringCandidates([]string{"Foo", "Bar"}, `"`)
	var labels []string
	for _, it := range items {
		labels = append(labels, it.Label)
	}
	foundFoo, foundBar := false, false
	for _, l := range labels {
		if l == "Foo" {
			foundFoo = true
		}
		if l == "Bar" {
			foundBar = true
		}
	}
	if !foundFoo || !foundBar {
		t.Fatalf("expected Foo and Bar among %v", labels)
	}
}

func TestStringCandidatesStripsOpeningQuoteWithPartialPrefix(t *testing.T) {
	items := StringCandidates([]string{"Foo", "Bar"}, `"Te`)
	for _, it := range items {
		if it.Label == "Foo" || it.Label == "Bar" {
			t.Fatalf("did not expect %q to match prefix \"Te, got %v", it.Label, items)
		}
	}

	items = StringCandidates([]string{"Test Narration", "Bar"}, `"Te`)
	found := false
	for _, it := range items {
		if it.Label == "Test Narration" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Test Narration to match prefix \"Te, got %v", items)
	}
}

func TestMergeCapsAtMaxCandidates(t *testing.T) {
	var accounts []string
	for i := 0; i < 50; i++ {
		accounts = append(accounts, string(rune('A'+i%26))+string(rune('0'+i%10)))
	}
	items := AccountCandidates(accounts, "", semantic.NewFuzzyMatcher(0.8))
	capped := rank(items, "")
	if len(capped) > MaxCandidates {
		t.Fatalf("expected cap at %d, got %d", MaxCandidates, len(capped))
	}
}
