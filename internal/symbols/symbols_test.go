package symbols

import (
	"testing"

	"github.com/polarmutex/beancount-language-server/internal/forest"
)

func TestAtCursorClassifiesAccount(t *testing.T) {
	f := forest.New()
	doc := f.Open("file:///a.beancount", 1, "2024-01-01 open Assets:Checking USD\n")
	offset := doc.Text.PositionToOffset(0, 20)
	kind, name, ok := AtCursor(doc, offset)
	if !ok {
		t.Fatalf("expected a classification")
	}
	if kind != KindAccount || name != "Assets:Checking" {
		t.Fatalf("expected Assets:Checking account, got kind=%v name=%q", kind, name)
	}
}

func TestReferencesFindsOccurrencesAcrossForest(t *testing.T) {
	f := forest.New()
	f.Open("file:///a.beancount", 1, "2024-01-01 open Assets:Checking USD\n")
	f.Open("file:///b.beancount", 1, `2024-03-14 * "Market" "Groceries"
  Assets:Checking -1.00 USD
  Expenses:Groceries
`)
	refs := References(f, KindAccount, "Assets:Checking")
	if len(refs) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(refs))
	}
}

func TestValidateNameAccountPredicate(t *testing.T) {
	if !ValidateName(KindAccount, "Assets:NewChecking") {
		t.Fatalf("expected valid account name to pass")
	}
	if ValidateName(KindAccount, "assets:lowercase") {
		t.Fatalf("expected lowercase account name to fail")
	}
}

func TestRenameRejectsInvalidNewName(t *testing.T) {
	f := forest.New()
	f.Open("file:///a.beancount", 1, "2024-01-01 open Assets:Checking USD\n")
	_, err := Rename(f, KindAccount, "Assets:Checking", "not valid")
	if err == nil {
		t.Fatalf("expected rename to be rejected")
	}
}

func TestRenameProducesWorkspaceEdit(t *testing.T) {
	f := forest.New()
	f.Open("file:///a.beancount", 1, "2024-01-01 open Assets:Checking USD\n")
	edit, err := Rename(f, KindAccount, "Assets:Checking", "Assets:Checking2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edit.Changes["file:///a.beancount"]) != 1 {
		t.Fatalf("expected 1 edit, got %+v", edit.Changes)
	}
}
