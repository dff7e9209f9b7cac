package semantic

import (
	"testing"

	"github.com/polarmutex/beancount-language-server/internal/syntax"
)

func TestExtractOpenAndTransaction(t *testing.T) {
	src := `2024-01-01 open Assets:Checking USD
2024-01-01 open Expenses:Groceries

2024-03-14 * "Market" "Groceries" #food ^receipt1
  Assets:Checking        -45.00 USD
  Expenses:Groceries       45.00 USD
`
	tree := syntax.Parse([]byte(src))
	doc := Extract(tree)

	if len(doc.AccountsDefined) != 2 {
		t.Fatalf("expected 2 opened accounts, got %d", len(doc.AccountsDefined))
	}
	if !doc.Currencies["USD"] {
		t.Fatalf("expected USD currency recorded")
	}
	if len(doc.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(doc.Transactions))
	}
	if len(doc.Transactions[0].Postings) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(doc.Transactions[0].Postings))
	}
	if len(doc.Tags) != 1 || doc.Tags[0].Name != "food" {
		t.Fatalf("expected tag food, got %+v", doc.Tags)
	}
	if len(doc.Links) != 1 || doc.Links[0].Name != "receipt1" {
		t.Fatalf("expected link receipt1, got %+v", doc.Links)
	}
	if len(doc.Payees) != 1 || doc.Payees[0].Value != "Market" {
		t.Fatalf("expected payee Market, got %+v", doc.Payees)
	}

	names := doc.AccountNames()
	if len(names) != 2 {
		t.Fatalf("expected 2 distinct account names, got %v", names)
	}
}

func TestExtractEmptyTreeIsSafe(t *testing.T) {
	doc := Extract(syntax.Parse([]byte("")))
	if len(doc.Transactions) != 0 || len(doc.AccountsDefined) != 0 {
		t.Fatalf("expected empty document, got %+v", doc)
	}
}
