package syntax

import "testing"

func TestParseEmptyDocument(t *testing.T) {
	tree := Parse([]byte(""))
	if tree.Root.Kind() != KindDocument {
		t.Fatalf("expected document root, got %v", tree.Root.Kind())
	}
	if len(tree.Root.Children()) != 0 {
		t.Fatalf("expected no children, got %d", len(tree.Root.Children()))
	}
}

func TestParseOpenDirective(t *testing.T) {
	tree := Parse([]byte("2024-01-01 open Assets:Checking USD\n"))
	children := tree.Root.Children()
	if len(children) != 1 {
		t.Fatalf("expected 1 directive, got %d", len(children))
	}
	n := children[0]
	if n.Kind() != KindOpen {
		t.Fatalf("expected open, got %v", n.Kind())
	}
	acct := n.ChildByFieldName(FieldAccount)
	if acct == nil || acct.Value() != "Assets:Checking" {
		t.Fatalf("expected account Assets:Checking, got %+v", acct)
	}
}

func TestParseTransactionWithPostings(t *testing.T) {
	src := `2024-03-14 * "Market" "Groceries" #food ^receipt1
  Assets:Checking        -45.00 USD
  Expenses:Groceries
`
	tree := Parse([]byte(src))
	children := tree.Root.Children()
	if len(children) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(children))
	}
	txn := children[0]
	if txn.Kind() != KindTransaction {
		t.Fatalf("expected transaction, got %v", txn.Kind())
	}
	flag := txn.ChildByFieldName(FieldFlag)
	if flag == nil || flag.Value() != "*" {
		t.Fatalf("expected flag *, got %+v", flag)
	}
	payee := txn.ChildByFieldName(FieldPayee)
	narr := txn.ChildByFieldName(FieldNarration)
	if payee == nil || payee.Value() != "Market" {
		t.Fatalf("expected payee Market, got %+v", payee)
	}
	if narr == nil || narr.Value() != "Groceries" {
		t.Fatalf("expected narration Groceries, got %+v", narr)
	}
	tags := FindAll(txn, KindTag)
	if len(tags) != 1 || tags[0].Value() != "food" {
		t.Fatalf("expected tag food, got %+v", tags)
	}
	links := FindAll(txn, KindLink)
	if len(links) != 1 || links[0].Value() != "receipt1" {
		t.Fatalf("expected link receipt1, got %+v", links)
	}

	postings := Postings(txn)
	if len(postings) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(postings))
	}
	p0Acct := postings[0].ChildByFieldName(FieldAccount)
	if p0Acct == nil || p0Acct.Value() != "Assets:Checking" {
		t.Fatalf("expected Assets:Checking, got %+v", p0Acct)
	}
	amt := postings[0].ChildByFieldName(FieldAmount)
	if amt == nil || amt.Kind() != KindAmount {
		t.Fatalf("expected complete amount, got %+v", amt)
	}

	p1Acct := postings[1].ChildByFieldName(FieldAccount)
	if p1Acct == nil || p1Acct.Value() != "Expenses:Groceries" {
		t.Fatalf("expected Expenses:Groceries, got %+v", p1Acct)
	}
	if postings[1].ChildByFieldName(FieldAmount) != nil {
		t.Fatalf("expected no amount on elided posting")
	}
}

func TestParsePostingWithPrice(t *testing.T) {
	src := `2024-03-14 * "Broker" "Buy shares"
  Assets:Brokerage        10 AAPL @ 150.00 USD
  Assets:Checking
`
	tree := Parse([]byte(src))
	txn := tree.Root.Children()[0]
	postings := Postings(txn)
	price := postings[0].ChildByFieldName(FieldPrice)
	if price == nil {
		t.Fatalf("expected price annotation")
	}
	if price.Kind() != KindPrice2 {
		t.Fatalf("expected price_annotation kind, got %v", price.Kind())
	}
}

func TestParseBalanceDirective(t *testing.T) {
	tree := Parse([]byte("2024-01-01 balance Assets:Checking 100.00 USD\n"))
	n := tree.Root.Children()[0]
	if n.Kind() != KindBalance {
		t.Fatalf("expected balance, got %v", n.Kind())
	}
	amt := n.ChildByFieldName(FieldAmount)
	if amt == nil {
		t.Fatalf("expected amount")
	}
}

func TestParseIncludeDirective(t *testing.T) {
	tree := Parse([]byte(`include "accounts.beancount"` + "\n"))
	n := tree.Root.Children()[0]
	if n.Kind() != KindInclude {
		t.Fatalf("expected include, got %v", n.Kind())
	}
	path := n.ChildByFieldName(FieldPath)
	if path == nil || path.Value() != "accounts.beancount" {
		t.Fatalf("expected path accounts.beancount, got %+v", path)
	}
}

func TestParseCommentLine(t *testing.T) {
	tree := Parse([]byte("; just a comment\n"))
	n := tree.Root.Children()[0]
	if n.Kind() != KindComment {
		t.Fatalf("expected comment, got %v", n.Kind())
	}
}

func TestParseOrphanIndentedLineIsError(t *testing.T) {
	tree := Parse([]byte("  Assets:Checking 10 USD\n"))
	n := tree.Root.Children()[0]
	if n.Kind() != KindError {
		t.Fatalf("expected ERROR, got %v", n.Kind())
	}
	if len(tree.Errors) != 1 {
		t.Fatalf("expected 1 recorded syntax error, got %d", len(tree.Errors))
	}
}

func TestParseNoTrailingNewline(t *testing.T) {
	tree := Parse([]byte("2024-01-01 open Assets:Checking USD"))
	if len(tree.Root.Children()) != 1 {
		t.Fatalf("expected directive parsed without trailing newline")
	}
}

func TestInnermostNodeAtCursor(t *testing.T) {
	src := "2024-01-01 open Assets:Checking USD\n"
	tree := Parse([]byte(src))
	acct := tree.Root.Children()[0].ChildByFieldName(FieldAccount)
	mid := acct.StartByte() + 2
	found := InnermostNodeAt(tree.Root, mid)
	if found.Kind() != KindAccount {
		t.Fatalf("expected account node at cursor, got %v", found.Kind())
	}
}
