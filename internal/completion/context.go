// Package completion implements a context-sensitive completion engine:
// classify the cursor's syntactic context, derive the set of expected
// token kinds, and merge ranked candidates from per-kind providers.
//
// Classification uses a field-lookup-with-fallback idiom: check the
// node's registered fields first, and only fall back to a broader
// ancestor walk when no field applies.
package completion

import (
	"github.com/polarmutex/beancount-language-server/internal/syntax"
)

// Structure is the cursor's syntactic context.
type Structure int

const (
	StructureDocumentRoot Structure = iota
	StructureTransaction
	StructurePosting
	StructureOpenDirective
	StructureBalanceDirective
	StructurePriceDirective
)

// Kind is one of the expected-token categories a cursor position can
// imply; a cursor position can imply more than one simultaneously
// (e.g. a transaction header implies Payee and Narration and Tag).
type Kind int

const (
	KindDate Kind = iota
	KindTxnKind
	KindFlag
	KindPayee
	KindNarration
	KindAccount
	KindCurrency
	KindAmount
	KindTag
	KindLink
)

// Context is the fully classified cursor position: its structure,
// the expected kinds, and the already-typed prefix to filter against.
type Context struct {
	Structure    Structure
	ExpectedKind []Kind
	Prefix       string
	Node         *syntax.Node
}

// Classify locates the innermost node at the column immediately before
// the cursor, walks ancestors to classify structure, and derives
// expected kinds plus the typed prefix.
func Classify(tree *syntax.Tree, source []byte, byteOffset int) Context {
	lookupOffset := byteOffset - 1
	if lookupOffset < 0 {
		lookupOffset = 0
	}

	var node *syntax.Node
	if tree != nil && tree.Root != nil {
		node = syntax.InnermostNodeAt(tree.Root, lookupOffset)
	}

	prefix := extractPrefix(source, byteOffset)

	if node == nil {
		return Context{Structure: StructureDocumentRoot, ExpectedKind: []Kind{KindDate}, Prefix: prefix}
	}

	txn := syntax.EnclosingTransaction(node)
	switch {
	case txn != nil && insidePosting(node):
		return Context{Structure: StructurePosting, ExpectedKind: []Kind{KindAccount, KindCurrency, KindAmount, KindTag, KindLink}, Prefix: prefix, Node: node}
	case txn != nil:
		return Context{Structure: StructureTransaction, ExpectedKind: txnHeaderKinds(node, txn), Prefix: prefix, Node: node}
	}

	for cur := node; cur != nil; cur = cur.Parent() {
		switch cur.Kind() {
		case syntax.KindOpen:
			return Context{Structure: StructureOpenDirective, ExpectedKind: []Kind{KindAccount, KindCurrency}, Prefix: prefix, Node: node}
		case syntax.KindBalance:
			return Context{Structure: StructureBalanceDirective, ExpectedKind: []Kind{KindAccount, KindAmount, KindCurrency}, Prefix: prefix, Node: node}
		case syntax.KindPrice:
			return Context{Structure: StructurePriceDirective, ExpectedKind: []Kind{KindCurrency, KindAmount}, Prefix: prefix, Node: node}
		}
	}

	if looksLikeDateStart(prefix) || isBlankLineStart(source, byteOffset) {
		return Context{Structure: StructureDocumentRoot, ExpectedKind: []Kind{KindDate}, Prefix: prefix, Node: node}
	}
	return Context{Structure: StructureDocumentRoot, ExpectedKind: []Kind{KindTxnKind}, Prefix: prefix, Node: node}
}

func insidePosting(n *syntax.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.Kind() == syntax.KindPosting {
			return true
		}
		if cur.Kind() == syntax.KindTransaction {
			return false
		}
	}
	return false
}

// txnHeaderKinds derives the expected kinds for a cursor inside a
// transaction header line (between the date and the posting block):
// flag position directly after the date, then payee/narration strings,
// then tags/links.
func txnHeaderKinds(node, txn *syntax.Node) []Kind {
	payee := txn.ChildByFieldName(syntax.FieldPayee)
	narration := txn.ChildByFieldName(syntax.FieldNarration)

	if node.Kind() == syntax.KindFlag || node.Kind() == syntax.KindDate {
		return []Kind{KindFlag}
	}
	if node.Kind() == syntax.KindString {
		if payee == nil || narration == nil {
			return []Kind{KindPayee, KindNarration}
		}
		return []Kind{KindNarration}
	}
	if node.Kind() == syntax.KindTag {
		return []Kind{KindTag}
	}
	if node.Kind() == syntax.KindLink {
		return []Kind{KindLink}
	}
	return []Kind{KindPayee, KindNarration, KindTag, KindLink}
}

// extractPrefix returns the run of non-whitespace characters
// immediately preceding byteOffset on the same line.
func extractPrefix(source []byte, byteOffset int) string {
	if byteOffset > len(source) {
		byteOffset = len(source)
	}
	i := byteOffset
	for i > 0 && source[i-1] != ' ' && source[i-1] != '\t' && source[i-1] != '\n' {
		i--
	}
	return string(source[i:byteOffset])
}

func looksLikeDateStart(prefix string) bool {
	if len(prefix) == 0 {
		return false
	}
	for i := 0; i < len(prefix) && i < 4; i++ {
		if prefix[i] < '0' || prefix[i] > '9' {
			return false
		}
	}
	return true
}

func isBlankLineStart(source []byte, byteOffset int) bool {
	i := byteOffset - 1
	for i >= 0 && source[i] != '\n' {
		if source[i] != ' ' && source[i] != '\t' {
			return false
		}
		i--
	}
	return true
}
