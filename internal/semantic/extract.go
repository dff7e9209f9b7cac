// Package semantic derives the per-document record set: defined and
// referenced accounts, payees, narrations, currencies, tags, links,
// and a byte-indexed transaction list. It runs once per successful
// parse, deriving everything from the tree in a single pass.
package semantic

import "github.com/polarmutex/beancount-language-server/internal/syntax"

// AccountOpen records where an account was declared open, along with
// its constraint currencies if any were given.
type AccountOpen struct {
	Name       string
	Currencies []string
	Node       *syntax.Node
}

// AccountRef is one occurrence of an account name anywhere in a
// document (an open/close/balance/pad account, or a posting account).
type AccountRef struct {
	Name string
	Node *syntax.Node
}

// StringOccurrence is one occurrence of a payee or narration literal.
type StringOccurrence struct {
	Value string
	Node  *syntax.Node
}

// TagOccurrence and LinkOccurrence record one use of a #tag or ^link.
type TagOccurrence struct {
	Name string
	Node *syntax.Node
}

type LinkOccurrence struct {
	Name string
	Node *syntax.Node
}

// Transaction indexes one transaction's byte span alongside its
// postings, for fast lookup by inlay hints and completion.
type Transaction struct {
	Node     *syntax.Node
	Postings []*syntax.Node
}

// Document is the full derived record set for one parsed file.
type Document struct {
	AccountsDefined   []AccountOpen
	AccountsReferenced []AccountRef
	Payees            []StringOccurrence
	Narrations        []StringOccurrence
	Currencies        map[string]bool
	Tags              []TagOccurrence
	Links             []LinkOccurrence
	Transactions      []Transaction
}

// Extract walks a parsed tree once and derives every record Document
// holds.
func Extract(tree *syntax.Tree) *Document {
	doc := &Document{Currencies: make(map[string]bool)}
	if tree == nil || tree.Root == nil {
		return doc
	}

	for _, n := range tree.Root.Children() {
		switch n.Kind() {
		case syntax.KindOpen:
			open := AccountOpen{Node: n}
			if acct := n.ChildByFieldName(syntax.FieldAccount); acct != nil {
				open.Name = acct.Value()
				doc.AccountsReferenced = append(doc.AccountsReferenced, AccountRef{Name: acct.Value(), Node: acct})
			}
			for _, c := range n.Children() {
				if c.Kind() == syntax.KindCurrency {
					open.Currencies = append(open.Currencies, c.Value())
					doc.Currencies[c.Value()] = true
				}
			}
			doc.AccountsDefined = append(doc.AccountsDefined, open)
		case syntax.KindClose, syntax.KindBalance, syntax.KindPad, syntax.KindNote, syntax.KindDocumentDir:
			if acct := n.ChildByFieldName(syntax.FieldAccount); acct != nil {
				doc.AccountsReferenced = append(doc.AccountsReferenced, AccountRef{Name: acct.Value(), Node: acct})
			}
			extractAmountCurrency(n, doc)
		case syntax.KindPrice:
			if cur := n.ChildByFieldName(syntax.FieldCurrency); cur != nil {
				doc.Currencies[cur.Value()] = true
			}
			extractAmountCurrency(n, doc)
		case syntax.KindCommodity:
			if cur := n.ChildByFieldName(syntax.FieldCurrency); cur != nil {
				doc.Currencies[cur.Value()] = true
			}
		case syntax.KindTransaction:
			txn := Transaction{Node: n}
			if payee := n.ChildByFieldName(syntax.FieldPayee); payee != nil {
				doc.Payees = append(doc.Payees, StringOccurrence{Value: payee.Value(), Node: payee})
			}
			if narr := n.ChildByFieldName(syntax.FieldNarration); narr != nil {
				doc.Narrations = append(doc.Narrations, StringOccurrence{Value: narr.Value(), Node: narr})
			}
			for _, c := range n.Children() {
				switch c.Kind() {
				case syntax.KindTag:
					doc.Tags = append(doc.Tags, TagOccurrence{Name: c.Value(), Node: c})
				case syntax.KindLink:
					doc.Links = append(doc.Links, LinkOccurrence{Name: c.Value(), Node: c})
				case syntax.KindPosting:
					txn.Postings = append(txn.Postings, c)
					if acct := c.ChildByFieldName(syntax.FieldAccount); acct != nil {
						doc.AccountsReferenced = append(doc.AccountsReferenced, AccountRef{Name: acct.Value(), Node: acct})
					}
					extractAmountCurrency(c, doc)
					for _, pc := range c.Children() {
						switch pc.Kind() {
						case syntax.KindTag:
							doc.Tags = append(doc.Tags, TagOccurrence{Name: pc.Value(), Node: pc})
						case syntax.KindLink:
							doc.Links = append(doc.Links, LinkOccurrence{Name: pc.Value(), Node: pc})
						}
					}
				}
			}
			doc.Transactions = append(doc.Transactions, txn)
		}
	}

	return doc
}

// extractAmountCurrency records the currency of a node's amount/price
// child (if present) into the document's currency set.
func extractAmountCurrency(n *syntax.Node, doc *Document) {
	amt := n.ChildByFieldName(syntax.FieldAmount)
	if amt != nil {
		if cur := amt.ChildByFieldName(syntax.FieldCurrency); cur != nil {
			doc.Currencies[cur.Value()] = true
		}
	}
	if price := n.ChildByFieldName(syntax.FieldPrice); price != nil {
		for _, c := range price.Children() {
			if c.Kind() == syntax.KindAmount || c.Kind() == syntax.KindIncAmount {
				if cur := c.ChildByFieldName(syntax.FieldCurrency); cur != nil {
					doc.Currencies[cur.Value()] = true
				}
			}
		}
	}
}

// AccountNames returns the discovery-ordered list of distinct account
// names a document defines (open directives first) or references
// (close/balance/pad/note/document directives and postings), used as the
// completion candidate
// pool before fuzzy ranking narrows it down.
func (d *Document) AccountNames() []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range d.AccountsDefined {
		if a.Name != "" && !seen[a.Name] {
			seen[a.Name] = true
			out = append(out, a.Name)
		}
	}
	for _, a := range d.AccountsReferenced {
		if a.Name != "" && !seen[a.Name] {
			seen[a.Name] = true
			out = append(out, a.Name)
		}
	}
	return out
}
