package syntax

// This file provides tree queries as a set of typed Go walk/finder functions
// rather than a generic pattern-matching query language. A single
// hand-rolled grammar (see node.go) never needs tree-sitter's
// cross-language query generality, so a Kind-predicate walk gives callers
// the same capability with far less machinery (see DESIGN.md).

// Walk calls visit for every node in the tree, in document order
// (pre-order), including root itself.
func Walk(root *Node, visit func(*Node)) {
	if root == nil {
		return
	}
	visit(root)
	for _, c := range root.Children() {
		Walk(c, visit)
	}
}

// FindAll returns every node of the given kind in document order.
func FindAll(root *Node, kind Kind) []*Node {
	var out []*Node
	Walk(root, func(n *Node) {
		if n.Kind() == kind {
			out = append(out, n)
		}
	})
	return out
}

// FindAllAny returns every node whose kind is in kinds, in document order.
func FindAllAny(root *Node, kinds ...Kind) []*Node {
	set := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	var out []*Node
	Walk(root, func(n *Node) {
		if set[n.Kind()] {
			out = append(out, n)
		}
	})
	return out
}

// Ancestors returns the chain of ancestor nodes from n's parent up to the
// tree root, root last.
func Ancestors(n *Node) []*Node {
	var out []*Node
	for p := n.Parent(); p != nil; p = p.Parent() {
		out = append(out, p)
	}
	return out
}

// EnclosingTransaction walks up from n and returns the nearest ancestor
// transaction node, or nil if n isn't inside one. Used by completion and
// inlay-hint providers to find the transaction a posting/cursor belongs to.
func EnclosingTransaction(n *Node) *Node {
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.Kind() == KindTransaction {
			return cur
		}
	}
	return nil
}

// Postings returns the direct posting children of a transaction node.
func Postings(txn *Node) []*Node {
	if txn == nil {
		return nil
	}
	var out []*Node
	for _, c := range txn.Children() {
		if c.Kind() == KindPosting {
			out = append(out, c)
		}
	}
	return out
}
