// Package syntax parses Beancount source into a typed, position-addressable
// syntax tree: parse(text) -> tree and typed-node queries. There is no
// incremental edit API; every change is handled by parsing the full text
// again.
//
// No tree-sitter grammar for Beancount exists in the wider Go ecosystem (see
// DESIGN.md), so this package is a hand-written recursive-descent
// lexer/parser. It deliberately exposes a tree-sitter-shaped Node API (Kind,
// StartPosition/EndPosition, ChildByFieldName, Children) so the rest of
// the system — semantic extraction, completion, formatting, inlay hints —
// consumes the same shape of tree a real tree-sitter parser would produce.
package syntax

// Point is a (row, column) position where column is a byte offset within
// the line, matching go-tree-sitter's tree_sitter.Point and the byte-column
// positions the syntax layer works in.
type Point struct {
	Row    int
	Column int
}

// Kind identifies the grammar production a Node represents.
type Kind string

const (
	KindDocument    Kind = "document"
	KindOpen        Kind = "open"
	KindClose       Kind = "close"
	KindBalance     Kind = "balance"
	KindPad         Kind = "pad"
	KindEvent       Kind = "event"
	KindQuery       Kind = "query"
	KindNote        Kind = "note"
	KindDocumentDir Kind = "document_directive"
	KindCommodity   Kind = "commodity"
	KindPrice       Kind = "price"
	KindTransaction Kind = "transaction"
	KindInclude     Kind = "include"
	KindOption      Kind = "option"
	KindPragma      Kind = "pragma"
	KindPosting     Kind = "posting"
	KindDate        Kind = "date"
	KindAccount     Kind = "account"
	KindString      Kind = "string"
	KindCurrency    Kind = "currency"
	KindNumber      Kind = "number"
	KindTag         Kind = "tag"
	KindLink        Kind = "link"
	KindFlag        Kind = "flag"
	KindTxnKeyword  Kind = "txn_keyword"
	KindAmount      Kind = "amount"
	KindIncAmount   Kind = "incomplete_amount"
	KindPrice2      Kind = "price_annotation"
	KindComment     Kind = "comment"
	KindError       Kind = "ERROR"
)

// Field names used with ChildByFieldName, mirroring the field vocabulary a
// real Beancount tree-sitter grammar would expose.
const (
	FieldDate      = "date"
	FieldAccount   = "account"
	FieldFlag      = "flag"
	FieldPayee     = "payee"
	FieldNarration = "narration"
	FieldNumber    = "number"
	FieldCurrency  = "currency"
	FieldAmount    = "amount"
	FieldPrice     = "price"
	FieldKeyword   = "keyword"
	FieldPath      = "path"
)

// Node is one element of a parsed tree. Byte spans are half-open
// [StartByte, EndByte). Value holds the node's already-decoded payload
// (e.g. an unquoted string literal, a bare tag name without its '#'
// sigil, a bare account name) so callers rarely need to re-slice Source.
type Node struct {
	kind       Kind
	startByte  int
	endByte    int
	startPoint Point
	endPoint   Point
	value      string
	fields     map[string]*Node
	children   []*Node
	parent     *Node
}

// Kind returns the node's grammar production.
func (n *Node) Kind() Kind { return n.kind }

// StartByte returns the node's starting byte offset.
func (n *Node) StartByte() int { return n.startByte }

// EndByte returns the node's ending byte offset (exclusive).
func (n *Node) EndByte() int { return n.endByte }

// StartPosition returns the node's starting (row, byte column).
func (n *Node) StartPosition() Point { return n.startPoint }

// EndPosition returns the node's ending (row, byte column).
func (n *Node) EndPosition() Point { return n.endPoint }

// Value returns the node's decoded payload, or "" for nodes that are pure
// containers (e.g. KindDocument, KindTransaction).
func (n *Node) Value() string { return n.value }

// Parent returns the node's parent, or nil for the tree root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns all direct children in document order.
func (n *Node) Children() []*Node { return n.children }

// ChildByFieldName returns the child registered under the given field
// name, or nil if the field isn't present on this node.
func (n *Node) ChildByFieldName(name string) *Node {
	if n.fields == nil {
		return nil
	}
	return n.fields[name]
}

func (n *Node) addChild(c *Node) {
	c.parent = n
	n.children = append(n.children, c)
}

func (n *Node) setField(name string, c *Node) {
	if n.fields == nil {
		n.fields = make(map[string]*Node)
	}
	n.fields[name] = c
	c.parent = n
}

// Contains reports whether byte offset is within [StartByte, EndByte].
// The upper bound is inclusive so that a cursor placed exactly at a
// node's end byte (the common case while typing) still matches it.
func (n *Node) Contains(byteOffset int) bool {
	return byteOffset >= n.startByte && byteOffset <= n.endByte
}

// Tree is a parsed document: a root Node plus any syntax errors found
// along the way.
type Tree struct {
	Root   *Node
	Errors []SyntaxError
}

// SyntaxError records a parse failure anchored to a byte position.
type SyntaxError struct {
	Point   Point
	Byte    int
	Message string
}

// InnermostNodeAt returns the most deeply nested node whose span contains
// byteOffset, used by completion/references/inlay-hints to locate the
// syntax context at the cursor. Children are expected to be non-overlapping
// and in document order; every field node is also reachable as a child, so
// walking Children alone is sufficient.
func InnermostNodeAt(root *Node, byteOffset int) *Node {
	if root == nil || !root.Contains(byteOffset) {
		return nil
	}
	for _, c := range root.children {
		if c.Contains(byteOffset) {
			if found := InnermostNodeAt(c, byteOffset); found != nil {
				return found
			}
		}
	}
	return root
}
