// Package symbols locates the symbol at a cursor, enumerates every
// occurrence of a given (kind, name) pair across the forest, and
// computes rename WorkspaceEdits.
//
// There is no stored index: every query walks the trees of all forest
// documents, looking only at the renameable/referenceable occurrence
// kinds (account/payee/narration/tag/link), since beancount references
// cross file boundaries via include.
package symbols

import (
	"regexp"

	"github.com/polarmutex/beancount-language-server/internal/forest"
	"github.com/polarmutex/beancount-language-server/internal/lsp"
	"github.com/polarmutex/beancount-language-server/internal/syntax"
)

// Kind is one of the renameable/referenceable occurrence kinds.
type Kind int

const (
	KindAccount Kind = iota
	KindPayee
	KindNarration
	KindTag
	KindLink
)

// Occurrence is one location a symbol is used.
type Occurrence struct {
	URI   string
	Range lsp.Range
	Node  *syntax.Node
}

// AtCursor locates the innermost identifier at (uri, position) and
// classifies its kind and name.
// Returns ok=false if the cursor isn't on a renameable/referenceable
// token (e.g. a date or punctuation).
func AtCursor(doc *forest.Document, byteOffset int) (kind Kind, name string, ok bool) {
	if doc == nil || doc.Tree == nil {
		return 0, "", false
	}
	node := syntax.InnermostNodeAt(doc.Tree.Root, byteOffset)
	if node == nil {
		return 0, "", false
	}
	switch node.Kind() {
	case syntax.KindAccount:
		return KindAccount, node.Value(), true
	case syntax.KindTag:
		return KindTag, node.Value(), true
	case syntax.KindLink:
		return KindLink, node.Value(), true
	case syntax.KindString:
		parent := node.Parent()
		if parent != nil && parent.Kind() == syntax.KindTransaction {
			if parent.ChildByFieldName(syntax.FieldPayee) == node {
				return KindPayee, node.Value(), true
			}
			if parent.ChildByFieldName(syntax.FieldNarration) == node {
				return KindNarration, node.Value(), true
			}
		}
	}
	return 0, "", false
}

// References enumerates every occurrence of (kind, name) across every
// document in the forest, in forest-iteration order.
func References(f *forest.Forest, kind Kind, name string) []Occurrence {
	var out []Occurrence
	for _, doc := range f.All() {
		if doc.Tree == nil {
			continue
		}
		for _, n := range occurrenceNodes(doc.Tree.Root, kind) {
			if n.Value() != name {
				continue
			}
			out = append(out, Occurrence{
				URI:   doc.URI,
				Range: nodeRange(doc, n),
				Node:  n,
			})
		}
	}
	return out
}

func occurrenceNodes(root *syntax.Node, kind Kind) []*syntax.Node {
	switch kind {
	case KindAccount:
		return syntax.FindAll(root, syntax.KindAccount)
	case KindTag:
		return syntax.FindAll(root, syntax.KindTag)
	case KindLink:
		return syntax.FindAll(root, syntax.KindLink)
	case KindPayee, KindNarration:
		var out []*syntax.Node
		for _, txn := range syntax.FindAll(root, syntax.KindTransaction) {
			field := syntax.FieldNarration
			if kind == KindPayee {
				field = syntax.FieldPayee
			}
			if n := txn.ChildByFieldName(field); n != nil {
				out = append(out, n)
			}
		}
		return out
	}
	return nil
}

func nodeRange(doc *forest.Document, n *syntax.Node) lsp.Range {
	startLine, startCol := doc.Text.OffsetToPosition(n.StartByte())
	endLine, endCol := doc.Text.OffsetToPosition(n.EndByte())
	return lsp.Range{
		Start: lsp.Position{Line: startLine, Character: startCol},
		End:   lsp.Position{Line: endLine, Character: endCol},
	}
}

// namePattern validates a proposed new name against its kind's
// syntactic predicate, the rename precondition.
var namePattern = map[Kind]*regexp.Regexp{
	KindAccount: regexp.MustCompile(`^[A-Z][A-Za-z0-9-]*(:[A-Z][A-Za-z0-9-]*)+$`),
	KindTag:     regexp.MustCompile(`^[A-Za-z0-9\-_/.]+$`),
	KindLink:    regexp.MustCompile(`^[A-Za-z0-9\-_/.]+$`),
}

// ValidateName checks the rename precondition for kind. Payee and
// narration accept any non-empty string since they're free-text
// string literals, not structured identifiers.
func ValidateName(kind Kind, newName string) bool {
	if newName == "" {
		return false
	}
	if re, ok := namePattern[kind]; ok {
		return re.MatchString(newName)
	}
	return true
}

// Renameable reports whether kind supports rename at all (dates, for
// instance, never reach this package since AtCursor never classifies
// one — this exists for callers that already have a Kind from
// elsewhere and need the same rule applied explicitly).
func Renameable(kind Kind) bool {
	switch kind {
	case KindAccount, KindPayee, KindNarration, KindTag, KindLink:
		return true
	default:
		return false
	}
}

// Rename computes the WorkspaceEdit for renaming every occurrence of
// (kind, name) to newName, or an error if the rename is rejected.
func Rename(f *forest.Forest, kind Kind, name, newName string) (*lsp.WorkspaceEdit, error) {
	if !Renameable(kind) {
		return nil, errRenameRejected("symbol kind is not renameable")
	}
	if !ValidateName(kind, newName) {
		return nil, errRenameRejected("new name does not satisfy the target kind's syntax")
	}

	// Tag/link ranges cover the sigil, so it is written back with the name.
	text := newName
	switch kind {
	case KindTag:
		text = "#" + newName
	case KindLink:
		text = "^" + newName
	}

	occurrences := References(f, kind, name)
	edit := &lsp.WorkspaceEdit{Changes: make(map[string][]lsp.TextEdit)}
	for _, occ := range occurrences {
		edit.Changes[occ.URI] = append(edit.Changes[occ.URI], lsp.TextEdit{Range: occ.Range, NewText: text})
	}
	return edit, nil
}

type renameError string

func (e renameError) Error() string { return string(e) }

func errRenameRejected(msg string) error { return renameError(msg) }
