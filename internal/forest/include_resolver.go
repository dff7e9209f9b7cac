package forest

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/polarmutex/beancount-language-server/internal/syntax"
)

// IncludePath is one include directive's resolved file set: the glob
// pattern it named and the absolute file paths that matched it, in
// the order bean-check would load them.
type IncludePath struct {
	Node    *syntax.Node
	Pattern string
	Matches []string
}

// ResolveIncludes finds every `include "pattern"` directive in doc's
// tree and glob-expands it relative to baseDir: scan directives,
// resolve against the base directory, record candidates — generalized
// to Beancount's glob-capable include patterns.
func ResolveIncludes(doc *Document, baseDir string) []IncludePath {
	if doc.Tree == nil {
		return nil
	}
	var out []IncludePath
	for _, n := range syntax.FindAll(doc.Tree.Root, syntax.KindInclude) {
		pathNode := n.ChildByFieldName(syntax.FieldPath)
		if pathNode == nil || pathNode.Value() == "" {
			continue
		}
		pattern := pathNode.Value()
		abs := pattern
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(baseDir, pattern)
		}
		matches, err := doublestar.FilepathGlob(abs)
		if err != nil {
			matches = nil
		}
		out = append(out, IncludePath{Node: n, Pattern: pattern, Matches: matches})
	}
	return out
}

// Worklist performs a breadth-first traversal of the include graph
// starting from entry documents, loading and parsing every reachable
// file via loadText, and returns every URI it visited. A file that fails
// to load is skipped: it is still in the returned URIs but is not added
// to the forest, and no diagnostic is recorded for the include directive
// that named it.
func (f *Forest) Worklist(entryURIs []string, baseDirOf func(uri string) string, uriFromPath func(path string) string, loadText func(uri string) (string, error)) []string {
	visited := make(map[string]bool)
	queue := append([]string{}, entryURIs...)

	for len(queue) > 0 {
		uri := queue[0]
		queue = queue[1:]
		if visited[uri] {
			continue
		}
		visited[uri] = true

		doc, err := f.Ensure(uri, func() (string, error) { return loadText(uri) })
		if err != nil || doc == nil {
			continue
		}

		baseDir := baseDirOf(uri)
		for _, inc := range ResolveIncludes(doc, baseDir) {
			for _, m := range inc.Matches {
				incURI := uriFromPath(m)
				if !visited[incURI] {
					queue = append(queue, incURI)
				}
			}
		}
	}

	out := make([]string, 0, len(visited))
	for u := range visited {
		out = append(out, u)
	}
	return out
}
