package semantic

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

// FuzzyMatcher ranks candidate account names against a partially-typed
// prefix for completion. It uses go-edlib Jaro-Winkler, producing a
// similarity score in [0,1] that is threshold-gated.
type FuzzyMatcher struct {
	threshold float64
}

// NewFuzzyMatcher creates a matcher with the given minimum similarity
// threshold. A threshold outside [0,1] resets to the default of 0.80.
func NewFuzzyMatcher(threshold float64) *FuzzyMatcher {
	if threshold < 0 || threshold > 1 {
		threshold = 0.80
	}
	return &FuzzyMatcher{threshold: threshold}
}

// Similarity returns the Jaro-Winkler similarity of query and candidate
// in [0,1]. An empty query, or a query that is a case-insensitive prefix
// of candidate, always scores 1.0 regardless of the algorithm,
// since prefix typing is the overwhelmingly common completion case.
func (fm *FuzzyMatcher) Similarity(query, candidate string) float64 {
	if query == "" {
		return 1.0
	}
	if strings.HasPrefix(strings.ToLower(candidate), strings.ToLower(query)) {
		return 1.0
	}
	score, err := edlib.StringsSimilarity(query, candidate, edlib.JaroWinkler)
	if err != nil {
		return 0.0
	}
	return float64(score)
}

// Match is a candidate account name with its computed similarity.
type Match struct {
	Name  string
	Score float64
}

// Rank scores every candidate against query, drops anything below the
// matcher's threshold, and returns the rest sorted by descending score
// (ties broken alphabetically for a stable completion list), capped at
// limit entries.
func (fm *FuzzyMatcher) Rank(query string, candidates []string, limit int) []Match {
	var matches []Match
	for _, c := range candidates {
		score := fm.Similarity(query, c)
		if score >= fm.threshold {
			matches = append(matches, Match{Name: c, Score: score})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Name < matches[j].Name
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
