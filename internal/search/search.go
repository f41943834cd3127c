// Package search filters the cached series list for the library view.
// Purely local: the cache is the source, no server round-trip.
package search

import (
	"sort"
	"strings"
	"sync"

	fuzzysearch "github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sahilm/fuzzy"

	"github.com/kagemura/tosho/internal/domain"
)

// Result is a filter hit with match metadata for highlighting
type Result struct {
	Series         domain.Series
	MatchedIndexes []int // Character positions that matched
	Score          int   // Match score (higher is better)
}

// seriesIndex implements sahilm/fuzzy.Source for zero-allocation matching
type seriesIndex struct {
	series      []domain.Series
	lowerTitles []string // Pre-computed lowercase titles
}

func (idx *seriesIndex) String(i int) string { return idx.lowerTitles[i] }
func (idx *seriesIndex) Len() int            { return len(idx.series) }

// Filter ranks cached series against a query: substring hits first, then
// fuzzy matches. An empty query returns everything in original order.
type Filter struct {
	mu  sync.RWMutex
	idx *seriesIndex
}

// NewFilter creates an empty filter
func NewFilter() *Filter {
	return &Filter{idx: &seriesIndex{}}
}

// Reindex replaces the filter's series set
func (f *Filter) Reindex(series []domain.Series) {
	lower := make([]string, len(series))
	for i, s := range series {
		lower[i] = strings.ToLower(s.Title)
	}
	f.mu.Lock()
	f.idx = &seriesIndex{series: series, lowerTitles: lower}
	f.mu.Unlock()
}

// Apply returns the series matching query, best matches first
func (f *Filter) Apply(query string) []Result {
	f.mu.RLock()
	idx := f.idx
	f.mu.RUnlock()

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		out := make([]Result, len(idx.series))
		for i, s := range idx.series {
			out[i] = Result{Series: s}
		}
		return out
	}

	matches := fuzzy.FindFrom(query, idx)

	out := make([]Result, 0, len(matches))
	for _, m := range matches {
		out = append(out, Result{
			Series:         idx.series[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		})
	}

	// Substring hits outrank pure fuzzy matches
	sort.SliceStable(out, func(i, j int) bool {
		iSub := strings.Contains(strings.ToLower(out[i].Series.Title), query)
		jSub := strings.Contains(strings.ToLower(out[j].Series.Title), query)
		if iSub != jSub {
			return iSub
		}
		return out[i].Score > out[j].Score
	})
	return out
}

// MatchByTitle resolves a loosely-typed title to a series using normalized
// fold matching (command-line lookups: `tosho list "one piece"`)
func MatchByTitle(query string, series []domain.Series) (domain.Series, bool) {
	titles := make([]string, len(series))
	for i, s := range series {
		titles[i] = s.Title
	}
	ranks := fuzzysearch.RankFindNormalizedFold(query, titles)
	if len(ranks) == 0 {
		return domain.Series{}, false
	}
	sort.Sort(ranks)
	best := ranks[0]
	return series[best.OriginalIndex], true
}
