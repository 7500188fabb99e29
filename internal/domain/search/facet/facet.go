// Package facet computes value-count breakdowns over a candidate set for
// filter UI affordances, with standard drill-down semantics.
package facet

import (
	"sort"

	"github.com/maknoon-cloud/qurandex/internal/domain/search/candidate"
	"github.com/maknoon-cloud/qurandex/internal/domain/search/filter"
)

// Count is one option value with its document count.
type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Result maps a metadata-type name to its value distribution, ordered by
// count descending, then value ascending. Zero counts are omitted.
type Result map[string][]Count

// Compute builds facets over the retrieved candidate set (not the corpus).
// The distribution for type T is counted over candidates passing all active
// filters except those on T, so selecting a value does not collapse its own
// facet to the selection.
func Compute(candidates []candidate.Candidate, filters filter.Map) Result {
	// Facet types = every type present on any candidate, plus filtered types.
	types := map[string]bool{}
	for i := range candidates {
		for metaType := range candidates[i].Document().Metadata() {
			types[metaType] = true
		}
	}
	for _, metaType := range filters.Types() {
		types[metaType] = true
	}

	res := make(Result, len(types))
	for metaType := range types {
		counts := countType(candidates, filters, metaType)
		if len(counts) > 0 {
			res[metaType] = counts
		}
	}
	return res
}

func countType(candidates []candidate.Candidate, filters filter.Map, metaType string) []Count {
	byValue := map[string]int{}
	for i := range candidates {
		doc := candidates[i].Document()
		if !filters.MatchesExcept(doc, metaType) {
			continue
		}
		for _, v := range doc.Metadata()[metaType] {
			byValue[v]++
		}
	}

	counts := make([]Count, 0, len(byValue))
	for v, n := range byValue {
		counts = append(counts, Count{Value: v, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Value < counts[j].Value
	})
	return counts
}
