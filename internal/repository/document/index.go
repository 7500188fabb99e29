package document

import (
	"sort"

	"github.com/maknoon-cloud/qurandex/internal/db"
)

// buildIndex creates the FT index definition for app entries: a TEXT field
// for BM25 keyword fallback, a TAG field per metadata type, numeric quality
// signals, and the HNSW vector field for KNN.
func buildIndex(metaTypes []string, vectorDim int, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	sorted := append([]string(nil), metaTypes...)
	sort.Strings(sorted)

	b := db.NewIndex(indexName()).
		Prefix(keyPrefix()).
		Text(fieldText)

	for _, metaType := range sorted {
		b = b.TagWithSeparator(metaFieldPrefix+metaType, tagSeparator)
	}

	return b.
		Numeric(fieldRating).
		Numeric(fieldReviews).
		Tag(fieldFeatured).
		VectorHNSW(fieldVector, vectorDim, db.DistanceCosine, hnsw.M, hnsw.EFConstruct).
		Build()
}
