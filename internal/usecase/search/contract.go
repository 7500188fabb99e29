package search

import (
	"context"

	"github.com/maknoon-cloud/qurandex/internal/domain/search/candidate"
	"github.com/maknoon-cloud/qurandex/internal/domain/search/filter"
)

// Retriever defines the retrieval contract over the vector-capable store.
type Retriever interface {
	// SearchKNN returns candidates ascending by cosine distance.
	SearchKNN(ctx context.Context, vector []float32, filters filter.Map, topK int) ([]candidate.Candidate, error)
	// SearchKeyword returns BM25-ranked candidates over the primary text.
	SearchKeyword(ctx context.Context, query string, filters filter.Map, topK int) ([]candidate.Candidate, error)
}
