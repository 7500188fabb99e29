// Package request holds the validated search request.
package request

import (
	"fmt"

	"github.com/maknoon-cloud/qurandex/internal/domain"
	"github.com/maknoon-cloud/qurandex/internal/domain/search/filter"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultLimit   = 10
	MaxLimit       = 50
	DefaultRerankK = 5
	MaxRerankK     = 20
)

// Request is a validated search query.
type Request struct {
	query         string
	filters       filter.Map
	limit         int
	rerankTopK    int
	includeFacets bool
	applyRerank   bool
}

// New validates and normalizes search parameters.
// Defaults: limit=10, rerankTopK=5. rerankTopK is clamped to limit.
func New(
	query string,
	filters filter.Map,
	limit, rerankTopK int,
	includeFacets, applyRerank bool,
) (Request, error) {
	if query == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidArgument)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidArgument, MaxQueryLength)
	}
	if limit < 0 {
		return Request{}, fmt.Errorf("%w: limit must not be negative", domain.ErrInvalidArgument)
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if rerankTopK < 0 {
		return Request{}, fmt.Errorf("%w: rerank_top_k must not be negative", domain.ErrInvalidArgument)
	}
	if rerankTopK == 0 {
		rerankTopK = DefaultRerankK
	}
	if rerankTopK > MaxRerankK {
		rerankTopK = MaxRerankK
	}
	if rerankTopK > limit {
		rerankTopK = limit
	}

	return Request{
		query:         query,
		filters:       filters,
		limit:         limit,
		rerankTopK:    rerankTopK,
		includeFacets: includeFacets,
		applyRerank:   applyRerank,
	}, nil
}

// Query returns the raw query text.
func (r *Request) Query() string { return r.query }

// Filters returns the hard metadata filters.
func (r *Request) Filters() filter.Map { return r.filters }

// Limit returns the final result limit.
func (r *Request) Limit() int { return r.limit }

// RerankTopK returns the size of the window sent to the reranker.
func (r *Request) RerankTopK() int { return r.rerankTopK }

// IncludeFacets reports whether facet counts should be computed.
func (r *Request) IncludeFacets() bool { return r.includeFacets }

// ApplyRerank reports whether the reranking stage is requested.
func (r *Request) ApplyRerank() bool { return r.applyRerank }
