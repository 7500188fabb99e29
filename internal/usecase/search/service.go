// Package search implements the hybrid search orchestrator: embed the
// query, vector-retrieve a filtered candidate pool, boost, facet,
// optionally rerank a top window, and truncate to the final limit.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/maknoon-cloud/qurandex/internal/domain"
	"github.com/maknoon-cloud/qurandex/internal/domain/arabic"
	domdoc "github.com/maknoon-cloud/qurandex/internal/domain/document"
	"github.com/maknoon-cloud/qurandex/internal/domain/search/boost"
	"github.com/maknoon-cloud/qurandex/internal/domain/search/candidate"
	"github.com/maknoon-cloud/qurandex/internal/domain/search/facet"
	"github.com/maknoon-cloud/qurandex/internal/domain/search/filter"
	"github.com/maknoon-cloud/qurandex/internal/domain/search/request"
	"github.com/maknoon-cloud/qurandex/internal/metrics"
)

// Retrieval modes reported in the response and metrics.
const (
	ModeVector          = "vector"
	ModeKeywordFallback = "keyword_fallback"
)

// DefaultRetrievalMultiplier widens retrieval beyond the final limit so
// boosting and reranking have room to reorder.
const DefaultRetrievalMultiplier = 3

// Item is one ranked search result.
type Item struct {
	ID            string
	Distance      float64
	MetadataBoost float64
	CombinedScore float64
	MatchReasons  []candidate.MatchReason
	AIReasoning   string
	Metadata      map[string][]string
	Quality       domdoc.Quality
}

// Response is the ordered result list with its facet breakdown.
type Response struct {
	Items  []Item
	Facets facet.Result
	Mode   string
	Total  int
}

// Service orchestrates the hybrid search pipeline. Stateless per request;
// safe for concurrent use.
type Service struct {
	retriever  Retriever
	embedder   domain.Embedder
	reranker   domain.Reranker // nil disables the reranking stage
	booster    *boost.Engine
	multiplier int
	logger     *zap.Logger
}

// New creates a search orchestrator. reranker may be nil, in which case
// rerank requests are served in boosted order.
func New(
	retriever Retriever,
	embedder domain.Embedder,
	reranker domain.Reranker,
	booster *boost.Engine,
	logger *zap.Logger,
) *Service {
	return &Service{
		retriever:  retriever,
		embedder:   embedder,
		reranker:   reranker,
		booster:    booster,
		multiplier: DefaultRetrievalMultiplier,
		logger:     logger,
	}
}

// WithRetrievalMultiplier configures how many times the final limit is
// retrieved before boosting and truncation.
func (s *Service) WithRetrievalMultiplier(n int) *Service {
	if n >= 1 {
		s.multiplier = n
	}
	return s
}

// Search runs the pipeline for one validated request. Embedding failure
// degrades to keyword retrieval; reranker failure degrades to boosted
// order. Both degradations still return results.
func (s *Service) Search(ctx context.Context, req request.Request) (Response, error) {
	start := time.Now()

	// Faceted drill-down needs candidates that fail a single filter type:
	// the count universe for type T is "passes every filter except T". Hard
	// filters therefore stay out of the store query when facets are
	// requested, and the result list is filtered here instead.
	retrievalFilters := req.Filters()
	if req.IncludeFacets() {
		retrievalFilters = filter.Map{}
	}

	pool, mode, err := s.retrieve(ctx, req, retrievalFilters)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(mode, "error").Inc()
		return Response{}, err
	}
	metrics.SearchCandidatesRetrieved.Observe(float64(len(pool)))

	var facets facet.Result
	cands := pool
	if req.IncludeFacets() {
		// Computed over the full pre-filter pool, before truncation.
		facets = facet.Compute(pool, req.Filters())
		cands = applyFilters(pool, req.Filters())
	}

	for i := range cands {
		s.booster.Score(&cands[i], req.Filters())
	}
	// Stable: ties keep retrieval (distance) order.
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].CombinedScore() > cands[j].CombinedScore()
	})

	if req.ApplyRerank() && s.reranker != nil {
		s.rerankWindow(ctx, req, cands)
	}

	if len(cands) > req.Limit() {
		cands = cands[:req.Limit()]
	}

	resp := Response{
		Items:  buildItems(cands),
		Facets: facets,
		Mode:   mode,
		Total:  len(cands),
	}

	metrics.SearchRequestsTotal.WithLabelValues(mode, "success").Inc()
	metrics.SearchDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())

	s.logger.Debug("Search completed",
		zap.String("mode", mode),
		zap.Int("results", len(resp.Items)),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

// retrieve embeds the normalized query and runs KNN retrieval. When the
// embedding provider is unavailable it degrades to BM25 keyword retrieval
// instead of failing the request.
func (s *Service) retrieve(
	ctx context.Context, req request.Request, filters filter.Map,
) ([]candidate.Candidate, string, error) {
	query := arabic.Normalize(req.Query())
	topK := req.Limit() * s.multiplier

	res, err := s.embedder.Embed(ctx, query)
	if err != nil {
		if !errors.Is(err, domain.ErrProviderUnavailable) {
			return nil, ModeVector, fmt.Errorf("embed query: %w", err)
		}
		s.logger.Warn("Embedding provider unavailable, falling back to keyword retrieval",
			zap.String("query", req.Query()),
			zap.Error(err),
		)
		cands, kerr := s.retriever.SearchKeyword(ctx, query, filters, topK)
		if kerr != nil {
			return nil, ModeKeywordFallback, fmt.Errorf("keyword fallback: %w", kerr)
		}
		return cands, ModeKeywordFallback, nil
	}

	cands, err := s.retriever.SearchKNN(ctx, res.Embedding, filters, topK)
	if err != nil {
		return nil, ModeVector, fmt.Errorf("vector retrieval: %w", err)
	}
	return cands, ModeVector, nil
}

// rerankWindow sends the top boosted window to the reranker and reorders
// that slice in place. Any reranker failure leaves the boosted order
// untouched.
func (s *Service) rerankWindow(ctx context.Context, req request.Request, cands []candidate.Candidate) {
	window := min(req.RerankTopK(), len(cands))
	if window < 2 {
		return
	}

	rcs := make([]domain.RerankCandidate, window)
	for i := range rcs {
		rcs[i] = domain.RerankCandidate{
			ID:      cands[i].Document().ID(),
			Content: cands[i].Document().PrimaryText(),
			Score:   cands[i].CombinedScore(),
		}
	}

	items, err := s.reranker.Rerank(ctx, req.Query(), rcs)
	if err != nil {
		metrics.RerankFallbacksTotal.Inc()
		s.logger.Warn("Rerank failed, keeping boosted order",
			zap.String("query", req.Query()),
			zap.Int("window", window),
			zap.Error(err),
		)
		return
	}

	// Merge tolerates partial, duplicate, or unknown-ID responses: every
	// window candidate ends up exactly once, response order first, then
	// any unmentioned candidates in boosted order.
	byID := make(map[string]candidate.Candidate, window)
	for i := 0; i < window; i++ {
		byID[cands[i].Document().ID()] = cands[i]
	}
	reordered := make([]candidate.Candidate, 0, window)
	used := make(map[string]bool, window)
	for _, item := range items {
		c, ok := byID[item.ID]
		if !ok || used[item.ID] {
			continue
		}
		used[item.ID] = true
		c.SetAIReasoning(item.Reasoning)
		reordered = append(reordered, c)
	}
	for i := 0; i < window; i++ {
		if !used[cands[i].Document().ID()] {
			reordered = append(reordered, cands[i])
		}
	}
	copy(cands, reordered)
}

// applyFilters keeps only candidates passing every constrained filter
// type, preserving retrieval order.
func applyFilters(pool []candidate.Candidate, filters filter.Map) []candidate.Candidate {
	if filters.IsEmpty() {
		return pool
	}
	kept := make([]candidate.Candidate, 0, len(pool))
	for _, c := range pool {
		if filters.Matches(c.Document()) {
			kept = append(kept, c)
		}
	}
	return kept
}

func buildItems(cands []candidate.Candidate) []Item {
	items := make([]Item, len(cands))
	for i := range cands {
		c := &cands[i]
		items[i] = Item{
			ID:            c.Document().ID(),
			Distance:      c.Distance(),
			MetadataBoost: c.MetadataBoost(),
			CombinedScore: c.CombinedScore(),
			MatchReasons:  c.MatchReasons(),
			AIReasoning:   c.AIReasoning(),
			Metadata:      c.Document().Metadata(),
			Quality:       c.Document().Quality(),
		}
	}
	return items
}
