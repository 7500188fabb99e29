package domain

import "context"

// RerankCandidate is a document sent to the external reranker.
type RerankCandidate struct {
	ID      string
	Content string
	Score   float64 // pre-rerank combined score, for provider context and logging
}

// RerankItem is one entry of a reranker response: a candidate ID in its
// new position, with optional natural-language reasoning.
type RerankItem struct {
	ID        string
	Reasoning string
}

// Reranker reorders a small candidate window using an external relevance model.
// Implementations should return each candidate at most once; callers merge
// defensively, appending candidates missing from the response in their
// incoming order. On error callers must fall back to the incoming order;
// reranking is an enhancement, never a hard dependency.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []RerankCandidate) ([]RerankItem, error)
}
