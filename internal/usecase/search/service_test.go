package search

import (
	"context"
	"errors"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/maknoon-cloud/qurandex/internal/domain"
	domdoc "github.com/maknoon-cloud/qurandex/internal/domain/document"
	"github.com/maknoon-cloud/qurandex/internal/domain/search/boost"
	"github.com/maknoon-cloud/qurandex/internal/domain/search/candidate"
	"github.com/maknoon-cloud/qurandex/internal/domain/search/filter"
	"github.com/maknoon-cloud/qurandex/internal/domain/search/request"
	"github.com/maknoon-cloud/qurandex/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterSearchMetrics()
	os.Exit(m.Run())
}

type mockRetriever struct {
	knnVector  []float32
	knnTopK    int
	knnFilters filter.Map
	knnCands   []candidate.Candidate
	knnErr     error

	keywordQuery string
	keywordCands []candidate.Candidate
	keywordErr   error
}

func (m *mockRetriever) SearchKNN(
	_ context.Context, vector []float32, filters filter.Map, topK int,
) ([]candidate.Candidate, error) {
	m.knnVector = vector
	m.knnFilters = filters
	m.knnTopK = topK
	return m.knnCands, m.knnErr
}

func (m *mockRetriever) SearchKeyword(
	_ context.Context, query string, _ filter.Map, _ int,
) ([]candidate.Candidate, error) {
	m.keywordQuery = query
	return m.keywordCands, m.keywordErr
}

type mockEmbedder struct {
	text string
	vec  []float32
	err  error
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.text = text
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 2}, nil
}

type mockReranker struct {
	query string
	sent  []domain.RerankCandidate
	items []domain.RerankItem
	err   error
}

func (m *mockReranker) Rerank(
	_ context.Context, query string, candidates []domain.RerankCandidate,
) ([]domain.RerankItem, error) {
	m.query = query
	m.sent = candidates
	return m.items, m.err
}

func makeCandidate(t *testing.T, id string, distance float64, metadata map[string][]string, quality domdoc.Quality) candidate.Candidate {
	t.Helper()
	doc := domdoc.Reconstruct(id, "text for "+id, metadata, quality, nil)
	c, err := candidate.New(doc, distance)
	if err != nil {
		t.Fatalf("candidate for %s: %v", id, err)
	}
	return c
}

func mustFilters(t *testing.T, accepted map[string][]string) filter.Map {
	t.Helper()
	f, err := filter.New(accepted)
	if err != nil {
		t.Fatalf("filters: %v", err)
	}
	return f
}

func mustRequest(t *testing.T, query string, filters filter.Map, limit, rerankTopK int, facets, rerank bool) request.Request {
	t.Helper()
	req, err := request.New(query, filters, limit, rerankTopK, facets, rerank)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return req
}

func resultIDs(resp Response) []string {
	ids := make([]string, len(resp.Items))
	for i, item := range resp.Items {
		ids[i] = item.ID
	}
	return ids
}

func newTestService(retriever *mockRetriever, embedder *mockEmbedder, reranker domain.Reranker) *Service {
	return New(retriever, embedder, reranker, boost.New(boost.DefaultWeights()), zap.NewNop())
}

func TestSearch_EndToEnd(t *testing.T) {
	// Closest candidate by distance has no matching metadata; a slightly
	// farther featured high-rating candidate should overtake it after
	// boosting.
	retriever := &mockRetriever{
		knnCands: []candidate.Candidate{
			makeCandidate(t, "plain", 0.20, nil, domdoc.Quality{Rating: 3.0}),
			makeCandidate(t, "featured", 0.24,
				map[string][]string{"riwayah": {"hafs"}},
				domdoc.Quality{Rating: 4.8, Featured: true},
			),
			makeCandidate(t, "middling", 0.30,
				map[string][]string{"riwayah": {"warsh"}},
				domdoc.Quality{Rating: 4.0},
			),
		},
	}
	embedder := &mockEmbedder{vec: []float32{0.1, 0.2}}
	svc := newTestService(retriever, embedder, nil)

	req := mustRequest(t, "quran tilawah", filter.Map{}, 2, 0, true, false)
	resp, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Mode != ModeVector {
		t.Errorf("expected mode %q, got %q", ModeVector, resp.Mode)
	}
	ids := resultIDs(resp)
	if len(ids) != 2 || ids[0] != "featured" || ids[1] != "plain" {
		t.Errorf("unexpected order: %v", ids)
	}
	if resp.Items[0].MetadataBoost <= 1.0 {
		t.Errorf("expected boost > 1.0 for featured candidate, got %g", resp.Items[0].MetadataBoost)
	}
	if resp.Items[0].CombinedScore <= resp.Items[1].CombinedScore {
		t.Error("expected descending combined scores")
	}

	// Facets cover the full retrieved pool, including the truncated tail.
	riwayah := resp.Facets["riwayah"]
	if len(riwayah) != 2 {
		t.Fatalf("expected 2 riwayah facet values, got %v", riwayah)
	}
	for _, fc := range riwayah {
		if fc.Count != 1 {
			t.Errorf("expected count 1 for %q, got %d", fc.Value, fc.Count)
		}
	}
}

func TestSearch_RetrievalWindow(t *testing.T) {
	retriever := &mockRetriever{}
	embedder := &mockEmbedder{vec: []float32{0.5}}
	svc := newTestService(retriever, embedder, nil)

	req := mustRequest(t, "tajweed", filter.Map{}, 10, 0, false, false)
	if _, err := svc.Search(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if retriever.knnTopK != 30 {
		t.Errorf("expected topK 10*3=30, got %d", retriever.knnTopK)
	}
	if len(retriever.knnVector) != 1 {
		t.Error("expected query embedding to reach the retriever")
	}
}

func TestSearch_QueryNormalized(t *testing.T) {
	retriever := &mockRetriever{}
	embedder := &mockEmbedder{vec: []float32{0.5}}
	svc := newTestService(retriever, embedder, nil)

	req := mustRequest(t, "القُرْآن", filter.Map{}, 5, 0, false, false)
	if _, err := svc.Search(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if embedder.text != "القران" {
		t.Errorf("expected normalized query %q, got %q", "القران", embedder.text)
	}
}

func TestSearch_KeywordFallback(t *testing.T) {
	retriever := &mockRetriever{
		keywordCands: []candidate.Candidate{
			makeCandidate(t, "kw-first", 0.0, nil, domdoc.Quality{}),
			makeCandidate(t, "kw-second", 0.5, nil, domdoc.Quality{}),
		},
	}
	embedder := &mockEmbedder{err: domain.ErrProviderUnavailable}
	svc := newTestService(retriever, embedder, nil)

	req := mustRequest(t, "offline quran", filter.Map{}, 5, 0, false, false)
	resp, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("expected degraded search to succeed, got %v", err)
	}
	if resp.Mode != ModeKeywordFallback {
		t.Errorf("expected mode %q, got %q", ModeKeywordFallback, resp.Mode)
	}
	if retriever.keywordQuery != "offline quran" {
		t.Errorf("unexpected keyword query: %q", retriever.keywordQuery)
	}
	ids := resultIDs(resp)
	if len(ids) != 2 || ids[0] != "kw-first" {
		t.Errorf("expected BM25 order preserved, got %v", ids)
	}
}

func TestSearch_KeywordFallbackError(t *testing.T) {
	retriever := &mockRetriever{keywordErr: errors.New("index gone")}
	embedder := &mockEmbedder{err: domain.ErrProviderUnavailable}
	svc := newTestService(retriever, embedder, nil)

	req := mustRequest(t, "quran", filter.Map{}, 5, 0, false, false)
	if _, err := svc.Search(context.Background(), req); err == nil {
		t.Fatal("expected error when both retrieval paths fail")
	}
}

func TestSearch_EmbedderHardError(t *testing.T) {
	retriever := &mockRetriever{}
	embedder := &mockEmbedder{err: errors.New("bad credentials")}
	svc := newTestService(retriever, embedder, nil)

	req := mustRequest(t, "quran", filter.Map{}, 5, 0, false, false)
	if _, err := svc.Search(context.Background(), req); err == nil {
		t.Fatal("expected non-provider embed errors to fail the request")
	}
	if retriever.keywordQuery != "" {
		t.Error("expected no keyword fallback for non-provider errors")
	}
}

func TestSearch_RetrieverError(t *testing.T) {
	retriever := &mockRetriever{knnErr: errors.New("redis down")}
	embedder := &mockEmbedder{vec: []float32{0.5}}
	svc := newTestService(retriever, embedder, nil)

	req := mustRequest(t, "quran", filter.Map{}, 5, 0, false, false)
	if _, err := svc.Search(context.Background(), req); err == nil {
		t.Fatal("expected retrieval error to surface")
	}
}

func TestSearch_RerankReorders(t *testing.T) {
	retriever := &mockRetriever{
		knnCands: []candidate.Candidate{
			makeCandidate(t, "a", 0.10, nil, domdoc.Quality{}),
			makeCandidate(t, "b", 0.20, nil, domdoc.Quality{}),
			makeCandidate(t, "c", 0.30, nil, domdoc.Quality{}),
			makeCandidate(t, "d", 0.40, nil, domdoc.Quality{}),
		},
	}
	embedder := &mockEmbedder{vec: []float32{0.5}}
	reranker := &mockReranker{
		items: []domain.RerankItem{
			{ID: "c", Reasoning: "closest match for recitation"},
			{ID: "a", Reasoning: "general purpose"},
			{ID: "b"},
		},
	}
	svc := newTestService(retriever, embedder, reranker)

	req := mustRequest(t, "tilawah", filter.Map{}, 4, 3, false, true)
	resp, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(reranker.sent) != 3 {
		t.Fatalf("expected rerank window of 3, got %d", len(reranker.sent))
	}
	ids := resultIDs(resp)
	want := []string{"c", "a", "b", "d"}
	for i, id := range want {
		if ids[i] != id {
			t.Fatalf("expected order %v, got %v", want, ids)
		}
	}
	if resp.Items[0].AIReasoning != "closest match for recitation" {
		t.Errorf("expected reasoning attached, got %q", resp.Items[0].AIReasoning)
	}
	// Outside the window: boosted order, no reasoning.
	if resp.Items[3].AIReasoning != "" {
		t.Errorf("expected no reasoning outside the window, got %q", resp.Items[3].AIReasoning)
	}
}

func TestSearch_RerankPartialResponse(t *testing.T) {
	// A response that skips a window candidate, repeats one, and names an
	// id outside the window must still yield every candidate exactly once:
	// mentioned ids first, the rest in boosted order.
	retriever := &mockRetriever{
		knnCands: []candidate.Candidate{
			makeCandidate(t, "a", 0.10, nil, domdoc.Quality{}),
			makeCandidate(t, "b", 0.20, nil, domdoc.Quality{}),
			makeCandidate(t, "c", 0.30, nil, domdoc.Quality{}),
		},
	}
	embedder := &mockEmbedder{vec: []float32{0.5}}
	reranker := &mockReranker{
		items: []domain.RerankItem{
			{ID: "c", Reasoning: "best fit"},
			{ID: "c"},
			{ID: "ghost"},
		},
	}
	svc := newTestService(retriever, embedder, reranker)

	req := mustRequest(t, "tilawah", filter.Map{}, 3, 3, false, true)
	resp, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := resultIDs(resp)
	want := []string{"c", "a", "b"}
	for i, id := range want {
		if ids[i] != id {
			t.Fatalf("expected order %v, got %v", want, ids)
		}
	}
	if resp.Items[0].AIReasoning != "best fit" {
		t.Errorf("expected reasoning on reranked item, got %q", resp.Items[0].AIReasoning)
	}
}

func TestSearch_RerankFallbackKeepsBoostedOrder(t *testing.T) {
	cands := func() []candidate.Candidate {
		return []candidate.Candidate{
			makeCandidate(t, "a", 0.10, nil, domdoc.Quality{}),
			makeCandidate(t, "b", 0.20, nil, domdoc.Quality{Featured: true}),
			makeCandidate(t, "c", 0.30, nil, domdoc.Quality{}),
		}
	}

	embedder := &mockEmbedder{vec: []float32{0.5}}
	req := mustRequest(t, "quran", filter.Map{}, 3, 3, false, true)

	baseline := newTestService(&mockRetriever{knnCands: cands()}, embedder, nil)
	baseResp, err := baseline.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("baseline: %v", err)
	}

	failing := &mockReranker{err: domain.ErrProviderUnavailable}
	svc := newTestService(&mockRetriever{knnCands: cands()}, embedder, failing)
	resp, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("expected rerank failure to degrade, got %v", err)
	}

	baseIDs, ids := resultIDs(baseResp), resultIDs(resp)
	for i := range baseIDs {
		if ids[i] != baseIDs[i] {
			t.Fatalf("expected boosted order %v on fallback, got %v", baseIDs, ids)
		}
	}
	for _, item := range resp.Items {
		if item.AIReasoning != "" {
			t.Errorf("expected no reasoning on fallback, got %q for %s", item.AIReasoning, item.ID)
		}
	}
}

func TestSearch_RerankSkippedForTinyWindow(t *testing.T) {
	retriever := &mockRetriever{
		knnCands: []candidate.Candidate{makeCandidate(t, "only", 0.10, nil, domdoc.Quality{})},
	}
	embedder := &mockEmbedder{vec: []float32{0.5}}
	reranker := &mockReranker{}
	svc := newTestService(retriever, embedder, reranker)

	req := mustRequest(t, "quran", filter.Map{}, 5, 5, false, true)
	if _, err := svc.Search(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reranker.sent != nil {
		t.Error("expected no rerank call for a single candidate")
	}
}

func TestSearch_EmptyResults(t *testing.T) {
	retriever := &mockRetriever{}
	embedder := &mockEmbedder{vec: []float32{0.5}}
	svc := newTestService(retriever, embedder, nil)

	req := mustRequest(t, "nothing matches", mustFilters(t, map[string][]string{
		"riwayah": {"duri"},
	}), 5, 0, true, false)

	resp, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Items) != 0 || resp.Total != 0 {
		t.Errorf("expected empty response, got %+v", resp)
	}
}

func TestSearch_FiltersReachRetriever(t *testing.T) {
	retriever := &mockRetriever{}
	embedder := &mockEmbedder{vec: []float32{0.5}}
	svc := newTestService(retriever, embedder, nil)

	filters := mustFilters(t, map[string][]string{"features": {"offline"}})
	req := mustRequest(t, "offline quran", filters, 5, 0, false, false)
	if _, err := svc.Search(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := retriever.knnFilters.Values("features"); len(got) != 1 || got[0] != "offline" {
		t.Errorf("expected features filter forwarded, got %v", got)
	}
}

func TestSearch_FacetDrillDownKeepsUnselectedValues(t *testing.T) {
	// With facets on, the facet universe for a filtered type must include
	// candidates matching the other values of that type, so filters are
	// applied after retrieval rather than pushed into the store query.
	retriever := &mockRetriever{
		knnCands: []candidate.Candidate{
			makeCandidate(t, "offline-app", 0.20,
				map[string][]string{"features": {"offline"}}, domdoc.Quality{}),
			makeCandidate(t, "tajweed-app", 0.25,
				map[string][]string{"features": {"tajweed"}}, domdoc.Quality{}),
		},
	}
	embedder := &mockEmbedder{vec: []float32{0.1}}
	svc := newTestService(retriever, embedder, nil)

	filters := mustFilters(t, map[string][]string{"features": {"offline"}})
	req := mustRequest(t, "quran features", filters, 5, 0, true, false)
	resp, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !retriever.knnFilters.IsEmpty() {
		t.Errorf("expected unfiltered retrieval when facets requested, got %v", retriever.knnFilters.Types())
	}

	ids := resultIDs(resp)
	if len(ids) != 1 || ids[0] != "offline-app" {
		t.Errorf("expected results filtered to offline-app, got %v", ids)
	}

	counts := make(map[string]int)
	for _, fc := range resp.Facets["features"] {
		counts[fc.Value] = fc.Count
	}
	if counts["offline"] != 1 || counts["tajweed"] != 1 {
		t.Errorf("expected drill-down counts offline=1 tajweed=1, got %v", counts)
	}
}

func TestSearch_FacetDrillDownOtherTypesStayFiltered(t *testing.T) {
	// Counts for a type the user did not filter on are taken over the
	// fully filtered candidate set.
	retriever := &mockRetriever{
		knnCands: []candidate.Candidate{
			makeCandidate(t, "hafs-offline", 0.20,
				map[string][]string{"features": {"offline"}, "riwayah": {"hafs"}}, domdoc.Quality{}),
			makeCandidate(t, "warsh-tajweed", 0.25,
				map[string][]string{"features": {"tajweed"}, "riwayah": {"warsh"}}, domdoc.Quality{}),
		},
	}
	embedder := &mockEmbedder{vec: []float32{0.1}}
	svc := newTestService(retriever, embedder, nil)

	filters := mustFilters(t, map[string][]string{"features": {"offline"}})
	req := mustRequest(t, "quran riwayah", filters, 5, 0, true, false)
	resp, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	riwayah := resp.Facets["riwayah"]
	if len(riwayah) != 1 || riwayah[0].Value != "hafs" || riwayah[0].Count != 1 {
		t.Errorf("expected riwayah facet {hafs:1} only, got %v", riwayah)
	}
}
