package search

import (
	"context"
	"errors"
	"testing"

	"github.com/maknoon-cloud/qurandex/internal/db"
	"github.com/maknoon-cloud/qurandex/internal/domain/search/filter"
)

func TestSearchKNN(t *testing.T) {
	repo, ms := newTestRepo(t)
	filters, _ := filter.New(map[string][]string{"riwayah": {"hafs"}})

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.IndexName != "qurandex:app:idx" {
			t.Errorf("unexpected index: %s", q.IndexName)
		}
		if q.K != 30 {
			t.Errorf("unexpected K: %d", q.K)
		}
		if q.Filters.IsEmpty() {
			t.Error("expected filters to be forwarded")
		}
		return &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				testEntry("maknoon-quran", 0.12),
				testEntry("ayah", 0.37),
			},
		}, nil
	}

	candidates, err := repo.SearchKNN(context.Background(), []float32{0.1, 0.2}, filters, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}

	first := candidates[0]
	if first.Document().ID() != "maknoon-quran" {
		t.Errorf("unexpected ID: %s", first.Document().ID())
	}
	if first.Distance() != 0.12 {
		t.Errorf("expected raw distance 0.12, got %g", first.Distance())
	}
	if !first.Document().HasMetadataValue("riwayah", "warsh") {
		t.Error("expected metadata to be hydrated")
	}
	if first.Document().Quality().Rating != 4.8 || !first.Document().Quality().Featured {
		t.Errorf("unexpected quality: %+v", first.Document().Quality())
	}
	if first.MetadataBoost() != 1.0 {
		t.Errorf("expected neutral boost before scoring, got %g", first.MetadataBoost())
	}
}

func TestSearchKNN_Empty(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{}, nil
	}

	candidates, err := repo.SearchKNN(context.Background(), []float32{0.1}, filter.Map{}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if candidates != nil {
		t.Errorf("expected nil for no hits, got %v", candidates)
	}
}

func TestSearchKNN_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, errors.New("index missing")
	}

	_, err := repo.SearchKNN(context.Background(), []float32{0.1}, filter.Map{}, 10)
	if err == nil {
		t.Fatal("expected error from store")
	}
}

func TestSearchKNN_InvalidDistance(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{
			Total:   1,
			Entries: []db.SearchEntry{testEntry("bad", 3.5)},
		}, nil
	}

	_, err := repo.SearchKNN(context.Background(), []float32{0.1}, filter.Map{}, 10)
	if err == nil {
		t.Fatal("expected error for distance outside cosine range")
	}
}

func TestSearchKeyword_SyntheticRankDistance(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchTextFn = func(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
		if q.TextField != "text" {
			t.Errorf("unexpected text field: %s", q.TextField)
		}
		if q.Query != "quran offline" {
			t.Errorf("unexpected query: %s", q.Query)
		}
		return &db.SearchResult{
			Total: 3,
			Entries: []db.SearchEntry{
				testEntry("a", 12.5), // BM25 scores, descending
				testEntry("b", 7.1),
				testEntry("c", 1.3),
			},
		}, nil
	}

	candidates, err := repo.SearchKeyword(context.Background(), "quran offline", filter.Map{}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}

	// rank order must be preserved through ascending synthetic distances
	for i := 1; i < len(candidates); i++ {
		if candidates[i].Distance() <= candidates[i-1].Distance() {
			t.Errorf("expected strictly ascending distances, got %g then %g",
				candidates[i-1].Distance(), candidates[i].Distance())
		}
	}
	if candidates[0].Distance() != 0 {
		t.Errorf("expected first hit at distance 0, got %g", candidates[0].Distance())
	}
}

func TestSearchKeyword_Empty(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchTextFn = func(_ context.Context, _ *db.TextQuery) (*db.SearchResult, error) {
		return &db.SearchResult{}, nil
	}

	candidates, err := repo.SearchKeyword(context.Background(), "nothing", filter.Map{}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if candidates != nil {
		t.Errorf("expected nil for no hits, got %v", candidates)
	}
}

func TestParseEntryDocument_MissingOptionalFields(t *testing.T) {
	doc := parseEntryDocument(db.SearchEntry{
		Key:    "qurandex:app:bare",
		Fields: map[string]string{"text": "quran"},
	})

	if doc.ID() != "bare" {
		t.Errorf("unexpected ID: %s", doc.ID())
	}
	if doc.Metadata() != nil {
		t.Errorf("expected nil metadata, got %v", doc.Metadata())
	}
	if doc.Quality().Rating != 0 || doc.Quality().Featured {
		t.Errorf("expected zero quality, got %+v", doc.Quality())
	}
}
