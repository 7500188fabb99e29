package search

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/maknoon-cloud/qurandex/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchKNNFn  func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchTextFn func(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if m.searchTextFn != nil {
		return m.searchTextFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}

func testEntry(id string, distance float64) db.SearchEntry {
	return db.SearchEntry{
		Key:   "qurandex:app:" + id,
		Score: distance,
		Fields: map[string]string{
			"text":          "القران الكريم tilawah",
			"meta_riwayah":  "hafs,warsh",
			"meta_features": "offline",
			"rating":        "4.8",
			"reviews":       "1200",
			"featured":      "1",
			"vector":        vectorBytes([]float32{0.1, 0.2}),
		},
	}
}

func vectorBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
