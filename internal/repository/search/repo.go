// Package search retrieves scoring candidates from the app FT index, both
// by vector similarity and by BM25 keyword match.
package search

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/maknoon-cloud/qurandex/internal/db"
	"github.com/maknoon-cloud/qurandex/internal/domain"
	domdoc "github.com/maknoon-cloud/qurandex/internal/domain/document"
	"github.com/maknoon-cloud/qurandex/internal/domain/search/candidate"
	"github.com/maknoon-cloud/qurandex/internal/domain/search/filter"
)

// store is the consumer interface for retrieval (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Repo implements usecase/search.Retriever.
type Repo struct {
	store store
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// SearchKNN performs vector similarity retrieval with filter pre-filtering.
// Candidates come back ascending by cosine distance.
func (r *Repo) SearchKNN(
	ctx context.Context, vector []float32, filters filter.Map, topK int,
) ([]candidate.Candidate, error) {
	q := &db.KNNQuery{
		IndexName: indexName(),
		Filters:   filters,
		Vector:    vector,
		K:         topK,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}

	return parseKNNResults(sr)
}

// SearchKeyword performs BM25 keyword retrieval over the primary text field.
// Used as the fallback path when the embedding provider is unavailable.
func (r *Repo) SearchKeyword(
	ctx context.Context, query string, filters filter.Map, topK int,
) ([]candidate.Candidate, error) {
	q := &db.TextQuery{
		IndexName: indexName(),
		TextField: "text",
		Query:     query,
		Filters:   filters,
		TopK:      topK,
	}

	sr, err := r.store.SearchText(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search keyword: %w", err)
	}

	return parseKeywordResults(sr)
}

func parseKNNResults(sr *db.SearchResult) ([]candidate.Candidate, error) {
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	candidates := make([]candidate.Candidate, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		doc := parseEntryDocument(entry)
		c, err := candidate.New(doc, entry.Score)
		if err != nil {
			return nil, fmt.Errorf("candidate %s: %w", doc.ID(), err)
		}
		candidates = append(candidates, c)
	}

	return candidates, nil
}

// parseKeywordResults assigns each BM25 hit a synthetic rank-based distance
// so keyword results flow through the same scoring pipeline as KNN results.
func parseKeywordResults(sr *db.SearchResult) ([]candidate.Candidate, error) {
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	n := len(sr.Entries)
	candidates := make([]candidate.Candidate, 0, n)
	for i, entry := range sr.Entries {
		doc := parseEntryDocument(entry)
		c, err := candidate.New(doc, float64(i)/float64(n))
		if err != nil {
			return nil, fmt.Errorf("candidate %s: %w", doc.ID(), err)
		}
		candidates = append(candidates, c)
	}

	return candidates, nil
}

// parseEntryDocument hydrates a domain Document from flat hash fields.
func parseEntryDocument(entry db.SearchEntry) domdoc.Document {
	var text string
	var vector []float32
	var quality domdoc.Quality
	metadata := make(map[string][]string)

	for k, v := range entry.Fields {
		switch k {
		case "text":
			text = v
		case "rating":
			quality.Rating, _ = strconv.ParseFloat(v, 64)
		case "reviews":
			quality.ReviewCount, _ = strconv.Atoi(v)
		case "featured":
			quality.Featured = v == "1"
		case "vector":
			vector = bytesToVector(v)
		default:
			if metaType, ok := strings.CutPrefix(k, "meta_"); ok && v != "" {
				metadata[metaType] = strings.Split(v, ",")
			}
		}
	}

	if len(metadata) == 0 {
		metadata = nil
	}
	id := strings.TrimPrefix(entry.Key, domain.KeyPrefix+"app:")
	return domdoc.Reconstruct(id, text, metadata, quality, vector)
}

// bytesToVector deserializes a binary string to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

func indexName() string {
	return domain.KeyPrefix + "app:idx"
}
