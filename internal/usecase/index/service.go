// Package index implements the indexing pipeline: raw app fields are
// assembled into a normalized primary text, vectorized, and stored.
package index

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/maknoon-cloud/qurandex/internal/domain"
	domdoc "github.com/maknoon-cloud/qurandex/internal/domain/document"
)

// MaxBatchSize is the maximum number of items per batch request.
const MaxBatchSize = 100

// DefaultConcurrency bounds parallel vectorization during batch indexing.
const DefaultConcurrency = 4

// AppInput is one app entry to index.
type AppInput struct {
	ID       string
	Source   domdoc.Source
	Metadata map[string][]string
	Quality  domdoc.Quality
}

// ItemResult reports the per-item outcome of a batch upsert.
type ItemResult struct {
	ID      string
	Created bool
	Err     error
}

// Service handles app entry CRUD with automatic vectorization.
type Service struct {
	repo         Repository
	embedder     Embedder
	vectorDim    int
	maxBatchSize int
	concurrency  int
	logger       *zap.Logger
}

// New creates an indexing service. vectorDim is the expected embedding
// dimension; vectors of any other size are rejected before storage.
func New(repo Repository, embedder Embedder, vectorDim int, logger *zap.Logger) *Service {
	return &Service{
		repo:         repo,
		embedder:     embedder,
		vectorDim:    vectorDim,
		maxBatchSize: MaxBatchSize,
		concurrency:  DefaultConcurrency,
		logger:       logger,
	}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// WithConcurrency configures parallel vectorization during batch indexing.
func (s *Service) WithConcurrency(n int) *Service {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// EnsureIndex creates the FT index for the given metadata types if missing.
func (s *Service) EnsureIndex(ctx context.Context, metaTypes []string) error {
	if err := s.repo.EnsureIndex(ctx, metaTypes, s.vectorDim); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}
	return nil
}

// Upsert validates, vectorizes, and stores one app entry.
// Returns true if the entry was created, false if updated.
func (s *Service) Upsert(ctx context.Context, input AppInput) (bool, error) {
	doc, err := s.buildDocument(ctx, input)
	if err != nil {
		return false, err
	}

	created, err := s.repo.Upsert(ctx, &doc)
	if err != nil {
		return false, fmt.Errorf("upsert app %s: %w", input.ID, err)
	}

	s.logger.Info("Indexed app entry",
		zap.String("id", input.ID),
		zap.Bool("created", created),
	)
	return created, nil
}

// UpsertBatch indexes app entries with bounded-concurrency vectorization and
// per-item error reporting. Entries that embed successfully are stored in a
// single pipelined write; one bad item never fails the batch.
func (s *Service) UpsertBatch(ctx context.Context, items []AppInput) []ItemResult {
	results := make([]ItemResult, len(items))
	for i := range items {
		results[i].ID = items[i].ID
	}

	if len(items) == 0 {
		return results
	}
	if len(items) > s.maxBatchSize {
		err := fmt.Errorf("batch size %d exceeds %d: %w", len(items), s.maxBatchSize, domain.ErrInvalidArgument)
		for i := range results {
			results[i].Err = err
		}
		return results
	}

	docs := make([]domdoc.Document, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range items {
		g.Go(func() error {
			doc, err := s.buildDocument(gctx, items[i])
			if err != nil {
				results[i].Err = err
				return nil // per-item failure, keep the batch going
			}
			docs[i] = doc
			return nil
		})
	}
	_ = g.Wait()

	valid := make([]domdoc.Document, 0, len(docs))
	validIdx := make([]int, 0, len(docs))
	for i := range docs {
		if results[i].Err != nil {
			continue
		}
		valid = append(valid, docs[i])
		validIdx = append(validIdx, i)
	}
	if len(valid) == 0 {
		return results
	}

	if err := s.repo.UpsertMulti(ctx, valid); err != nil {
		for _, i := range validIdx {
			results[i].Err = fmt.Errorf("store batch: %w", err)
		}
		return results
	}
	for _, i := range validIdx {
		results[i].Created = true
	}

	s.logger.Info("Indexed app batch",
		zap.Int("total", len(items)),
		zap.Int("stored", len(valid)),
	)
	return results
}

// Get retrieves an app entry by ID.
func (s *Service) Get(ctx context.Context, id string) (domdoc.Document, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get app %s: %w", id, err)
	}
	return doc, nil
}

// List returns app entries with cursor pagination.
func (s *Service) List(ctx context.Context, cursor string, limit int) ([]domdoc.Document, string, error) {
	docs, next, err := s.repo.List(ctx, cursor, limit)
	if err != nil {
		return nil, "", fmt.Errorf("list apps: %w", err)
	}
	return docs, next, nil
}

// Delete removes an app entry.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete app %s: %w", id, err)
	}
	s.logger.Info("Deleted app entry", zap.String("id", id))
	return nil
}

// Count returns the number of indexed app entries.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count apps: %w", err)
	}
	return n, nil
}

// buildDocument assembles the primary text, validates the entry, and
// vectorizes it.
func (s *Service) buildDocument(ctx context.Context, input AppInput) (domdoc.Document, error) {
	text := input.Source.PrimaryText()

	doc, err := domdoc.New(input.ID, text, input.Metadata, input.Quality)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("%w: %s", domain.ErrInvalidArgument, err)
	}

	result, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("vectorize app %s: %w", input.ID, err)
	}
	if s.vectorDim > 0 && len(result.Embedding) != s.vectorDim {
		return domdoc.Document{}, fmt.Errorf(
			"vector dimension mismatch: got %d, want %d: %w",
			len(result.Embedding), s.vectorDim, domain.ErrVectorDimMismatch,
		)
	}

	return doc.WithVector(result.Embedding), nil
}
