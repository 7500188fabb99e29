// Package document stores app entries as Redis hashes under qurandex:app:*
// and manages the FT index over them.
package document

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/maknoon-cloud/qurandex/internal/db"
	"github.com/maknoon-cloud/qurandex/internal/domain"
	domdoc "github.com/maknoon-cloud/qurandex/internal/domain/document"
)

// store is the consumer interface for app entries (ISP).
//
//nolint:interfacebloat // document repo needs hash + index management operations
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// HNSWConfig holds HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo implements usecase/index.Repository.
type Repo struct {
	store store
	hnsw  HNSWConfig
}

// New creates an app entry repository.
func New(s store) *Repo {
	return &Repo{store: s, hnsw: HNSWConfig{M: 32, EFConstruct: 400}}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// EnsureIndex creates the FT index if it does not exist yet.
// vectorDim must match the embedding provider's output dimension.
func (r *Repo) EnsureIndex(ctx context.Context, metaTypes []string, vectorDim int) error {
	exists, err := r.store.IndexExists(ctx, indexName())
	if err != nil {
		return fmt.Errorf("check index %s: %w", indexName(), err)
	}
	if exists {
		return nil
	}

	def, err := buildIndex(metaTypes, vectorDim, r.hnsw)
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", indexName(), err)
	}
	return nil
}

// Upsert creates or updates an app entry. Returns true if created.
func (r *Repo) Upsert(ctx context.Context, doc *domdoc.Document) (bool, error) {
	key := appKey(doc.ID())

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", key, err)
	}

	if err := r.store.HSet(ctx, key, buildHashFields(doc)); err != nil {
		return false, fmt.Errorf("hset %s: %w", key, err)
	}

	return !exists, nil
}

// UpsertMulti stores a batch of app entries in a single round-trip.
func (r *Repo) UpsertMulti(ctx context.Context, docs []domdoc.Document) error {
	if len(docs) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, len(docs))
	for i := range docs {
		items[i] = db.HashSetItem{
			Key:    appKey(docs[i].ID()),
			Fields: buildHashFields(&docs[i]),
		}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset multi: %w", err)
	}
	return nil
}

// Get returns an app entry by ID.
func (r *Repo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	key := appKey(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domdoc.Document{}, domain.ErrDocumentNotFound
		}
		return domdoc.Document{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	return parseHashFields(id, m), nil
}

// Delete removes an app entry.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := appKey(id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// List returns app entries with cursor-based pagination over sorted keys.
func (r *Repo) List(ctx context.Context, cursor string, limit int) ([]domdoc.Document, string, error) {
	if limit <= 0 {
		limit = 20
	}

	offset := 0
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err != nil || parsed < 0 {
			return nil, "", fmt.Errorf("%w: invalid cursor %q", domain.ErrInvalidArgument, cursor)
		}
		offset = parsed
	}

	keys, err := r.store.Scan(ctx, keyPrefix()+"*")
	if err != nil {
		return nil, "", fmt.Errorf("scan app keys: %w", err)
	}
	sort.Strings(keys)

	if offset >= len(keys) {
		return nil, "", nil
	}

	end := offset + limit
	var nextCursor string
	if end < len(keys) {
		nextCursor = strconv.Itoa(end)
	} else {
		end = len(keys)
	}
	page := keys[offset:end]

	maps, err := r.store.HGetAllMulti(ctx, page)
	if err != nil {
		return nil, "", fmt.Errorf("hgetall multi: %w", err)
	}

	docs := make([]domdoc.Document, 0, len(page))
	for i, m := range maps {
		if m == nil {
			continue // deleted between SCAN and HGETALL
		}
		docs = append(docs, parseHashFields(strings.TrimPrefix(page[i], keyPrefix()), m))
	}

	return docs, nextCursor, nil
}

// Count returns the number of indexed app entries.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, indexName(), "*")
	if err != nil {
		return 0, fmt.Errorf("search count: %w", err)
	}
	return n, nil
}

func keyPrefix() string {
	return domain.KeyPrefix + "app:"
}

func appKey(id string) string {
	return keyPrefix() + id
}

func indexName() string {
	return domain.KeyPrefix + "app:idx"
}
