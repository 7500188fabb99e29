package index

import (
	"context"

	"github.com/maknoon-cloud/qurandex/internal/domain"
	domdoc "github.com/maknoon-cloud/qurandex/internal/domain/document"
)

// Repository defines the storage contract for app entries.
type Repository interface {
	EnsureIndex(ctx context.Context, metaTypes []string, vectorDim int) error
	Upsert(ctx context.Context, doc *domdoc.Document) (created bool, err error)
	UpsertMulti(ctx context.Context, docs []domdoc.Document) error
	Get(ctx context.Context, id string) (domdoc.Document, error)
	List(ctx context.Context, cursor string, limit int) (docs []domdoc.Document, nextCursor string, err error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
