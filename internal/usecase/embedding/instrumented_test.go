package embedding

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/maknoon-cloud/qurandex/internal/domain"
)

type mockEmbedder struct {
	result     domain.EmbeddingResult
	err        error
	batchCalls int
	batchSizes []int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return m.result, m.err
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = m.result.Embedding
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: m.result.PromptTokens * len(texts),
		TotalTokens:  m.result.TotalTokens * len(texts),
	}, nil
}

// singleEmbedder implements only domain.Embedder, forcing the fallback path.
type singleEmbedder struct {
	calls int
}

func (s *singleEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	s.calls++
	return domain.EmbeddingResult{Embedding: []float32{0.1}, TotalTokens: 1}, nil
}

func TestInstrumented_Embed(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:   []float32{0.1, 0.2},
		TotalTokens: 7,
	}}
	emb := NewInstrumentedEmbedder(inner, "openai", "test-model", zap.NewNop())

	res, err := emb.Embed(context.Background(), "quran")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embedding) != 2 || res.TotalTokens != 7 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestInstrumented_EmbedError(t *testing.T) {
	inner := &mockEmbedder{err: errors.New("down")}
	emb := NewInstrumentedEmbedder(inner, "openai", "test-model", zap.NewNop())

	_, err := emb.Embed(context.Background(), "quran")
	if err == nil {
		t.Fatal("expected error from inner")
	}
}

func TestInstrumented_BatchEmbed_Chunking(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:   []float32{0.5},
		TotalTokens: 1,
	}}
	emb := NewInstrumentedEmbedder(inner, "openai", "test-model", zap.NewNop())

	texts := make([]string, DefaultMaxAPIBatchSize+10)
	for i := range texts {
		texts[i] = "t"
	}

	res, err := emb.BatchEmbed(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != len(texts) {
		t.Fatalf("expected %d embeddings, got %d", len(texts), len(res.Embeddings))
	}
	if inner.batchCalls != 2 {
		t.Errorf("expected 2 chunks, got %d", inner.batchCalls)
	}
	if inner.batchSizes[0] != DefaultMaxAPIBatchSize || inner.batchSizes[1] != 10 {
		t.Errorf("unexpected chunk sizes: %v", inner.batchSizes)
	}
	if res.TotalTokens != len(texts) {
		t.Errorf("expected aggregated tokens %d, got %d", len(texts), res.TotalTokens)
	}
}

func TestInstrumented_BatchEmbed_FallbackForSingleEmbedder(t *testing.T) {
	inner := &singleEmbedder{}
	emb := NewInstrumentedEmbedder(inner, "openai", "test-model", zap.NewNop())

	res, err := emb.BatchEmbed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(res.Embeddings))
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 single Embed calls, got %d", inner.calls)
	}
}

func TestInstrumented_BatchEmbed_Empty(t *testing.T) {
	emb := NewInstrumentedEmbedder(&mockEmbedder{}, "openai", "test-model", zap.NewNop())

	res, err := emb.BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Embeddings != nil {
		t.Errorf("expected nil embeddings, got %v", res.Embeddings)
	}
}
