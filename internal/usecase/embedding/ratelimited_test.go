package embedding

import (
	"context"
	"testing"
	"time"

	"github.com/maknoon-cloud/qurandex/internal/domain"
)

func TestRateLimited_Disabled(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}}}
	emb := NewRateLimitedEmbedder(inner, 0, 0)

	res, err := emb.Embed(context.Background(), "quran")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embedding) != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestRateLimited_AllowsBurst(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}}}
	emb := NewRateLimitedEmbedder(inner, 1, 3)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	for i := 0; i < 3; i++ {
		if _, err := emb.Embed(ctx, "quran"); err != nil {
			t.Fatalf("burst call %d failed: %v", i, err)
		}
	}
}

func TestRateLimited_BlocksBeyondBurst(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}}}
	// 1 request per 10s, burst 1: the second call cannot get a token in time
	emb := NewRateLimitedEmbedder(inner, 0.1, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := emb.Embed(ctx, "quran"); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if _, err := emb.Embed(ctx, "quran"); err == nil {
		t.Fatal("expected second call to fail on exhausted bucket")
	}
}

func TestRateLimited_BatchConsumesOneToken(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}}}
	emb := NewRateLimitedEmbedder(inner, 0.1, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res, err := emb.BatchEmbed(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(res.Embeddings))
	}
	if inner.batchCalls != 1 {
		t.Errorf("expected 1 inner batch call, got %d", inner.batchCalls)
	}
}

func TestRateLimited_BatchEmpty(t *testing.T) {
	inner := &mockEmbedder{}
	emb := NewRateLimitedEmbedder(inner, 1, 1)

	res, err := emb.BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Embeddings != nil {
		t.Errorf("expected nil embeddings, got %v", res.Embeddings)
	}
	if inner.batchCalls != 0 {
		t.Errorf("expected no inner calls for empty batch, got %d", inner.batchCalls)
	}
}
