package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/maknoon-cloud/qurandex/internal/domain"
	"github.com/maknoon-cloud/qurandex/internal/metrics"
)

const rerankSystemPrompt = `You are a search relevance judge for a directory of Quran applications.
Given a user query and a numbered list of candidate apps, reorder the candidates
from most to least relevant to the query. Judge relevance by how well the app's
description answers the user's intent, in Arabic or English.

Respond with a JSON array only, no prose. Each element:
{"id": "<candidate id>", "reason": "<one short sentence why it ranks here>"}
Include every candidate exactly once.`

// Reranker reorders search candidates with an LLM judgment call.
type Reranker struct {
	client   *openai.Client
	model    string
	provider string
	timeout  time.Duration
	logger   *zap.Logger
}

// RerankerConfig holds the LLM reranker settings.
type RerankerConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Provider string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// NewReranker creates an OpenAI-compatible LLM reranker.
func NewReranker(cfg *RerankerConfig) *Reranker {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Reranker{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		provider: cfg.Provider,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
	}
}

// Rerank implements domain.Reranker. Failures wrap domain.ErrProviderUnavailable
// so the caller can fall back to the pre-rerank order.
func (r *Reranker) Rerank(
	ctx context.Context, query string, candidates []domain.RerankCandidate,
) ([]domain.RerankItem, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: rerankSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildRerankPrompt(query, candidates)},
		},
	}

	start := time.Now()

	resp, err := r.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.RerankRequestsTotal.WithLabelValues(r.provider, r.model, "error").Inc()
		return nil, parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		metrics.RerankRequestsTotal.WithLabelValues(r.provider, r.model, "error").Inc()
		return nil, fmt.Errorf("empty rerank response: %w", domain.ErrProviderUnavailable)
	}

	items, err := parseRerankResponse(resp.Choices[0].Message.Content, candidates)
	if err != nil {
		metrics.RerankRequestsTotal.WithLabelValues(r.provider, r.model, "error").Inc()
		r.logger.Warn("Failed to parse rerank response",
			zap.String("model", r.model), zap.Error(err))
		return nil, err
	}

	metrics.RerankRequestsTotal.WithLabelValues(r.provider, r.model, "success").Inc()
	metrics.RerankRequestDuration.WithLabelValues(r.provider, r.model).Observe(duration.Seconds())

	return items, nil
}

// buildRerankPrompt renders the query and numbered candidate list.
// Candidate content is truncated so the prompt stays within context limits.
const maxCandidateContent = 600

func buildRerankPrompt(query string, candidates []domain.RerankCandidate) string {
	var sb strings.Builder
	sb.WriteString("Query: ")
	sb.WriteString(query)
	sb.WriteString("\n\nCandidates:\n")
	for i, c := range candidates {
		content := truncateRunes(c.Content, maxCandidateContent)
		fmt.Fprintf(&sb, "%d. id=%s score=%.4f\n%s\n\n", i+1, c.ID, c.Score, content)
	}
	return sb.String()
}

// truncateRunes cuts s to at most max bytes without splitting a rune.
// Arabic content is multi-byte throughout; a byte-offset cut would send
// invalid UTF-8 to the provider.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// parseRerankResponse parses the model's JSON array and validates it against
// the candidate set. Unknown or duplicate IDs fail the whole response; the
// caller falls back to the boosted order rather than trusting partial output.
func parseRerankResponse(content string, candidates []domain.RerankCandidate) ([]domain.RerankItem, error) {
	raw := extractJSONArray(content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON array in rerank response: %w", domain.ErrProviderUnavailable)
	}

	var parsed []struct {
		ID     string `json:"id"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse rerank response: %w: %w", err, domain.ErrProviderUnavailable)
	}

	known := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		known[c.ID] = true
	}

	items := make([]domain.RerankItem, 0, len(parsed))
	seen := make(map[string]bool, len(parsed))
	for _, p := range parsed {
		if !known[p.ID] {
			return nil, fmt.Errorf("rerank response names unknown id %q: %w", p.ID, domain.ErrProviderUnavailable)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("rerank response repeats id %q: %w", p.ID, domain.ErrProviderUnavailable)
		}
		seen[p.ID] = true
		items = append(items, domain.RerankItem{ID: p.ID, Reasoning: p.Reason})
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("rerank response is empty: %w", domain.ErrProviderUnavailable)
	}

	// Candidates the model dropped keep their relative order after the ranked ones.
	for _, c := range candidates {
		if !seen[c.ID] {
			items = append(items, domain.RerankItem{ID: c.ID})
		}
	}

	return items, nil
}

// extractJSONArray pulls the outermost JSON array out of the response,
// tolerating markdown code fences around it.
func extractJSONArray(content string) string {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}
