// Package candidate holds the transient per-request scoring state of a
// retrieved document as it moves through the pipeline stages.
package candidate

import (
	"fmt"

	"github.com/maknoon-cloud/qurandex/internal/domain/document"
)

// MaxCosineDistance is the upper bound of normalized cosine distance.
const MaxCosineDistance = 2.0

// MatchReason records one metadata or quality match that contributed to the
// boost, in evaluation order, for explainability.
type MatchReason struct {
	Type  string
	Value string
}

// Candidate is a retrieved document with its evolving scores. Created at
// retrieval time, boosted and optionally reranked, discarded after the
// response is built.
type Candidate struct {
	doc           document.Document
	distance      float64
	metadataBoost float64
	combinedScore float64
	matchReasons  []MatchReason
	aiReasoning   string
}

// New creates a candidate from a retrieval hit.
func New(doc document.Document, distance float64) (Candidate, error) {
	if distance < 0 || distance > MaxCosineDistance {
		return Candidate{}, fmt.Errorf("distance %g outside cosine range [0, %g]", distance, MaxCosineDistance)
	}
	return Candidate{doc: doc, distance: distance, metadataBoost: 1.0}, nil
}

// Document returns the underlying searchable document.
func (c *Candidate) Document() *document.Document { return &c.doc }

// Distance returns the cosine distance from the query embedding (lower = closer).
func (c *Candidate) Distance() float64 { return c.distance }

// MetadataBoost returns the multiplicative boost (1.0 = no boost).
func (c *Candidate) MetadataBoost() float64 { return c.metadataBoost }

// CombinedScore returns the boosted relevance score (higher = better).
func (c *Candidate) CombinedScore() float64 { return c.combinedScore }

// MatchReasons returns the ordered list of contributing matches.
func (c *Candidate) MatchReasons() []MatchReason { return c.matchReasons }

// AIReasoning returns the reranker justification (empty unless reranked).
func (c *Candidate) AIReasoning() string { return c.aiReasoning }

// ApplyBoost records the boosting engine output.
func (c *Candidate) ApplyBoost(boost, combined float64, reasons []MatchReason) {
	c.metadataBoost = boost
	c.combinedScore = combined
	c.matchReasons = reasons
}

// SetAIReasoning attaches the reranker justification.
func (c *Candidate) SetAIReasoning(s string) { c.aiReasoning = s }
