// Package boost scores candidates: metadata match strength and quality
// signals adjust the raw vector distance into a combined relevance score.
package boost

import (
	"strconv"

	"github.com/maknoon-cloud/qurandex/internal/domain/search/candidate"
	"github.com/maknoon-cloud/qurandex/internal/domain/search/filter"
)

// Reason types for quality-signal boosts.
const (
	ReasonFeatured = "featured"
	ReasonRating   = "rating"
)

// Weights holds the tunable boost increments. Zero-value weights disable
// boosting entirely (boost stays 1.0).
type Weights struct {
	PerMatch        float64 // per matched filter value beyond the first of its type
	Featured        float64 // flat increment for featured documents
	HighRating      float64 // flat increment for rating >= RatingThreshold
	RatingThreshold float64
}

// DefaultWeights returns the seed boost configuration.
func DefaultWeights() Weights {
	return Weights{
		PerMatch:        0.1,
		Featured:        0.05,
		HighRating:      0.05,
		RatingThreshold: 4.5,
	}
}

// Engine computes deterministic, pure boost scores.
type Engine struct {
	weights Weights
}

// New creates a boosting engine.
func New(w Weights) *Engine {
	return &Engine{weights: w}
}

// Score computes the candidate's boost against the active filters and
// applies it in place. boost = 1.0 + per-match increments + quality
// increments; combined = (1 - distance/2) * boost. Pure function of the
// candidate, the filters, and the configured weights.
func (e *Engine) Score(c *candidate.Candidate, filters filter.Map) {
	boost := 1.0
	var reasons []candidate.MatchReason

	doc := c.Document()
	for _, metaType := range filters.Types() {
		matched := 0
		for _, v := range filters.Values(metaType) {
			if !doc.HasMetadataValue(metaType, v) {
				continue
			}
			reasons = append(reasons, candidate.MatchReason{Type: metaType, Value: v})
			matched++
			if matched > 1 {
				boost += e.weights.PerMatch
			}
		}
	}

	q := doc.Quality()
	if q.Featured && e.weights.Featured > 0 {
		boost += e.weights.Featured
		reasons = append(reasons, candidate.MatchReason{Type: ReasonFeatured, Value: "true"})
	}
	if e.weights.RatingThreshold > 0 && q.Rating >= e.weights.RatingThreshold && e.weights.HighRating > 0 {
		boost += e.weights.HighRating
		reasons = append(reasons, candidate.MatchReason{
			Type: ReasonRating, Value: strconv.FormatFloat(q.Rating, 'f', 1, 64),
		})
	}

	similarity := 1.0 - c.Distance()/candidate.MaxCosineDistance
	c.ApplyBoost(boost, similarity*boost, reasons)
}
