package chi

import (
	"sort"

	domdoc "github.com/maknoon-cloud/qurandex/internal/domain/document"
	"github.com/maknoon-cloud/qurandex/internal/domain/search/facet"
	indexuc "github.com/maknoon-cloud/qurandex/internal/usecase/index"
	searchuc "github.com/maknoon-cloud/qurandex/internal/usecase/search"
)

// ErrorCode is the machine-readable error class in error responses.
type ErrorCode string

// Error codes returned by the API.
const (
	CodeBadRequest          ErrorCode = "bad_request"
	CodeValidationFailed    ErrorCode = "validation_failed"
	CodeAppNotFound         ErrorCode = "app_not_found"
	CodeVectorDimMismatch   ErrorCode = "vector_dim_mismatch"
	CodeProviderUnavailable ErrorCode = "provider_unavailable"
	CodeUnauthorized        ErrorCode = "unauthorized"
	CodeInternalError       ErrorCode = "internal_error"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchRequest is the POST /search body.
type SearchRequest struct {
	Query         string              `json:"query"`
	Filters       map[string][]string `json:"filters,omitempty"`
	Limit         int                 `json:"limit,omitempty"`
	RerankTopK    int                 `json:"rerank_top_k,omitempty"`
	IncludeFacets bool                `json:"include_facets,omitempty"`
	Rerank        bool                `json:"rerank,omitempty"`
}

// MatchReason is one boost contribution, in evaluation order.
type MatchReason struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Quality carries the quality signals of an app entry.
type Quality struct {
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	Featured    bool    `json:"featured"`
}

// SearchResultItem is one ranked result.
type SearchResultItem struct {
	ID            string              `json:"id"`
	Distance      float64             `json:"distance"`
	MetadataBoost float64             `json:"metadata_boost"`
	CombinedScore float64             `json:"combined_score"`
	MatchReasons  []MatchReason       `json:"match_reasons,omitempty"`
	AIReasoning   string              `json:"ai_reasoning,omitempty"`
	Metadata      map[string][]string `json:"metadata,omitempty"`
	Quality       Quality             `json:"quality"`
}

// SearchResponse is the POST /search response body.
type SearchResponse struct {
	Items  []SearchResultItem `json:"items"`
	Facets facet.Result       `json:"facets,omitempty"`
	Mode   string             `json:"mode"`
	Total  int                `json:"total"`
}

// UpsertAppRequest is the PUT /apps/{id} body.
type UpsertAppRequest struct {
	NameAr         string              `json:"name_ar"`
	NameEn         string              `json:"name_en,omitempty"`
	ShortDesc      string              `json:"short_desc,omitempty"`
	Description    string              `json:"description,omitempty"`
	Developer      string              `json:"developer,omitempty"`
	Categories     []string            `json:"categories,omitempty"`
	CrawledContent string              `json:"crawled_content,omitempty"`
	Metadata       map[string][]string `json:"metadata,omitempty"`
	Quality        Quality             `json:"quality"`
}

// AppResponse is the representation of a stored app entry.
type AppResponse struct {
	ID       string              `json:"id"`
	Metadata map[string][]string `json:"metadata,omitempty"`
	Quality  Quality             `json:"quality"`
}

// AppListResponse is the GET /apps response body.
type AppListResponse struct {
	Items      []AppResponse `json:"items"`
	HasMore    bool          `json:"has_more"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// BatchUpsertItem is one entry of a batch request.
type BatchUpsertItem struct {
	ID string `json:"id"`
	UpsertAppRequest
}

// BatchUpsertRequest is the POST /apps/batch body.
type BatchUpsertRequest struct {
	Apps []BatchUpsertItem `json:"apps"`
}

// BatchResultItem reports the per-item outcome of a batch upsert.
type BatchResultItem struct {
	ID      string         `json:"id"`
	Created bool           `json:"created"`
	Error   *ErrorResponse `json:"error,omitempty"`
}

// BatchUpsertResponse is the POST /apps/batch response body.
type BatchUpsertResponse struct {
	Items     []BatchResultItem `json:"items"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

func appInputFromUpsert(id string, req UpsertAppRequest) indexuc.AppInput {
	return indexuc.AppInput{
		ID: id,
		Source: domdoc.Source{
			NameAr:         req.NameAr,
			NameEn:         req.NameEn,
			ShortDesc:      req.ShortDesc,
			Description:    req.Description,
			Developer:      req.Developer,
			Categories:     req.Categories,
			MetadataLabels: metadataLabels(req.Metadata),
			CrawledContent: req.CrawledContent,
		},
		Metadata: req.Metadata,
		Quality: domdoc.Quality{
			Rating:      req.Quality.Rating,
			ReviewCount: req.Quality.ReviewCount,
			Featured:    req.Quality.Featured,
		},
	}
}

// metadataLabels flattens metadata option values for text assembly.
// Types are visited in sorted order so the assembled primary text is
// deterministic and cache keys stay stable across submissions.
func metadataLabels(metadata map[string][]string) []string {
	if len(metadata) == 0 {
		return nil
	}
	types := make([]string, 0, len(metadata))
	for t := range metadata {
		types = append(types, t)
	}
	sort.Strings(types)

	var labels []string
	for _, t := range types {
		labels = append(labels, metadata[t]...)
	}
	return labels
}

func appToResponse(doc *domdoc.Document) AppResponse {
	return AppResponse{
		ID:       doc.ID(),
		Metadata: doc.Metadata(),
		Quality: Quality{
			Rating:      doc.Quality().Rating,
			ReviewCount: doc.Quality().ReviewCount,
			Featured:    doc.Quality().Featured,
		},
	}
}

func searchItemToResponse(item searchuc.Item) SearchResultItem {
	reasons := make([]MatchReason, len(item.MatchReasons))
	for i, r := range item.MatchReasons {
		reasons[i] = MatchReason{Type: r.Type, Value: r.Value}
	}
	if len(reasons) == 0 {
		reasons = nil
	}
	return SearchResultItem{
		ID:            item.ID,
		Distance:      item.Distance,
		MetadataBoost: item.MetadataBoost,
		CombinedScore: item.CombinedScore,
		MatchReasons:  reasons,
		AIReasoning:   item.AIReasoning,
		Metadata:      item.Metadata,
		Quality: Quality{
			Rating:      item.Quality.Rating,
			ReviewCount: item.Quality.ReviewCount,
			Featured:    item.Quality.Featured,
		},
	}
}
