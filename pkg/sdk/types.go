package qurandex

// SearchRequest is the POST /search body.
type SearchRequest struct {
	Query         string              `json:"query"`
	Filters       map[string][]string `json:"filters,omitempty"`
	Limit         int                 `json:"limit,omitempty"`
	RerankTopK    int                 `json:"rerank_top_k,omitempty"`
	IncludeFacets bool                `json:"include_facets,omitempty"`
	Rerank        bool                `json:"rerank,omitempty"`
}

// MatchReason is one boost contribution.
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

// FacetCount is one option value with its document count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// SearchResponse is the result of a search call.
type SearchResponse struct {
	Items  []SearchResultItem      `json:"items"`
	Facets map[string][]FacetCount `json:"facets,omitempty"`
	Mode   string                  `json:"mode"`
	Total  int                     `json:"total"`
}

// App is an app entry submitted for indexing.
type App struct {
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

// StoredApp is the server's representation of an indexed app entry.
type StoredApp struct {
	ID       string              `json:"id"`
	Metadata map[string][]string `json:"metadata,omitempty"`
	Quality  Quality             `json:"quality"`
}

// AppList is one page of stored app entries.
type AppList struct {
	Items      []StoredApp `json:"items"`
	HasMore    bool        `json:"has_more"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// BatchApp is one entry of a batch upsert.
type BatchApp struct {
	ID string `json:"id"`
	App
}

// ErrorDetail is the error body attached to a failed batch item.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BatchResultItem reports the per-item outcome of a batch upsert.
type BatchResultItem struct {
	ID      string       `json:"id"`
	Created bool         `json:"created"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// BatchResult summarizes a batch upsert.
type BatchResult struct {
	Items     []BatchResultItem `json:"items"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

// HealthReport is the aggregated health snapshot.
type HealthReport struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}
