// Package qurandex provides a Go client for the qurandex hybrid search
// API: semantic search over a directory of Quran applications with
// metadata filtering, faceting, boosting, and optional LLM reranking.
//
//	client := qurandex.New("http://localhost:8080", qurandex.WithAPIKey("secret"))
//	res, err := client.Search(ctx, qurandex.SearchRequest{
//	    Query:         "مصحف بدون انترنت",
//	    Filters:       map[string][]string{"features": {"offline"}},
//	    Limit:         10,
//	    IncludeFacets: true,
//	})
package qurandex
