// Package chi exposes the HTTP API: search, app entry CRUD, batch
// indexing, health, and Prometheus metrics.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/maknoon-cloud/qurandex/internal/domain"
	"github.com/maknoon-cloud/qurandex/internal/domain/search/filter"
	"github.com/maknoon-cloud/qurandex/internal/domain/search/request"
	"github.com/maknoon-cloud/qurandex/internal/metrics"
	healthuc "github.com/maknoon-cloud/qurandex/internal/usecase/health"
	indexuc "github.com/maknoon-cloud/qurandex/internal/usecase/index"
	searchuc "github.com/maknoon-cloud/qurandex/internal/usecase/search"
)

const defaultListLimit = 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP API server.
type Server struct {
	search        *searchuc.Service
	index         *indexuc.Service
	health        *healthuc.Service
	apiKeys       []string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	index *indexuc.Service,
	health *healthuc.Service,
	apiKeys []string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:  search,
		index:   index,
		health:  health,
		apiKeys: apiKeys,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, CodeAppNotFound),
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, CodeVectorDimMismatch),
		sentinelHandler(domain.ErrProviderUnavailable, http.StatusBadGateway, CodeProviderUnavailable),
	}
	return s
}

// Router builds the chi router with middleware and all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware())
	r.Use(BearerAuthMiddleware(s.apiKeys))

	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/search", s.Search)
	r.Route("/apps", func(r chi.Router) {
		r.Get("/", s.ListApps)
		r.Post("/batch", s.BatchUpsert)
		r.Route("/{id}", func(r chi.Router) {
			r.Put("/", s.UpsertApp)
			r.Get("/", s.GetApp)
			r.Delete("/", s.DeleteApp)
		})
	})

	return r
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	filters, err := filter.New(req.Filters)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	searchReq, err := request.New(
		req.Query, filters, req.Limit, req.RerankTopK, req.IncludeFacets, req.Rerank,
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	res, err := s.search.Search(r.Context(), searchReq)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]SearchResultItem, len(res.Items))
	for i, item := range res.Items {
		items[i] = searchItemToResponse(item)
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Items:  items,
		Facets: res.Facets,
		Mode:   res.Mode,
		Total:  res.Total,
	})
}

// UpsertApp handles PUT /apps/{id}.
func (s *Server) UpsertApp(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpsertAppRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	created, err := s.index.Upsert(r.Context(), appInputFromUpsert(id, req))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		w.Header().Set("Location", "/apps/"+id)
	}
	writeJSON(w, status, map[string]string{"id": id})
}

// GetApp handles GET /apps/{id}.
func (s *Server) GetApp(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, err := s.index.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, appToResponse(&doc))
}

// DeleteApp handles DELETE /apps/{id}.
func (s *Server) DeleteApp(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.index.Delete(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListApps handles GET /apps.
func (s *Server) ListApps(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "limit must be a positive integer")
			return
		}
		limit = n
	}

	docs, nextCursor, err := s.index.List(r.Context(), cursor, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]AppResponse, len(docs))
	for i := range docs {
		items[i] = appToResponse(&docs[i])
	}

	writeJSON(w, http.StatusOK, AppListResponse{
		Items:      items,
		HasMore:    nextCursor != "",
		NextCursor: nextCursor,
	})
}

// BatchUpsert handles POST /apps/batch.
func (s *Server) BatchUpsert(w http.ResponseWriter, r *http.Request) {
	var req BatchUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Apps) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "apps must not be empty")
		return
	}

	inputs := make([]indexuc.AppInput, len(req.Apps))
	for i, item := range req.Apps {
		inputs[i] = appInputFromUpsert(item.ID, item.UpsertAppRequest)
	}

	results := s.index.UpsertBatch(r.Context(), inputs)

	succeeded, failed := 0, 0
	items := make([]BatchResultItem, len(results))
	for i, res := range results {
		items[i] = BatchResultItem{ID: res.ID, Created: res.Created}
		if res.Err != nil {
			failed++
			items[i].Error = &ErrorResponse{
				Code:    batchErrorCode(res.Err),
				Message: safeDomainMessage(res.Err),
			}
		} else {
			succeeded++
		}
	}

	writeJSON(w, http.StatusOK, BatchUpsertResponse{
		Items:     items,
		Succeeded: succeeded,
		Failed:    failed,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == healthuc.StatusDown {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client-safe message without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrDocumentNotFound,
		domain.ErrInvalidArgument,
		domain.ErrVectorDimMismatch,
		domain.ErrProviderUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler matching a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, _ string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, safeDomainMessage(err))
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func batchErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return CodeValidationFailed
	case errors.Is(err, domain.ErrVectorDimMismatch):
		return CodeVectorDimMismatch
	case errors.Is(err, domain.ErrProviderUnavailable):
		return CodeProviderUnavailable
	default:
		return CodeInternalError
	}
}
