package chi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/maknoon-cloud/qurandex/internal/domain"
	"github.com/maknoon-cloud/qurandex/internal/domain/search/candidate"
)

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestSearchEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.retriever.cands = []candidate.Candidate{
		testCandidate(t, "maknoon-quran", 0.1, map[string][]string{"riwayah": {"hafs"}}),
		testCandidate(t, "ayah", 0.3, map[string][]string{"riwayah": {"warsh"}}),
	}

	resp := doJSON(t, http.MethodPost, env.server.URL+"/search", SearchRequest{
		Query:         "quran offline",
		IncludeFacets: true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody[SearchResponse](t, resp)
	if body.Mode != "vector" {
		t.Errorf("expected vector mode, got %q", body.Mode)
	}
	if len(body.Items) != 2 || body.Items[0].ID != "maknoon-quran" {
		t.Errorf("unexpected items: %+v", body.Items)
	}
	if body.Items[0].CombinedScore <= body.Items[1].CombinedScore {
		t.Error("expected descending scores")
	}
	if len(body.Facets["riwayah"]) != 2 {
		t.Errorf("expected riwayah facets, got %v", body.Facets)
	}
}

func TestSearchEndpoint_InvalidBody(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Post(env.server.URL+"/search", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decodeBody[ErrorResponse](t, resp)
	if body.Code != CodeBadRequest {
		t.Errorf("expected %q, got %q", CodeBadRequest, body.Code)
	}
}

func TestSearchEndpoint_EmptyQuery(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := doJSON(t, http.MethodPost, env.server.URL+"/search", SearchRequest{Query: ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decodeBody[ErrorResponse](t, resp)
	if body.Code != CodeValidationFailed {
		t.Errorf("expected %q, got %q", CodeValidationFailed, body.Code)
	}
}

func TestSearchEndpoint_BadFilters(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := doJSON(t, http.MethodPost, env.server.URL+"/search", SearchRequest{
		Query:   "quran",
		Filters: map[string][]string{"riwayah": {}},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func testUpsertBody() UpsertAppRequest {
	return UpsertAppRequest{
		NameAr:    "مصحف مكنون",
		NameEn:    "Maknoon Quran",
		ShortDesc: "quran reader with tajweed",
		Metadata:  map[string][]string{"riwayah": {"hafs"}},
		Quality:   Quality{Rating: 4.8, ReviewCount: 1200, Featured: true},
	}
}

func TestUpsertApp(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := doJSON(t, http.MethodPut, env.server.URL+"/apps/maknoon-quran", testUpsertBody())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/apps/maknoon-quran" {
		t.Errorf("unexpected Location: %q", loc)
	}

	// Second upsert updates in place.
	resp = doJSON(t, http.MethodPut, env.server.URL+"/apps/maknoon-quran", testUpsertBody())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on update, got %d", resp.StatusCode)
	}
}

func TestUpsertApp_InvalidID(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := doJSON(t, http.MethodPut, env.server.URL+"/apps/bad%20id", testUpsertBody())
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decodeBody[ErrorResponse](t, resp)
	if body.Code != CodeValidationFailed {
		t.Errorf("expected %q, got %q", CodeValidationFailed, body.Code)
	}
}

func TestUpsertApp_ProviderUnavailable(t *testing.T) {
	env := newTestEnv(t, nil)
	env.embedder.err = domain.ErrProviderUnavailable

	resp := doJSON(t, http.MethodPut, env.server.URL+"/apps/maknoon-quran", testUpsertBody())
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	body := decodeBody[ErrorResponse](t, resp)
	if body.Code != CodeProviderUnavailable {
		t.Errorf("expected %q, got %q", CodeProviderUnavailable, body.Code)
	}
}

func TestGetApp(t *testing.T) {
	env := newTestEnv(t, nil)
	doJSON(t, http.MethodPut, env.server.URL+"/apps/maknoon-quran", testUpsertBody())

	resp, err := http.Get(env.server.URL + "/apps/maknoon-quran")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody[AppResponse](t, resp)
	if body.ID != "maknoon-quran" {
		t.Errorf("unexpected ID: %q", body.ID)
	}
	if got := body.Metadata["riwayah"]; len(got) != 1 || got[0] != "hafs" {
		t.Errorf("unexpected metadata: %v", body.Metadata)
	}
	if !body.Quality.Featured || body.Quality.Rating != 4.8 {
		t.Errorf("unexpected quality: %+v", body.Quality)
	}
}

func TestGetApp_NotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Get(env.server.URL + "/apps/missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	body := decodeBody[ErrorResponse](t, resp)
	if body.Code != CodeAppNotFound {
		t.Errorf("expected %q, got %q", CodeAppNotFound, body.Code)
	}
}

func TestDeleteApp(t *testing.T) {
	env := newTestEnv(t, nil)
	doJSON(t, http.MethodPut, env.server.URL+"/apps/maknoon-quran", testUpsertBody())

	req, _ := http.NewRequest(http.MethodDelete, env.server.URL+"/apps/maknoon-quran", http.NoBody)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodDelete, env.server.URL+"/apps/maknoon-quran", http.NoBody)
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete again: %v", err)
	}
	defer resp2.Body.Close()

	if resp2.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", resp2.StatusCode)
	}
}

func TestListApps(t *testing.T) {
	env := newTestEnv(t, nil)
	doJSON(t, http.MethodPut, env.server.URL+"/apps/app-a", testUpsertBody())
	doJSON(t, http.MethodPut, env.server.URL+"/apps/app-b", testUpsertBody())

	resp, err := http.Get(env.server.URL + "/apps/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody[AppListResponse](t, resp)
	if len(body.Items) != 2 {
		t.Errorf("expected 2 items, got %d", len(body.Items))
	}
	if body.HasMore {
		t.Error("expected has_more=false")
	}
}

func TestListApps_InvalidLimit(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Get(env.server.URL + "/apps/?limit=zero")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestBatchUpsert(t *testing.T) {
	env := newTestEnv(t, nil)

	req := BatchUpsertRequest{Apps: []BatchUpsertItem{
		{ID: "app-a", UpsertAppRequest: testUpsertBody()},
		{ID: "bad id", UpsertAppRequest: testUpsertBody()},
	}}
	resp := doJSON(t, http.MethodPost, env.server.URL+"/apps/batch", req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody[BatchUpsertResponse](t, resp)
	if body.Succeeded != 1 || body.Failed != 1 {
		t.Errorf("expected 1/1, got %d/%d", body.Succeeded, body.Failed)
	}
	if body.Items[1].Error == nil || body.Items[1].Error.Code != CodeValidationFailed {
		t.Errorf("expected validation error for bad id, got %+v", body.Items[1].Error)
	}
}

func TestBatchUpsert_Empty(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := doJSON(t, http.MethodPost, env.server.URL+"/apps/batch", BatchUpsertRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Get(env.server.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestHealthEndpoint_StoreDown(t *testing.T) {
	env := newTestEnv(t, nil)
	env.pinger.err = errors.New("connection refused")

	resp, err := http.Get(env.server.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Get(env.server.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
