package qurandex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Search runs a hybrid search query.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	var res SearchResponse
	err := c.do(ctx, http.MethodPost, "/search", req, &res)
	return res, err
}

// UpsertApp creates or replaces one app entry.
func (c *Client) UpsertApp(ctx context.Context, id string, app App) error {
	return c.do(ctx, http.MethodPut, "/apps/"+url.PathEscape(id), app, nil)
}

// GetApp fetches one stored app entry.
func (c *Client) GetApp(ctx context.Context, id string) (StoredApp, error) {
	var app StoredApp
	err := c.do(ctx, http.MethodGet, "/apps/"+url.PathEscape(id), nil, &app)
	return app, err
}

// DeleteApp removes one app entry.
func (c *Client) DeleteApp(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/apps/"+url.PathEscape(id), nil, nil)
}

// ListApps returns one page of stored app entries.
func (c *Client) ListApps(ctx context.Context, cursor string, limit int) (AppList, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/apps/"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var list AppList
	err := c.do(ctx, http.MethodGet, path, nil, &list)
	return list, err
}

// BatchUpsert indexes app entries in one request with per-item results.
func (c *Client) BatchUpsert(ctx context.Context, apps []BatchApp) (BatchResult, error) {
	var res BatchResult
	err := c.do(ctx, http.MethodPost, "/apps/batch", map[string][]BatchApp{"apps": apps}, &res)
	return res, err
}

// Health fetches the server health report. The server answers 503 when a
// hard dependency is down; the report body is still returned in that case
// rather than an error, so transport failures are the only errors here.
func (c *Client) Health(ctx context.Context) (HealthReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return HealthReport{}, fmt.Errorf("qurandex: new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return HealthReport{}, fmt.Errorf("qurandex: GET /health: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return HealthReport{}, parseAPIError(resp)
	}

	var report HealthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return HealthReport{}, fmt.Errorf("qurandex: decode health report: %w", err)
	}
	return report, nil
}
