package notion

import (
	"context"
	"net/http"
	"net/url"
)

// CreatePage creates a database row.
func (c *Client) CreatePage(ctx context.Context, req CreatePageRequest) (Page, error) {
	var page Page
	err := c.do(ctx, http.MethodPost, "/pages", nil, jsonBody(req), &page)
	return page, err
}

// RetrievePage fetches a page and its properties.
func (c *Client) RetrievePage(ctx context.Context, id string) (Page, error) {
	var page Page
	err := c.do(ctx, http.MethodGet, "/pages/"+url.PathEscape(id), nil, nil, &page)
	return page, err
}

// UpdatePage replaces the given properties of a page.
func (c *Client) UpdatePage(ctx context.Context, id string, props Properties) (Page, error) {
	var page Page
	payload := struct {
		Properties Properties `json:"properties"`
	}{Properties: props}
	err := c.do(ctx, http.MethodPatch, "/pages/"+url.PathEscape(id), nil, jsonBody(payload), &page)
	return page, err
}

// QueryDatabase returns one page of rows matching q.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, q DatabaseQuery) (QueryResult, error) {
	if q.PageSize <= 0 || q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	var result QueryResult
	err := c.do(ctx, http.MethodPost, "/databases/"+url.PathEscape(databaseID)+"/query", nil, jsonBody(q), &result)
	return result, err
}
