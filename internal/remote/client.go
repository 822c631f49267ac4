// Package remote implements the REST client for the hosted Postgres data
// API that mirrors the local cache.
//
// The API exposes one table resource per collection under /rest/v1/ with
// PostgREST-style filtering. The client is stateless beyond its base
// address and credential, performs no retries, and reports any non-2xx
// status or transport failure as an error; retry and failure policy
// belong to the sync engine.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/arclist/arclist/internal/model"
)

// Config holds the static configuration for the remote data API.
// BaseURL and APIKey are both required.
type Config struct {
	// BaseURL is the API root, e.g. https://abc.supabase.co
	BaseURL string
	// APIKey is sent as the apikey header and as a bearer token.
	APIKey string
	// HTTPClient overrides the default client (mainly for tests).
	HTTPClient *http.Client
}

// Client talks to the remote data API. Safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New validates cfg and returns a client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("remote base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("remote API key is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    httpClient,
	}, nil
}

// FetchAll reads every record of a collection. An empty or no-content
// response normalizes to an empty JSON array.
func (c *Client) FetchAll(ctx context.Context, collection model.Collection) (json.RawMessage, error) {
	query := url.Values{"select": {"*"}}
	body, err := c.do(ctx, http.MethodGet, collection, query, nil, nil)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return json.RawMessage("[]"), nil
	}
	var probe []json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("malformed response for %s: %w", collection, err)
	}
	return body, nil
}

// Insert appends records to a collection. The body must be a JSON array.
func (c *Client) Insert(ctx context.Context, collection model.Collection, records json.RawMessage) error {
	_, err := c.do(ctx, http.MethodPost, collection, nil, records, nil)
	return err
}

// Upsert inserts or updates records keyed by id. The server stamps a
// last-modified timestamp on each written record.
func (c *Client) Upsert(ctx context.Context, collection model.Collection, records json.RawMessage) error {
	query := url.Values{"on_conflict": {"id"}}
	headers := http.Header{"Prefer": {"resolution=merge-duplicates"}}
	_, err := c.do(ctx, http.MethodPost, collection, query, records, headers)
	return err
}

// PatchByID applies a partial record to the row matching id.
func (c *Client) PatchByID(ctx context.Context, collection model.Collection, id string, partial json.RawMessage) error {
	query := url.Values{"id": {"eq." + id}}
	_, err := c.do(ctx, http.MethodPatch, collection, query, partial, nil)
	return err
}

// DeleteByID removes the row matching id. Success yields an empty
// result regardless of the response body.
func (c *Client) DeleteByID(ctx context.Context, collection model.Collection, id string) error {
	query := url.Values{"id": {"eq." + id}}
	_, err := c.do(ctx, http.MethodDelete, collection, query, nil, nil)
	return err
}

// do issues one request and returns the response body. Non-2xx statuses
// become errors carrying the status and a snippet of the body.
func (c *Client) do(ctx context.Context, method string, collection model.Collection, query url.Values, body json.RawMessage, extra http.Header) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, collection)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s %s request: %w", method, collection, err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range extra {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, collection, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s %s: failed to read response: %w", method, collection, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s %s: status %d: %s", method, collection, resp.StatusCode, snippet(data))
	}
	return data, nil
}

// snippet trims a response body for error messages.
func snippet(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		s = "(empty body)"
	}
	return s
}
