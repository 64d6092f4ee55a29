// Package client provides an HTTP client for the replicad daemon API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Client talks to a running replicad daemon over its REST API.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration.
type Config struct {
	BaseURL string // e.g. "http://localhost:8080/api/v1"
	Timeout time.Duration
	Logger  *slog.Logger // optional
}

// DefaultConfig returns default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080/api/v1",
		Timeout: 30 * time.Second,
	}
}

// New creates a replicad API client.
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8080/api/v1"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL: config.BaseURL,
		logger:  config.Logger,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// IsReachable checks whether the daemon answers requests.
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/replicas", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("daemon unreachable", "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode != http.StatusNotFound
}

// Create submits a replica creation request. The daemon responds as soon as
// the worker is spawned; use Get to follow bring-up progress.
func (c *Client) Create(ctx context.Context, req CreateRequest) (Replica, error) {
	c.logger.Debug("creating replica", "mode", req.Mode, "model", req.ModelName)
	data, err := json.Marshal(req)
	if err != nil {
		return Replica{}, fmt.Errorf("marshal request: %w", err)
	}
	var out Replica
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/replicas", data, &out); err != nil {
		return Replica{}, err
	}
	return out, nil
}

// ListFilter narrows List results; empty fields match everything.
type ListFilter struct {
	Mode   string
	Status string
	Model  string
}

// List returns replicas matching the filter, newest first.
func (c *Client) List(ctx context.Context, f ListFilter) ([]Replica, error) {
	q := url.Values{}
	if f.Mode != "" {
		q.Set("mode", f.Mode)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Model != "" {
		q.Set("model", f.Model)
	}
	u := c.baseURL + "/replicas"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var out ListResponse
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &out); err != nil {
		return nil, err
	}
	return out.Replicas, nil
}

// Get returns the current record for one replica.
func (c *Client) Get(ctx context.Context, id string) (Replica, error) {
	var out Replica
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/replicas/"+url.PathEscape(id), nil, &out); err != nil {
		return Replica{}, err
	}
	return out, nil
}

// Stop requests a graceful stop; force escalates straight to a kill.
func (c *Client) Stop(ctx context.Context, id string, force bool) (Replica, error) {
	u := c.baseURL + "/replicas/" + url.PathEscape(id) + "/stop"
	if force {
		u += "?force=true"
	}
	var out Replica
	if err := c.doJSON(ctx, http.MethodPost, u, nil, &out); err != nil {
		return Replica{}, err
	}
	return out, nil
}

// Delete force-stops the replica and removes its record.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, c.baseURL+"/replicas/"+url.PathEscape(id), nil, nil)
}

// Health returns the recorded health of one replica.
func (c *Client) Health(ctx context.Context, id string) (Health, error) {
	var out Health
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/replicas/"+url.PathEscape(id)+"/health", nil, &out); err != nil {
		return Health{}, err
	}
	return out, nil
}

// doJSON performs the request and decodes a JSON response into out (when
// non-nil). Non-2xx responses are surfaced as API errors.
func (c *Client) doJSON(ctx context.Context, method, u string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("http request failed", "url", u, "error", err)
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error == "" {
			return fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		return fmt.Errorf("API error: %s", errResp.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
