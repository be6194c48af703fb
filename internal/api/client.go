package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/banshee-data/agentsim/internal/agent"
	"github.com/banshee-data/agentsim/internal/httputil"
	"github.com/banshee-data/agentsim/internal/monitoring"
	"github.com/banshee-data/agentsim/internal/scheduler"
)

// Client talks to a running simulation's status API.
type Client struct {
	BaseURL string
	HTTP    httputil.HTTPClient
}

// NewClient returns a client for the API at baseURL. A nil hc uses
// http.DefaultClient.
func NewClient(baseURL string, hc httputil.HTTPClient) *Client {
	if hc == nil {
		hc = httputil.NewStandardClient(nil)
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: hc}
}

// Status fetches GET /api/status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var s Status
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &s)
	return s, err
}

// Agents fetches GET /api/agents.
func (c *Client) Agents(ctx context.Context) ([]agent.View, error) {
	var out []agent.View
	err := c.do(ctx, http.MethodGet, "/api/agents", nil, &out)
	return out, err
}

// Lanes fetches GET /api/lanes.
func (c *Client) Lanes(ctx context.Context) ([]scheduler.LaneStats, error) {
	var out []scheduler.LaneStats
	err := c.do(ctx, http.MethodGet, "/api/lanes", nil, &out)
	return out, err
}

// Diagnostics fetches up to limit recent diagnostics.
func (c *Client) Diagnostics(ctx context.Context, limit int) ([]monitoring.Diagnostic, error) {
	var out []monitoring.Diagnostic
	err := c.do(ctx, http.MethodGet, "/api/diagnostics?limit="+strconv.Itoa(limit), nil, &out)
	return out, err
}

// SetGoal sends PUT /api/agents/{id}/goal and returns the updated agent.
func (c *Client) SetGoal(ctx context.Context, id agent.ID, g GoalRequest) (agent.View, error) {
	var v agent.View
	err := c.do(ctx, http.MethodPut, "/api/agents/"+url.PathEscape(id.String())+"/goal", g, &v)
	return v, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			return fmt.Errorf("%s %s: %d: %s", method, path, resp.StatusCode, e.Error)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
