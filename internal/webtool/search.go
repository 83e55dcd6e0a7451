// Package webtool implements the search collaborator against a
// Tavily-style JSON search API.
package webtool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/petrijr/deepdive/pkg/api"
)

// DefaultBaseURL points at the hosted Tavily endpoint.
const DefaultBaseURL = "https://api.tavily.com"

// Client is an api.Searcher backed by an HTTP search API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	maxResults int
}

// Ensure Client implements api.Searcher.
var _ api.Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different endpoint, typically a test
// server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxResults caps how many results one search returns.
func WithMaxResults(n int) Option {
	return func(c *Client) { c.maxResults = n }
}

// NewClient creates a search client. The API key is required by the
// hosted endpoint; test servers may ignore it.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		maxResults: 5,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type searchResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search executes one sub-query. The caller owns retry and timeout policy
// via ctx; this client does one attempt per call.
func (c *Client) Search(ctx context.Context, subQuery string) ([]api.SearchResult, error) {
	body, err := json.Marshal(searchRequest{
		APIKey:      c.apiKey,
		Query:       subQuery,
		MaxResults:  c.maxResults,
		SearchDepth: "advanced",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read a little of the body for the error message; ignore read errors.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("search returned status %d: %s", resp.StatusCode, snippet)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]api.SearchResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		results = append(results, api.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Score:   r.Score,
		})
	}
	return results, nil
}
