package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/comigor/chat-relay/internal/config"
)

// TavilyClient is a client for the Tavily search API
type TavilyClient struct {
	baseURL     string
	apiKey      string
	maxResults  int
	searchDepth string
	client      *http.Client
}

// NewTavilyClient creates a new TavilyClient
func NewTavilyClient(cfg config.SearchConfig) *TavilyClient {
	return &TavilyClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		maxResults:  cfg.MaxResults,
		searchDepth: cfg.SearchDepth,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

type tavilyRequest struct {
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results,omitempty"`
	SearchDepth string `json:"search_depth,omitempty"`
}

type tavilyResponse struct {
	Query   string   `json:"query"`
	Results []Record `json:"results"`
}

// Search calls POST /search and returns the results in the order Tavily ranked them.
func (c *TavilyClient) Search(ctx context.Context, query string) ([]Record, error) {
	body, err := json.Marshal(tavilyRequest{
		Query:       query,
		MaxResults:  c.maxResults,
		SearchDepth: c.searchDepth,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tavily search: unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("tavily search: decode response: %w", err)
	}
	return out.Results, nil
}
