// Package websearch provides the Tavily web-search adapter used for vendor,
// partner, and pricing research. The adapter is stateless and performs no
// retries of its own; retry decisions belong to the orchestrator.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultEndpoint = "https://api.tavily.com/search"

// Result is a single search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score,omitempty"`
}

// TransportError is a failure from the search backend HTTP call.
type TransportError struct {
	StatusCode int
	Message    string
	Cause      error
	retryable  bool
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("websearch: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("websearch: %s", e.Message)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// Retryable reports whether the orchestrator may retry the call.
func (e *TransportError) Retryable() bool { return e.retryable }

// Tavily posts search queries to the Tavily API.
type Tavily struct {
	apiKey   string
	depth    string
	endpoint string
	http     *http.Client
}

// TavilyOption configures a Tavily client.
type TavilyOption func(*Tavily)

// WithEndpoint overrides the API endpoint, mainly for tests.
func WithEndpoint(url string) TavilyOption {
	return func(t *Tavily) { t.endpoint = url }
}

// WithHTTPClient sets the HTTP client, typically a shared
// concurrency-limited client.
func WithHTTPClient(c *http.Client) TavilyOption {
	return func(t *Tavily) { t.http = c }
}

// NewTavily constructs a Tavily search client. Depth is Tavily's depth
// parameter (basic or advanced); empty means basic.
func NewTavily(apiKey, depth string, opts ...TavilyOption) *Tavily {
	if depth == "" {
		depth = "basic"
	}
	t := &Tavily{
		apiKey:   apiKey,
		depth:    depth,
		endpoint: defaultEndpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Search posts a query and returns at most maxResults hits. Extra results
// from the backend are truncated rather than treated as an error.
func (t *Tavily) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if strings.TrimSpace(t.apiKey) == "" {
		return nil, &TransportError{Message: "API key is missing"}
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	body := map[string]any{
		"query":       query,
		"api_key":     t.apiKey,
		"depth":       t.depth,
		"max_results": maxResults,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &TransportError{Message: "failed to encode request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Message: "request failed", Cause: err, retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Message:    "search request rejected",
			retryable:  resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
	}

	var response struct {
		Results []struct {
			Title   string  `json:"title"`
			URL     string  `json:"url"`
			Content string  `json:"content"`
			Score   float64 `json:"score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, &TransportError{Message: "failed to decode response", Cause: err, retryable: true}
	}

	results := make([]Result, 0, len(response.Results))
	for _, r := range response.Results {
		results = append(results, Result{Title: r.Title, URL: r.URL, Snippet: r.Content, Score: r.Score})
		if len(results) >= maxResults {
			break
		}
	}
	return results, nil
}

// IsRetryable reports whether err is a transport failure worth retrying.
func IsRetryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Retryable()
}
