// Package llmclient is a native HTTP adapter for the Azure OpenAI chat
// completions API. It wraps two deployments, a standard model and a
// reasoning model, behind one calling convention and applies the per-tier
// parameter rules each deployment requires.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/martinemde/prospector/config"
)

// Tier selects which backend deployment handles a completion.
type Tier string

const (
	// TierStandard is the ordinary chat model. Accepts temperature.
	TierStandard Tier = "standard"

	// TierReasoning is the reasoning model. The backend rejects the
	// temperature parameter and uses max_completion_tokens instead of
	// max_tokens.
	TierReasoning Tier = "reasoning"
)

// modelParams captures the request parameters for one deployment.
type modelParams struct {
	deployment  string
	temperature *float64
	maxTokens   int
}

// Client calls the chat completions endpoint of an Azure OpenAI resource.
type Client struct {
	endpoint   string
	apiKey     string
	apiVersion string
	standard   modelParams
	reasoning  modelParams
	http       *http.Client
}

// New creates a Client from configuration using the supplied HTTP client.
// Passing a shared concurrency-limited client keeps the process within the
// backend's rate limits.
func New(cfg config.LLM, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: cfg.Timeout}
	}
	temp := cfg.Temperature
	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		apiVersion: cfg.APIVersion,
		standard: modelParams{
			deployment:  cfg.StandardModel,
			temperature: &temp,
			maxTokens:   cfg.MaxTokens,
		},
		reasoning: modelParams{
			deployment: cfg.ReasoningModel,
			maxTokens:  cfg.ReasoningMaxTokens,
		},
		http: httpc,
	}
}

// Complete sends a single-turn prompt to the deployment for the given tier
// and returns the assistant text. maxTokens overrides the tier's configured
// output budget when positive.
func (c *Client) Complete(ctx context.Context, tier Tier, prompt string, maxTokens int) (string, error) {
	params := c.paramsFor(tier)
	if maxTokens <= 0 {
		maxTokens = params.maxTokens
	}

	body := map[string]any{
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	if params.temperature != nil {
		// Standard deployments take temperature and max_tokens.
		body["temperature"] = *params.temperature
		body["max_tokens"] = maxTokens
	} else {
		// Reasoning deployments reject temperature and use
		// max_completion_tokens.
		body["max_completion_tokens"] = maxTokens
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", &TransportError{Message: "failed to encode request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.completionsURL(params.deployment), bytes.NewReader(payload))
	if err != nil {
		return "", &TransportError{Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", networkError("request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errorFromResponse(resp)
	}

	return parseCompletion(resp)
}

func (c *Client) paramsFor(tier Tier) modelParams {
	if tier == TierReasoning {
		return c.reasoning
	}
	return c.standard
}

func (c *Client) completionsURL(deployment string) string {
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.endpoint, url.PathEscape(deployment), url.QueryEscape(c.apiVersion))
}

func parseCompletion(resp *http.Response) (string, error) {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &TransportError{Message: "failed to decode response", Cause: err, retryable: true}
	}
	if len(parsed.Choices) == 0 {
		return "", &TransportError{Message: "response contained no choices", retryable: true}
	}
	return parsed.Choices[0].Message.Content, nil
}
