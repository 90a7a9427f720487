package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/martinemde/prospector/llmclient"
	"github.com/martinemde/prospector/websearch"
)

// Completer is the LLM adapter contract consumed by stage handlers.
type Completer interface {
	Complete(ctx context.Context, tier llmclient.Tier, prompt string, maxTokens int) (string, error)
}

// Searcher is the web-search adapter contract consumed by stage handlers.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]websearch.Result, error)
}

// Handler is the interface implemented by every stage of the pipeline.
// A handler reads its required fields from the state, performs its work,
// and writes its output fields. It never retries and never mutates history;
// both belong to the engine.
type Handler interface {
	// Stage returns the stage this handler implements.
	Stage() Stage

	// Execute runs the stage against the state using the selected model
	// tier. A nil return means the stage succeeded; failures are reported
	// as *StageError.
	Execute(ctx context.Context, state *State, tier llmclient.Tier) error
}

// decodeResponse extracts the JSON document embedded in an LLM reply and
// unmarshals it into v. Models frequently wrap JSON in markdown fences or
// surround it with prose; everything outside the outermost object is
// ignored.
func decodeResponse(stage Stage, text string, v any) error {
	doc := extractJSON(text)
	if doc == "" {
		return parseErr(stage, fmt.Errorf("no JSON object found in response"))
	}
	if err := json.Unmarshal([]byte(doc), v); err != nil {
		return parseErr(stage, fmt.Errorf("malformed JSON in response: %w", err))
	}
	return nil
}

// extractJSON returns the outermost JSON object in text, or "" if none.
func extractJSON(text string) string {
	// Strip a markdown code fence if the whole payload is fenced.
	if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			text = rest[:end]
		}
	}

	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}

// formatSearchResults renders search hits as numbered plain text for LLM
// analysis. Snippets are truncated to keep the prompt within budget.
func formatSearchResults(results []websearch.Result) string {
	if len(results) == 0 {
		return "No search results available."
	}
	var b strings.Builder
	for i, r := range results {
		snippet := r.Snippet
		if len(snippet) > 500 {
			snippet = snippet[:500] + "..."
		}
		fmt.Fprintf(&b, "Result %d:\nTitle: %s\nURL: %s\nContent: %s\n\n", i+1, r.Title, r.URL, snippet)
	}
	return b.String()
}
