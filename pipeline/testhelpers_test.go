package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/martinemde/prospector/config"
	"github.com/martinemde/prospector/llmclient"
	"github.com/martinemde/prospector/websearch"
)

// noopSleeper skips retry delays in tests.
type noopSleeper struct {
	slept []time.Duration
}

func (s *noopSleeper) Sleep(d time.Duration) { s.slept = append(s.slept, d) }

// fakeCompleter scripts LLM responses by prompt content. When fn is set it
// handles every call; otherwise responses are matched by prompt substring.
type fakeCompleter struct {
	mu    sync.Mutex
	calls int
	tiers []llmclient.Tier
	fn    func(prompt string) (string, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, tier llmclient.Tier, prompt string, maxTokens int) (string, error) {
	f.mu.Lock()
	f.calls++
	f.tiers = append(f.tiers, tier)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.fn != nil {
		return f.fn(prompt)
	}
	return cannedResponse(prompt), nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// cannedResponse returns a plausible structured reply for each stage prompt.
func cannedResponse(prompt string) string {
	switch {
	case strings.Contains(prompt, "clarification analyst"):
		return `{"service_name":"Cloud Storage","service_category":"IT Services & Software","country_code":"US","region":"North America","requirements":["durable object storage"],"business_context":"corporate file storage"}`
	case strings.Contains(prompt, "services analyst"):
		return `{"overview":"Cloud storage provides durable remote object storage.","description":"Cloud storage is a managed service for storing data remotely.","key_features":["durability","encryption"],"use_cases":["backup"],"benefits":["elastic capacity"]}`
	case strings.Contains(prompt, "rank global vendors"):
		return "```json\n" + `{"vendors":[{"name":"Acme Cloud","description":"Object storage","website":"https://acme.example","headquarters":"Seattle, US","score":91.5,"strengths":["scale"],"weaknesses":["cost"],"fit_notes":"strong fit"},{"name":"Globex Storage","score":78.0,"description":"Hybrid storage"}]}` + "\n```"
	case strings.Contains(prompt, "regional partner research"):
		return `{"partners":[{"name":"Localsoft","relationship":"integrator","country":"US","city":"Austin","description":"Implements cloud storage","score":66.0}]}`
	case strings.Contains(prompt, "pricing analyst"):
		return `{"range_low":1000,"range_high":25000,"currency":"USD","pricing_model":"usage-based","cost_factors":["volume"],"tco_factors":["egress fees"],"notes":["negotiate committed use"]}`
	default:
		return "{}"
	}
}

// fakeSearcher returns canned hits and can fail a fixed number of times.
type fakeSearcher struct {
	mu       sync.Mutex
	queries  []string
	failures int
	err      error
	results  []websearch.Result
}

func (f *fakeSearcher) Search(ctx context.Context, query string, maxResults int) ([]websearch.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.queries = append(f.queries, query)
	if f.failures != 0 && f.err != nil {
		if f.failures > 0 {
			f.failures--
		}
		return nil, f.err
	}
	if f.results != nil {
		return f.results, nil
	}
	return []websearch.Result{
		{Title: "Acme Cloud", URL: "https://acme.example", Snippet: "Leading cloud storage vendor", Score: 0.9},
		{Title: "Globex Storage", URL: "https://globex.example", Snippet: "Hybrid storage provider", Score: 0.7},
	}, nil
}

func (f *fakeSearcher) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

// transientErr mimics a retryable transport failure from an adapter.
type transientErr struct{}

func (transientErr) Error() string   { return "backend unavailable" }
func (transientErr) Retryable() bool { return true }

// fatalErr mimics a non-retryable transport failure (auth, bad request).
type fatalErr struct{}

func (fatalErr) Error() string   { return "unauthorized" }
func (fatalErr) Retryable() bool { return false }

func testConfig() *config.Config {
	return &config.Config{
		LLM: config.LLM{
			StandardModel:           "gpt-4",
			ReasoningModel:          "o3-mini",
			Temperature:             0.1,
			MaxTokens:               2000,
			ReasoningMaxTokens:      4000,
			UseReasoningForAnalysis: true,
			UseReasoningForSearch:   true,
		},
		Search: config.Search{
			MaxResults: 5,
			MaxQueries: 3,
		},
		Workflow: config.Workflow{
			MaxRetries: 3,
		},
		MaxConcurrentRequests: 10,
	}
}

// stageAttempts filters the run history down to one stage.
func stageAttempts(state *State, stage Stage) []Attempt {
	var out []Attempt
	for _, a := range state.StageHistory {
		if a.Stage == stage {
			out = append(out, a)
		}
	}
	return out
}

func completedState() *State {
	state := NewState(Request{ServiceName: "Cloud Storage", Country: "United States"})
	state.Clarified = &ClarifiedRequest{
		ServiceName:     "Cloud Storage",
		ServiceCategory: "IT Services & Software",
		CountryCode:     "US",
		Region:          "North America",
	}
	state.Description = &ServiceDescription{
		Overview:    "Cloud storage provides durable remote object storage.",
		Description: "Managed remote storage.",
		KeyFeatures: []string{"durability"},
	}
	state.Vendors = []Vendor{
		{Name: "Acme Cloud", Score: 91.5},
		{Name: "Globex Storage", Score: 78.0},
	}
	state.Partners = []Partner{{Name: "Localsoft", Score: 66.0}}
	state.PriceBenchmark = &PriceBenchmark{RangeLow: 1000, RangeHigh: 25000, Currency: "USD"}
	return state
}
