// Package config loads the process-wide configuration for prospector.
//
// Configuration is sourced from environment variables (optionally seeded
// from a local .env file) and resolved once at startup into an immutable
// Config value that is passed explicitly into the engine and adapters.
package config

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LLM holds settings for the language-model backend.
type LLM struct {
	// Endpoint is the base URL of the Azure OpenAI resource.
	Endpoint   string
	APIKey     string
	APIVersion string

	// StandardModel is the deployment used for ordinary tasks.
	StandardModel string
	// ReasoningModel is the deployment used for analysis-heavy tasks.
	// Reasoning deployments reject the temperature parameter.
	ReasoningModel string

	Temperature        float64
	MaxTokens          int
	ReasoningMaxTokens int
	Timeout            time.Duration

	// Tier selection flags. When set, the corresponding task category is
	// routed to the reasoning deployment.
	UseReasoningForAnalysis bool
	UseReasoningForSearch   bool
}

// Search holds settings for the web-search backend.
type Search struct {
	TavilyAPIKey string
	Depth        string
	MaxResults   int
	MaxQueries   int
	Timeout      time.Duration
}

// Workflow holds settings for the orchestration engine.
type Workflow struct {
	MaxRetries int
	Timeout    time.Duration

	// CheckpointDir, when non-empty, enables state snapshots after each
	// completed stage.
	CheckpointDir string
}

// Config is the top-level application configuration.
type Config struct {
	LLM      LLM
	Search   Search
	Workflow Workflow

	// MaxConcurrentRequests caps in-flight outbound HTTP requests across
	// all adapters sharing the HTTP client.
	MaxConcurrentRequests int
}

// envBindings maps viper keys to the environment variables the original
// deployment documents. Raw names are kept for operator familiarity.
var envBindings = map[string]string{
	"llm.endpoint":              "AZURE_OPENAI_ENDPOINT",
	"llm.api_key":               "AZURE_OPENAI_API_KEY",
	"llm.api_version":           "AZURE_OPENAI_API_VERSION",
	"llm.standard_model":        "LLM_MODEL",
	"llm.reasoning_model":       "REASONING_MODEL",
	"llm.temperature":           "LLM_TEMPERATURE",
	"llm.max_tokens":            "LLM_MAX_TOKENS",
	"llm.reasoning_max_tokens":  "REASONING_MAX_TOKENS",
	"llm.timeout":               "LLM_TIMEOUT",
	"llm.reasoning_analysis":    "USE_REASONING_MODEL_FOR_ANALYSIS",
	"llm.reasoning_search":      "USE_REASONING_MODEL_FOR_COMPLEX_SEARCH",
	"search.tavily_api_key":     "TAVILY_API_KEY",
	"search.depth":              "SEARCH_DEPTH",
	"search.max_results":        "SEARCH_MAX_RESULTS",
	"search.max_queries":        "MAX_SEARCH_QUERIES",
	"search.timeout":            "SEARCH_TIMEOUT",
	"workflow.max_retries":      "WORKFLOW_MAX_RETRIES",
	"workflow.timeout":          "WORKFLOW_TIMEOUT",
	"workflow.checkpoint_dir":   "CHECKPOINT_DIR",
	"max_concurrent_requests":   "MAX_CONCURRENT_REQUESTS",
}

// Load builds a Config from the environment. A .env file in the working
// directory is read first if present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		LLM: LLM{
			Endpoint:                v.GetString("llm.endpoint"),
			APIKey:                  v.GetString("llm.api_key"),
			APIVersion:              v.GetString("llm.api_version"),
			StandardModel:           v.GetString("llm.standard_model"),
			ReasoningModel:          v.GetString("llm.reasoning_model"),
			Temperature:             v.GetFloat64("llm.temperature"),
			MaxTokens:               v.GetInt("llm.max_tokens"),
			ReasoningMaxTokens:      v.GetInt("llm.reasoning_max_tokens"),
			Timeout:                 time.Duration(v.GetInt("llm.timeout")) * time.Second,
			UseReasoningForAnalysis: v.GetBool("llm.reasoning_analysis"),
			UseReasoningForSearch:   v.GetBool("llm.reasoning_search"),
		},
		Search: Search{
			TavilyAPIKey: v.GetString("search.tavily_api_key"),
			Depth:        v.GetString("search.depth"),
			MaxResults:   v.GetInt("search.max_results"),
			MaxQueries:   v.GetInt("search.max_queries"),
			Timeout:      time.Duration(v.GetInt("search.timeout")) * time.Second,
		},
		Workflow: Workflow{
			MaxRetries:    v.GetInt("workflow.max_retries"),
			Timeout:       time.Duration(v.GetInt("workflow.timeout")) * time.Second,
			CheckpointDir: v.GetString("workflow.checkpoint_dir"),
		},
		MaxConcurrentRequests: v.GetInt("max_concurrent_requests"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.api_version", "2024-02-15-preview")
	v.SetDefault("llm.standard_model", "gpt-4")
	v.SetDefault("llm.reasoning_model", "o3-mini")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 2000)
	v.SetDefault("llm.reasoning_max_tokens", 4000)
	v.SetDefault("llm.timeout", 60)
	v.SetDefault("llm.reasoning_analysis", true)
	v.SetDefault("llm.reasoning_search", true)
	v.SetDefault("search.depth", "basic")
	v.SetDefault("search.max_results", 10)
	v.SetDefault("search.max_queries", 5)
	v.SetDefault("search.timeout", 30)
	v.SetDefault("workflow.max_retries", 3)
	v.SetDefault("workflow.timeout", 300)
	v.SetDefault("max_concurrent_requests", 10)
}

// Validate checks that the credentials required for a live run are present.
func (c *Config) Validate() error {
	var errs []error
	if c.LLM.APIKey == "" {
		errs = append(errs, errors.New("AZURE_OPENAI_API_KEY is required"))
	}
	if c.LLM.Endpoint == "" {
		errs = append(errs, errors.New("AZURE_OPENAI_ENDPOINT is required"))
	}
	if c.Search.TavilyAPIKey == "" {
		errs = append(errs, errors.New("TAVILY_API_KEY is required"))
	}
	return errors.Join(errs...)
}
