package pipeline

import (
	"context"
	"fmt"

	"github.com/martinemde/prospector/llmclient"
)

// BenchmarkHandler researches market pricing for the service. The engine
// treats this stage as AllowPartial: if it fails after its retry budget the
// run continues and the report omits the pricing section.
type BenchmarkHandler struct {
	LLM        Completer
	Search     Searcher
	MaxQueries int
	MaxResults int
}

func (h *BenchmarkHandler) Stage() Stage { return StageBenchmark }

const benchmarkPrompt = `You are a pricing analyst. Estimate a market price benchmark for this service from the search results below.

SERVICE:
- Name: %s
- Category: %s
- Region: %s

SEARCH RESULTS:
%s

Respond with a single JSON object:
{
  "range_low": 1000.0,
  "range_high": 50000.0,
  "currency": "USD",
  "pricing_model": "subscription | usage-based | license | project",
  "cost_factors": ["factors that move the price", "..."],
  "tco_factors": ["total cost of ownership factors", "..."],
  "notes": ["pricing recommendations", "..."]
}

Respond with JSON only.`

func (h *BenchmarkHandler) Execute(ctx context.Context, state *State, tier llmclient.Tier) error {
	if state.Clarified == nil {
		return preconditionErr(StageBenchmark, "clarified request is missing")
	}
	c := state.Clarified

	queries := capQueries(pricingQueries(c.ServiceName, c.ServiceCategory), h.MaxQueries)
	results, err := runQueries(ctx, StageBenchmark, h.Search, queries, h.MaxResults)
	if err != nil {
		return err
	}

	prompt := fmt.Sprintf(benchmarkPrompt, c.ServiceName, c.ServiceCategory, c.Region, formatSearchResults(results))
	text, err := h.LLM.Complete(ctx, tier, prompt, 0)
	if err != nil {
		return transportErr(StageBenchmark, err)
	}

	var benchmark PriceBenchmark
	if err := decodeResponse(StageBenchmark, text, &benchmark); err != nil {
		return err
	}
	if benchmark.Currency == "" {
		benchmark.Currency = "USD"
	}
	state.PriceBenchmark = &benchmark
	return nil
}

func pricingQueries(service, category string) []string {
	return []string{
		fmt.Sprintf("%s pricing cost", service),
		fmt.Sprintf("%s price comparison", service),
		fmt.Sprintf("%s market pricing", category),
		fmt.Sprintf("%s total cost of ownership", service),
	}
}
