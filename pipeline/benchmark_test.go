package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinemde/prospector/llmclient"
)

func TestBenchmark_PopulatesPriceBenchmark(t *testing.T) {
	llm := &fakeCompleter{}
	search := &fakeSearcher{}
	h := &BenchmarkHandler{LLM: llm, Search: search, MaxQueries: 4, MaxResults: 5}
	state := clarifiedState()

	require.NoError(t, h.Execute(context.Background(), state, llmclient.TierReasoning))

	pb := state.PriceBenchmark
	require.NotNil(t, pb)
	assert.Equal(t, 1000.0, pb.RangeLow)
	assert.Equal(t, 25000.0, pb.RangeHigh)
	assert.Equal(t, "USD", pb.Currency)
	assert.Equal(t, "usage-based", pb.PricingModel)
	assert.NotEmpty(t, pb.CostFactors)
}

func TestBenchmark_QueryGeneration(t *testing.T) {
	queries := pricingQueries("Cloud Storage", "IT Services & Software")

	require.Len(t, queries, 4)
	assert.Contains(t, queries[0], "pricing cost")
	assert.Contains(t, queries[3], "total cost of ownership")
	for _, q := range queries[:2] {
		assert.Contains(t, q, "Cloud Storage")
	}
}

func TestBenchmark_CapsQueries(t *testing.T) {
	search := &fakeSearcher{}
	h := &BenchmarkHandler{LLM: &fakeCompleter{}, Search: search, MaxQueries: 2, MaxResults: 5}

	require.NoError(t, h.Execute(context.Background(), clarifiedState(), llmclient.TierStandard))
	assert.Equal(t, 2, search.queryCount())
}

func TestBenchmark_DefaultsCurrency(t *testing.T) {
	llm := &fakeCompleter{fn: func(prompt string) (string, error) {
		if strings.Contains(prompt, "pricing analyst") {
			return `{"range_low":100,"range_high":900}`, nil
		}
		return cannedResponse(prompt), nil
	}}
	h := &BenchmarkHandler{LLM: llm, Search: &fakeSearcher{}, MaxQueries: 2, MaxResults: 5}
	state := clarifiedState()

	require.NoError(t, h.Execute(context.Background(), state, llmclient.TierStandard))
	assert.Equal(t, "USD", state.PriceBenchmark.Currency)
}

func TestBenchmark_RequiresClarifiedRequest(t *testing.T) {
	h := &BenchmarkHandler{LLM: &fakeCompleter{}, Search: &fakeSearcher{}}
	err := h.Execute(context.Background(), NewState(Request{ServiceName: "x", Country: "y"}), llmclient.TierStandard)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, ErrPrecondition, stageErr.Kind)
}

func TestBenchmark_SearchFailureSurfaces(t *testing.T) {
	search := &fakeSearcher{failures: -1, err: transientErr{}}
	h := &BenchmarkHandler{LLM: &fakeCompleter{}, Search: search, MaxQueries: 2, MaxResults: 5}
	state := clarifiedState()

	err := h.Execute(context.Background(), state, llmclient.TierStandard)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, ErrTransport, stageErr.Kind)
	assert.True(t, stageErr.Retryable)
	assert.Equal(t, StageBenchmark, stageErr.Stage)
	assert.Nil(t, state.PriceBenchmark)
}
