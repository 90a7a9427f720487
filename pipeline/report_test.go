package pipeline

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinemde/prospector/llmclient"
)

func TestReport_CompilesAllSections(t *testing.T) {
	state := completedState()
	h := &ReportHandler{}

	require.NoError(t, h.Execute(context.Background(), state, llmclient.TierStandard))

	r := state.Report
	require.NotNil(t, r)
	assert.NotEmpty(t, r.ExecutiveSummary)
	assert.Contains(t, r.ExecutiveSummary, "Acme Cloud")
	assert.Equal(t, state.Description, r.ServiceAnalysis)
	assert.Equal(t, state.Vendors, r.VendorRankings)
	assert.Equal(t, state.Partners, r.PartnerRecommendations)
	assert.Equal(t, state.PriceBenchmark, r.PriceBenchmark)
	assert.NotEmpty(t, r.ImplementationRoadmap)
	assert.NotEmpty(t, r.RiskAssessment)
	assert.NotEmpty(t, r.NextSteps)
}

func TestReport_Idempotent(t *testing.T) {
	state := completedState()
	h := &ReportHandler{}

	require.NoError(t, h.Execute(context.Background(), state, llmclient.TierStandard))
	first, err := json.Marshal(state.Report)
	require.NoError(t, err)

	require.NoError(t, h.Execute(context.Background(), state, llmclient.TierStandard))
	second, err := json.Marshal(state.Report)
	require.NoError(t, err)

	assert.Equal(t, first, second, "report must be byte-identical across runs on the same state")
}

func TestReport_OmitsMissingBenchmark(t *testing.T) {
	state := completedState()
	state.PriceBenchmark = nil
	h := &ReportHandler{}

	require.NoError(t, h.Execute(context.Background(), state, llmclient.TierStandard))

	assert.Nil(t, state.Report.PriceBenchmark)
	assert.NotContains(t, state.Report.ExecutiveSummary, "Expected pricing")
	assert.Contains(t, state.Report.RiskAssessment[0], "Pricing benchmark unavailable")
}

func TestReport_ToleratesEmptyResearch(t *testing.T) {
	state := NewState(Request{ServiceName: "Cloud Storage", Country: "US"})
	state.Clarified = &ClarifiedRequest{ServiceName: "Cloud Storage", CountryCode: "US"}
	h := &ReportHandler{}

	require.NoError(t, h.Execute(context.Background(), state, llmclient.TierStandard))

	require.NotNil(t, state.Report)
	assert.Nil(t, state.Report.ServiceAnalysis)
	assert.Empty(t, state.Report.VendorRankings)
	assert.Contains(t, state.Report.ExecutiveSummary, "No vendors")
}

func TestReport_RequiresClarifiedRequest(t *testing.T) {
	state := NewState(Request{ServiceName: "x", Country: "y"})
	err := (&ReportHandler{}).Execute(context.Background(), state, llmclient.TierStandard)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, ErrPrecondition, stageErr.Kind)
}
