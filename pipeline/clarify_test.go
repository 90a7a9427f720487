package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinemde/prospector/llmclient"
)

func TestClarify_ShortCircuit(t *testing.T) {
	llm := &fakeCompleter{}
	h := &ClarifyHandler{LLM: llm}
	state := NewState(Request{
		ServiceName: "Cloud Storage",
		Country:     "United States",
		Details:     "software for enterprise backup, around 500 users and 20 TB",
	})

	err := h.Execute(context.Background(), state, llmclient.TierStandard)

	require.NoError(t, err)
	assert.Zero(t, llm.callCount(), "complete request must not cost an LLM call")
	require.NotNil(t, state.Clarified)
	assert.Equal(t, state.Request.ServiceName, state.Clarified.ServiceName)
	assert.Equal(t, state.Request.Country, state.Clarified.CountryCode)
}

func TestClarify_CallsModelWhenIncomplete(t *testing.T) {
	llm := &fakeCompleter{}
	h := &ClarifyHandler{LLM: llm}
	state := NewState(Request{ServiceName: "Cloud Storage", Country: "United States"})

	err := h.Execute(context.Background(), state, llmclient.TierStandard)

	require.NoError(t, err)
	assert.Equal(t, 1, llm.callCount())
	require.NotNil(t, state.Clarified)
	assert.Equal(t, "US", state.Clarified.CountryCode)
	assert.Equal(t, "North America", state.Clarified.Region)
}

func TestClarify_MissingInput(t *testing.T) {
	h := &ClarifyHandler{LLM: &fakeCompleter{}}
	state := NewState(Request{ServiceName: "", Country: "US"})

	err := h.Execute(context.Background(), state, llmclient.TierStandard)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, ErrPrecondition, stageErr.Kind)
}

func TestClarify_TransportFailure(t *testing.T) {
	llm := &fakeCompleter{fn: func(string) (string, error) { return "", transientErr{} }}
	h := &ClarifyHandler{LLM: llm}
	state := NewState(Request{ServiceName: "Cloud Storage", Country: "US"})

	err := h.Execute(context.Background(), state, llmclient.TierStandard)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, ErrTransport, stageErr.Kind)
	assert.True(t, stageErr.Retryable)
}

func TestClarify_ParseFailure(t *testing.T) {
	llm := &fakeCompleter{fn: func(string) (string, error) { return "not json at all", nil }}
	h := &ClarifyHandler{LLM: llm}
	state := NewState(Request{ServiceName: "Cloud Storage", Country: "US"})

	err := h.Execute(context.Background(), state, llmclient.TierStandard)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, ErrParse, stageErr.Kind)
	assert.Nil(t, state.Clarified)
}

func TestRequestComplete(t *testing.T) {
	cases := []struct {
		name string
		req  Request
		want bool
	}{
		{
			name: "category and scale present",
			req:  Request{ServiceName: "Cloud Storage", Country: "US", Details: "enterprise software, 500 users"},
			want: true,
		},
		{
			name: "no details",
			req:  Request{ServiceName: "Cloud Storage", Country: "US"},
			want: false,
		},
		{
			name: "no scale context",
			req:  Request{ServiceName: "Cloud Storage", Country: "US", Details: "software for files"},
			want: false,
		},
		{
			name: "no country",
			req:  Request{ServiceName: "Cloud Storage", Details: "enterprise software, 500 users"},
			want: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, requestComplete(tc.req))
		})
	}
}

func TestClarify_FallsBackToRequestName(t *testing.T) {
	llm := &fakeCompleter{fn: func(string) (string, error) {
		return `{"service_category":"IT","country_code":"US","region":"North America"}`, nil
	}}
	h := &ClarifyHandler{LLM: llm}
	state := NewState(Request{ServiceName: "Cloud Storage", Country: "US"})

	require.NoError(t, h.Execute(context.Background(), state, llmclient.TierStandard))
	assert.Equal(t, "Cloud Storage", state.Clarified.ServiceName)
}
