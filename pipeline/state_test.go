package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewState(t *testing.T) {
	state := NewState(Request{ServiceName: "Cloud Storage", Country: "US"})

	assert.NotEmpty(t, state.RunID)
	assert.Equal(t, StatusPending, state.Status)
	assert.Empty(t, state.StageHistory)
	assert.NotNil(t, state.RetryCounts)
}

func TestRecordAttempt_Success(t *testing.T) {
	state := NewState(Request{})
	state.RecordAttempt(StageClarify, AttemptSuccess, nil)

	require.Len(t, state.StageHistory, 1)
	assert.Equal(t, StageClarify, state.StageHistory[0].Stage)
	assert.Equal(t, AttemptSuccess, state.StageHistory[0].Status)
	assert.Empty(t, state.StageHistory[0].Error)
	assert.Zero(t, state.RetryCounts[StageClarify])
}

func TestRecordAttempt_FailureIncrementsRetryCount(t *testing.T) {
	state := NewState(Request{})
	state.RecordAttempt(StageSearch, AttemptFailed, errors.New("boom"))
	state.RecordAttempt(StageSearch, AttemptFailed, errors.New("boom again"))

	assert.Equal(t, 2, state.RetryCounts[StageSearch])
	assert.Equal(t, "boom again", state.LastError)
	require.Len(t, state.StageHistory, 2)
	assert.Equal(t, "boom", state.StageHistory[0].Error)
}

func TestRecordAttempt_HistoryIsAppendOnly(t *testing.T) {
	state := NewState(Request{})
	state.RecordAttempt(StageClarify, AttemptSuccess, nil)
	state.RecordAttempt(StageDescribe, AttemptFailed, errors.New("x"))
	state.RecordAttempt(StageDescribe, AttemptSuccess, nil)

	require.Len(t, state.StageHistory, 3)
	assert.Equal(t, 3, state.Attempts(StageClarify)+state.Attempts(StageDescribe))
	assert.Equal(t, 2, state.Attempts(StageDescribe))
}

func TestCanRetry(t *testing.T) {
	state := NewState(Request{})

	assert.True(t, state.CanRetry(StageSearch, 3))

	state.RecordAttempt(StageSearch, AttemptFailed, errors.New("e"))
	state.RecordAttempt(StageSearch, AttemptFailed, errors.New("e"))
	assert.True(t, state.CanRetry(StageSearch, 3))

	state.RecordAttempt(StageSearch, AttemptFailed, errors.New("e"))
	assert.False(t, state.CanRetry(StageSearch, 3))
}

func TestStages_FixedOrder(t *testing.T) {
	assert.Equal(t, []Stage{StageClarify, StageDescribe, StageSearch, StageBenchmark, StageReport}, Stages)
}
