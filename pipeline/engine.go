package pipeline

import (
	"context"
	"time"

	"github.com/martinemde/prospector/config"
	"github.com/martinemde/prospector/llmclient"
)

// Engine drives the fixed stage sequence for one or more independent runs.
// It is the sole decision point for retry versus abort: handlers and
// adapters below it never retry on their own.
type Engine struct {
	cfg      *config.Config
	handlers []Handler
	policy   RetryPolicy
	sleeper  Sleeper
	emitter  *EventEmitter

	// allowPartial marks stages whose exhausted failure degrades the run
	// instead of aborting it.
	allowPartial map[Stage]bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithSleeper overrides the retry delay sleeper, letting tests avoid real
// backoff delays.
func WithSleeper(s Sleeper) Option {
	return func(e *Engine) { e.sleeper = s }
}

// WithEmitter attaches an event emitter for run/stage lifecycle events.
func WithEmitter(em *EventEmitter) Option {
	return func(e *Engine) { e.emitter = em }
}

// WithHandlers replaces the default stage handlers. Handlers run in the
// order given.
func WithHandlers(handlers ...Handler) Option {
	return func(e *Engine) { e.handlers = handlers }
}

// New creates an Engine with the standard five-stage chain wired to the
// given adapters.
func New(cfg *config.Config, llm Completer, search Searcher, opts ...Option) *Engine {
	e := &Engine{
		cfg: cfg,
		handlers: []Handler{
			&ClarifyHandler{LLM: llm},
			&DescribeHandler{LLM: llm},
			&SearchHandler{LLM: llm, Search: search, MaxQueries: cfg.Search.MaxQueries, MaxResults: cfg.Search.MaxResults},
			&BenchmarkHandler{LLM: llm, Search: search, MaxQueries: cfg.Search.MaxQueries, MaxResults: cfg.Search.MaxResults},
			&ReportHandler{},
		},
		policy: RetryPolicy{
			MaxRetries: cfg.Workflow.MaxRetries,
			Backoff:    DefaultBackoff,
		},
		sleeper:      DefaultSleeper,
		allowPartial: map[Stage]bool{StageBenchmark: true},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the full pipeline for one request and returns the terminal
// state. Each call owns its own state; concurrent runs are independent.
func (e *Engine) Run(ctx context.Context, req Request) *State {
	state := NewState(req)
	state.Status = StatusRunning

	if e.cfg.Workflow.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Workflow.Timeout)
		defer cancel()
	}

	start := time.Now()
	e.emitter.Emit(runEvent(EventRunStarted, state.RunID, map[string]any{
		"service": req.ServiceName,
		"country": req.Country,
	}))

	for _, handler := range e.handlers {
		if !e.runStage(ctx, handler, state) {
			state.Status = StatusFailed
			e.emitter.Emit(runEvent(EventRunFailed, state.RunID, map[string]any{
				"error":       state.LastError,
				"duration_ms": time.Since(start).Milliseconds(),
			}))
			e.checkpoint(state)
			return state
		}
		e.checkpoint(state)
	}

	state.Status = StatusCompleted
	e.emitter.Emit(runEvent(EventRunCompleted, state.RunID, map[string]any{
		"duration_ms": time.Since(start).Milliseconds(),
	}))
	e.checkpoint(state)
	return state
}

// runStage executes one stage with the retry policy. Returns true when the
// pipeline should advance to the next stage.
func (e *Engine) runStage(ctx context.Context, handler Handler, state *State) bool {
	stage := handler.Stage()
	tier := e.tierFor(stage)

	for attempt := 1; ; attempt++ {
		e.emitter.Emit(stageEvent(EventStageStarted, state.RunID, stage, map[string]any{
			"attempt": attempt,
			"tier":    string(tier),
		}))

		err := handler.Execute(ctx, state, tier)
		if err == nil {
			state.RecordAttempt(stage, AttemptSuccess, nil)
			e.emitter.Emit(stageEvent(EventStageCompleted, state.RunID, stage, nil))
			return true
		}

		stageErr := asStageError(stage, err)
		state.RecordAttempt(stage, AttemptFailed, stageErr)

		// Run-level timeout aborts immediately, partial results dropped.
		if stageErr.Kind == ErrTimeout {
			e.emitter.Emit(stageEvent(EventStageFailed, state.RunID, stage, map[string]any{
				"error": stageErr.Error(),
			}))
			return false
		}

		// Parse and precondition failures indicate a logic or response
		// shape problem, not a transient fault. Never retried.
		retryable := stageErr.Kind == ErrTransport && stageErr.Retryable
		if retryable && state.CanRetry(stage, e.policy.MaxRetries) {
			delay := e.policy.Backoff.DelayForAttempt(attempt)
			e.emitter.Emit(stageEvent(EventStageRetrying, state.RunID, stage, map[string]any{
				"attempt":  attempt,
				"delay_ms": delay.Milliseconds(),
				"error":    stageErr.Error(),
			}))
			e.sleeper.Sleep(delay)
			continue
		}

		e.emitter.Emit(stageEvent(EventStageFailed, state.RunID, stage, map[string]any{
			"error": stageErr.Error(),
		}))

		if e.allowPartial[stage] {
			// Degrade gracefully: the stage's output stays unset and the
			// report omits its section.
			e.emitter.Emit(stageEvent(EventStageSkipped, state.RunID, stage, map[string]any{
				"reason": "retries exhausted, partial result accepted",
			}))
			return true
		}
		return false
	}
}

// tierFor resolves the model tier for a stage from the configuration
// flags. Search-category stages follow the complex-search flag; analysis
// stages follow the analysis flag. Clarification always uses the standard
// tier, and report makes no model calls at all.
func (e *Engine) tierFor(stage Stage) llmclient.Tier {
	switch stage {
	case StageSearch:
		if e.cfg.LLM.UseReasoningForSearch {
			return llmclient.TierReasoning
		}
	case StageDescribe, StageBenchmark:
		if e.cfg.LLM.UseReasoningForAnalysis {
			return llmclient.TierReasoning
		}
	}
	return llmclient.TierStandard
}

// asStageError normalizes handler errors to *StageError. Handlers already
// return typed errors; anything else is classified as transport.
func asStageError(stage Stage, err error) *StageError {
	if se, ok := err.(*StageError); ok {
		return se
	}
	return transportErr(stage, err)
}

func (e *Engine) checkpoint(state *State) {
	dir := e.cfg.Workflow.CheckpointDir
	if dir == "" {
		return
	}
	if err := SaveCheckpoint(state, dir); err != nil {
		e.emitter.Emit(runEvent(EventCheckpointSaved, state.RunID, map[string]any{
			"error": err.Error(),
		}))
		return
	}
	e.emitter.Emit(runEvent(EventCheckpointSaved, state.RunID, nil))
}
