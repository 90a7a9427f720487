package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a stage failure for retry decisions.
type ErrorKind string

const (
	// ErrTransport is a network/backend failure. May be retryable.
	ErrTransport ErrorKind = "transport"

	// ErrParse means a backend response did not match the expected
	// structure. Never retryable: the response shape is not transient.
	ErrParse ErrorKind = "parse"

	// ErrPrecondition means a stage was invoked with required upstream
	// state missing. Indicates an orchestrator routing bug.
	ErrPrecondition ErrorKind = "precondition"

	// ErrTimeout means the run-level wall-clock budget was exceeded.
	ErrTimeout ErrorKind = "timeout"
)

// StageError is a typed failure from a stage handler. The orchestrator is
// the sole component that decides retry versus abort based on Kind and
// Retryable.
type StageError struct {
	Stage     Stage
	Kind      ErrorKind
	Retryable bool
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %s error: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// retryableErr is implemented by the adapters' transport error types.
type retryableErr interface {
	Retryable() bool
}

// transportErr wraps an adapter failure, preserving its retryable
// classification. Context expiry is reported as a timeout instead.
func transportErr(stage Stage, err error) *StageError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return timeoutErr(stage, err)
	}
	retryable := false
	var r retryableErr
	if errors.As(err, &r) {
		retryable = r.Retryable()
	}
	return &StageError{Stage: stage, Kind: ErrTransport, Retryable: retryable, Err: err}
}

func parseErr(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Kind: ErrParse, Err: err}
}

func preconditionErr(stage Stage, msg string) *StageError {
	return &StageError{Stage: stage, Kind: ErrPrecondition, Err: errors.New(msg)}
}

func timeoutErr(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Kind: ErrTimeout, Err: err}
}
