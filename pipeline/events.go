package pipeline

import (
	"sync"
	"time"
)

// EventType represents the type of pipeline event.
type EventType string

const (
	// Run lifecycle events
	EventRunStarted   EventType = "run_started"
	EventRunCompleted EventType = "run_completed"
	EventRunFailed    EventType = "run_failed"

	// Stage lifecycle events
	EventStageStarted   EventType = "stage_started"
	EventStageCompleted EventType = "stage_completed"
	EventStageFailed    EventType = "stage_failed"
	EventStageRetrying  EventType = "stage_retrying"
	EventStageSkipped   EventType = "stage_skipped"

	// Checkpoint events
	EventCheckpointSaved EventType = "checkpoint_saved"
)

// Event represents an observable pipeline event with typed data.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// EventEmitter manages event listeners and dispatches events.
type EventEmitter struct {
	mu        sync.RWMutex
	listeners []func(Event)
}

// NewEventEmitter creates a new EventEmitter.
func NewEventEmitter() *EventEmitter {
	return &EventEmitter{
		listeners: make([]func(Event), 0),
	}
}

// On registers a listener function to receive events.
// Listeners are called synchronously in registration order.
func (e *EventEmitter) On(listener func(Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, listener)
}

// Emit dispatches an event to all registered listeners.
func (e *EventEmitter) Emit(event Event) {
	if e == nil {
		return
	}
	e.mu.RLock()
	listeners := make([]func(Event), len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.RUnlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// ListenerCount returns the number of registered listeners.
func (e *EventEmitter) ListenerCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners)
}

func runEvent(t EventType, runID string, data map[string]any) Event {
	if data == nil {
		data = map[string]any{}
	}
	data["run_id"] = runID
	return Event{Type: t, Timestamp: time.Now(), Data: data}
}

func stageEvent(t EventType, runID string, stage Stage, data map[string]any) Event {
	if data == nil {
		data = map[string]any{}
	}
	data["stage"] = string(stage)
	return runEvent(t, runID, data)
}
