package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrCheckpointNotFound is returned when no checkpoint file exists for a run.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// checkpointPath returns the snapshot file for a run within dir.
func checkpointPath(dir, runID string) string {
	return filepath.Join(dir, runID+".json")
}

// SaveCheckpoint writes a JSON snapshot of the state, keyed by run ID.
// Snapshots are diagnostic aids, not a durability guarantee.
func SaveCheckpoint(state *State, dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	if err := os.WriteFile(checkpointPath(dir, state.RunID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint reads back the snapshot for a run.
func LoadCheckpoint(dir, runID string) (*State, error) {
	data, err := os.ReadFile(checkpointPath(dir, runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &state, nil
}
