// Package checkpoint persists durable per-run snapshots of pipeline state.
//
// One JSON file per run id. A checkpoint is an optimization for crash
// recovery, never a condition for run correctness: write failures are logged
// and swallowed, and an unreadable file is treated the same as an absent one.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Snapshot is the serialized subset of a run's state plus the name of the
// step that most recently completed.
type Snapshot struct {
	RunID   string          `json:"run_id"`
	Step    string          `json:"step"`
	SavedAt time.Time       `json:"saved_at"`
	State   json.RawMessage `json:"state"`
}

// Store writes one checkpoint file per run id under a base directory.
// No locking: exactly one executor owns a given run id's checkpoint.
type Store struct {
	dir string
}

// NewStore creates the base directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("checkpoint dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(runID string) string {
	return filepath.Join(s.dir, runID+".json")
}

// Save overwrites the checkpoint for runID with the serialized state and the
// step that just completed. Last write wins.
func (s *Store) Save(runID, step string, state any) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	snap := Snapshot{
		RunID:   runID,
		Step:    step,
		SavedAt: time.Now().UTC(),
		State:   raw,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	// Write to a temp file then rename so a reader never sees a torn write.
	tmp := s.path(runID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.path(runID)); err != nil {
		return fmt.Errorf("failed to replace checkpoint: %w", err)
	}
	return nil
}

// Load returns the snapshot for runID, or nil if absent. A file that cannot
// be parsed is logged and treated as absent.
func (s *Store) Load(runID string) (*Snapshot, error) {
	data, err := os.ReadFile(s.path(runID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("WARN: checkpoint for run %s is unreadable, ignoring: %v", runID, err)
		return nil, nil
	}
	return &snap, nil
}

// Clear deletes the checkpoint for runID. Best-effort; missing is fine.
func (s *Store) Clear(runID string) {
	if err := os.Remove(s.path(runID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("WARN: failed to clear checkpoint for run %s: %v", runID, err)
	}
}
