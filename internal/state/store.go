// Package state persists the small slice of runtime state that must
// survive a restart: the locally believed position and the last bar close.
package state

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/position"
)

// Snapshot is what gets written on significant state transitions.
type Snapshot struct {
	Position         position.Position `json:"position"`
	LastBarCloseTime time.Time         `json:"last_bar_close_time"`
	SavedAt          time.Time         `json:"saved_at"`
}

// Store reads and writes snapshots at a fixed path.
type Store struct {
	path string
}

// NewStore builds a store targeting path.
func NewStore(path string) *Store { return &Store{path: path} }

// Load returns the persisted snapshot, or ok=false when none exists yet.
func (s *Store) Load() (Snapshot, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

// Save writes the snapshot atomically (write temp then rename).
func (s *Store) Save(snap Snapshot) error {
	snap.SavedAt = time.Now().UTC()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
