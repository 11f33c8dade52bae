package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Progress records how far a run has advanced, for monitoring long runs
// and for tests. It is advisory: runs are deterministic from the seed and
// are always replayed from step one.
type Progress struct {
	RunID      string `json:"run_id"`
	LastStep   int    `json:"last_step"`
	TotalSteps int    `json:"total_steps"`
	UpdatedAt  string `json:"updated_at"`
}

// FileStateStore persists run progress to a local JSON file. A nil store
// or empty path disables persistence.
type FileStateStore struct {
	Path string
}

func (s *FileStateStore) Load() (Progress, bool, error) {
	if s == nil || s.Path == "" {
		return Progress{}, false, nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return Progress{}, false, nil
		}
		return Progress{}, false, fmt.Errorf("read state: %w", err)
	}

	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return Progress{}, false, fmt.Errorf("parse state: %w", err)
	}
	return p, true, nil
}

func (s *FileStateStore) Save(p Progress) error {
	if s == nil || s.Path == "" {
		return nil
	}
	dir := filepath.Dir(s.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	p.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state tmp: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}
