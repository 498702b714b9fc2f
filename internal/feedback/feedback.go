// Package feedback persists user-labeled log records for later model
// training. Storage is a flat JSON file rewritten on every save.
package feedback

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/crimson-sun/vigil/internal/logging"
	"github.com/crimson-sun/vigil/internal/model"
)

// Record links one raw log entry to a user-provided label.
type Record struct {
	Log       model.RawEntry `json:"log"`
	IsAnomaly int            `json:"is_anomaly"` // 1 = anomaly, 0 = normal
}

// Store is a mutex-guarded flat-file feedback store.
type Store struct {
	mu   sync.Mutex
	path string
	log  zerolog.Logger
}

// NewStore creates a Store at path, creating the file (as an empty list)
// and its directory if needed. Creation failure is logged, not fatal; a
// later Save retries.
func NewStore(path string) *Store {
	s := &Store{path: path, log: logging.Component("feedback")}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFile(); err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("could not create feedback storage")
	}
	return s
}

// Save appends the records to the file, rewriting it in full.
func (s *Store) Save(records []Record) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFile(); err != nil {
		return fmt.Errorf("feedback: ensure storage: %w", err)
	}

	existing, err := s.readLocked()
	if err != nil {
		return err
	}
	existing = append(existing, records...)

	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("feedback: marshal: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("feedback: write %s: %w", s.path, err)
	}
	s.log.Info().Int("records", len(records)).Str("path", s.path).Msg("feedback saved")
	return nil
}

// All returns every stored feedback record.
func (s *Store) All() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *Store) readLocked() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("feedback: read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("feedback: decode %s: %w", s.path, err)
	}
	return records, nil
}

func (s *Store) ensureFile() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return os.WriteFile(s.path, []byte("[]"), 0o644)
	}
	return nil
}
