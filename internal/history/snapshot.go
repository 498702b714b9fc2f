package history

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"

	"github.com/crimson-sun/vigil/internal/model"
)

// writeSnapshot overwrites the durable snapshot with the full record set,
// encoded as a gzip-compressed JSON array (timestamps as RFC 3339). The
// file is replaced atomically via a temp-file rename. Returns the encoded
// bytes so a mirror can reuse them. An empty path keeps the store
// memory-only; the bytes are still produced for the mirror.
func (s *Store) writeSnapshot(records []model.Anomaly) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(records); err != nil {
		gz.Close()
		return nil, fmt.Errorf("history: encode snapshot: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("history: compress snapshot: %w", err)
	}

	if s.path == "" {
		return buf.Bytes(), nil
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history: create snapshot dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("history: write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return nil, fmt.Errorf("history: replace snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// loadSnapshot reads a prior snapshot. Any failure (missing file, bad
// gzip, bad JSON, over-capacity trim) degrades to an empty history.
func (s *Store) loadSnapshot() []model.Anomaly {
	if s.path == "" {
		return nil
	}
	f, err := os.Open(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", s.path).Msg("snapshot unreadable, starting empty")
		}
		return nil
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("snapshot not valid gzip, starting empty")
		return nil
	}
	defer gz.Close()

	var records []model.Anomaly
	if err := json.NewDecoder(gz).Decode(&records); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("snapshot not valid JSON, starting empty")
		return nil
	}
	if len(records) > s.capacity {
		records = records[len(records)-s.capacity:]
	}
	s.log.Info().Int("records", len(records)).Str("path", s.path).Msg("loaded persisted anomaly history")
	return records
}

func (s *Store) removeSnapshot() error {
	if s.path == "" {
		return nil
	}
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
