// Package history keeps the bounded, persisted anomaly history: an
// insertion-ordered ring in memory, snapshotted in full to a compressed
// JSON file after every append.
package history

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/crimson-sun/vigil/internal/logging"
	"github.com/crimson-sun/vigil/internal/metrics"
	"github.com/crimson-sun/vigil/internal/model"
)

// DefaultCapacity bounds the history when no capacity is configured.
const DefaultCapacity = 500

// Option configures a Store.
type Option func(*Store)

// WithMirror attaches an asynchronous snapshot mirror (e.g. S3). Mirror
// failures never affect the local store.
func WithMirror(m Mirror) Option {
	return func(s *Store) { s.mirror = m }
}

// Mirror receives a copy of every successfully written snapshot.
type Mirror interface {
	Upload(snapshot []byte)
}

// Store is the anomaly history buffer. Mutation (append + snapshot) is a
// single serialization point; reads work on copies and may proceed
// concurrently.
type Store struct {
	mu       sync.RWMutex
	records  []model.Anomaly // oldest first
	capacity int
	path     string
	mirror   Mirror
	log      zerolog.Logger
}

// New creates a Store bounded at capacity, persisting snapshots to path.
// A prior snapshot at path is loaded if readable; a corrupt or missing
// one starts the store empty rather than failing.
func New(capacity int, path string, opts ...Option) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	s := &Store{
		capacity: capacity,
		path:     path,
		log:      logging.Component("history"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.records = s.loadSnapshot()
	metrics.HistorySize.Set(float64(len(s.records)))
	return s
}

// Append adds a batch of anomalies, evicting the oldest past capacity,
// and writes a full snapshot. Snapshot failures are logged; the in-memory
// state stays authoritative.
func (s *Store) Append(anomalies []model.Anomaly) {
	if len(anomalies) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, anomalies...)
	if over := len(s.records) - s.capacity; over > 0 {
		s.records = append([]model.Anomaly(nil), s.records[over:]...)
	}
	metrics.HistorySize.Set(float64(len(s.records)))

	if data, err := s.writeSnapshot(s.records); err != nil {
		metrics.SnapshotFailures.Inc()
		s.log.Error().Err(err).Str("path", s.path).Msg("snapshot write failed, in-memory history remains authoritative")
	} else if s.mirror != nil {
		go s.mirror.Upload(data)
	}
}

// Recent returns up to limit records, most anomalous first: score
// ascending, ties broken by earlier timestamp. The live buffer is never
// sorted in place.
func (s *Store) Recent(limit int) []model.Anomaly {
	s.mu.RLock()
	snapshot := append([]model.Anomaly(nil), s.records...)
	s.mu.RUnlock()

	sort.SliceStable(snapshot, func(i, j int) bool {
		if snapshot[i].Score != snapshot[j].Score {
			return snapshot[i].Score < snapshot[j].Score
		}
		return snapshot[i].Timestamp.Before(snapshot[j].Timestamp)
	})
	if limit > 0 && limit < len(snapshot) {
		snapshot = snapshot[:limit]
	}
	return snapshot
}

// All returns the records in insertion order.
func (s *Store) All() []model.Anomaly {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Anomaly(nil), s.records...)
}

// Len reports the number of records held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Stats summarizes the history: total count and mean score.
type Stats struct {
	Total    int     `json:"total"`
	AvgScore float64 `json:"avg_score"`
}

// Stat computes summary statistics over the whole history.
func (s *Store) Stat() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Total: len(s.records)}
	if st.Total == 0 {
		return st
	}
	var sum float64
	for _, r := range s.records {
		sum += r.Score
	}
	st.AvgScore = sum / float64(st.Total)
	return st
}

// Clear drops all in-memory records and deletes the durable snapshot.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	metrics.HistorySize.Set(0)
	if err := s.removeSnapshot(); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("snapshot delete failed")
	}
	s.log.Info().Msg("anomaly history cleared")
}
