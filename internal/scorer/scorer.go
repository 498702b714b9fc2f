// Package scorer defines the statistical outlier-scoring seam and a
// z-score implementation of it. The detection engine consumes a Scorer as
// an opaque batch function; training lifecycles live behind the seam.
package scorer

import "sync"

// Prediction is the scorer's verdict for one feature vector. Lower scores
// are more anomalous; Outlier is the model's binary label.
type Prediction struct {
	Outlier bool
	Score   float64
}

// Scorer scores a batch of feature vectors in one call. Implementations
// must behave as a pure function over the batch.
type Scorer interface {
	Score(vectors [][]float64) ([]Prediction, error)
}

// Swappable wraps a live Scorer reference so retraining can replace the
// model without interrupting in-flight batches: a batch keeps the
// reference it resolved, and the swap takes effect on the next one.
type Swappable struct {
	mu sync.RWMutex
	s  Scorer
}

// NewSwappable wraps the given scorer.
func NewSwappable(s Scorer) *Swappable {
	return &Swappable{s: s}
}

// Score resolves the current scorer and delegates the batch to it.
func (w *Swappable) Score(vectors [][]float64) ([]Prediction, error) {
	w.mu.RLock()
	s := w.s
	w.mu.RUnlock()
	return s.Score(vectors)
}

// Swap replaces the wrapped scorer.
func (w *Swappable) Swap(s Scorer) {
	w.mu.Lock()
	w.s = s
	w.mu.Unlock()
}

// Current returns the wrapped scorer.
func (w *Swappable) Current() Scorer {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.s
}
