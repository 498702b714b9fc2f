package scorer

import (
	"errors"
	"path/filepath"
	"testing"
)

var featureNames = []string{"resp_time", "bytes_out", "error_rate"}

// trainingMatrix is a tight baseline around (100, 1000, 0.01).
func trainingMatrix() [][]float64 {
	var m [][]float64
	for i := 0; i < 20; i++ {
		jitter := float64(i%5) - 2 // -2..2
		m = append(m, []float64{100 + jitter, 1000 + 10*jitter, 0.01})
	}
	return m
}

func TestFitTooFewSamples(t *testing.T) {
	_, err := Fit([][]float64{{1, 2, 3}}, featureNames, 3.0)
	if err == nil {
		t.Fatal("expected error for insufficient training data")
	}
}

func TestFitDimensionMismatch(t *testing.T) {
	m := trainingMatrix()
	m[3] = []float64{1, 2}
	if _, err := Fit(m, featureNames, 3.0); err == nil {
		t.Fatal("expected error for ragged training matrix")
	}
}

func TestScoreBaselineVsOutlier(t *testing.T) {
	m, err := Fit(trainingMatrix(), featureNames, 3.0)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	preds, err := m.Score([][]float64{
		{100, 1000, 0.01}, // at baseline
		{900, 1000, 0.01}, // far outside
	})
	if err != nil {
		t.Fatalf("score: %v", err)
	}

	if preds[0].Outlier {
		t.Fatalf("baseline vector labeled outlier (score %v)", preds[0].Score)
	}
	if !preds[1].Outlier {
		t.Fatalf("extreme vector not labeled outlier (score %v)", preds[1].Score)
	}
	if preds[1].Score >= preds[0].Score {
		t.Fatalf("outlier should score lower: %v vs %v", preds[1].Score, preds[0].Score)
	}
	if preds[1].Score >= 0 {
		t.Fatalf("vector past the z threshold should score below zero, got %v", preds[1].Score)
	}
}

func TestScoreVectorWidthMismatch(t *testing.T) {
	m, err := Fit(trainingMatrix(), featureNames, 3.0)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if _, err := m.Score([][]float64{{1, 2}}); err == nil {
		t.Fatal("expected error for wrong vector width")
	}
}

func TestUntrainedScoresNothing(t *testing.T) {
	m := Untrained(featureNames, 3.0)
	preds, err := m.Score([][]float64{{1e9, 1e9, 1e9}})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if preds[0].Outlier {
		t.Fatal("untrained model must not label outliers")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "zscore.json")

	fitted, err := Fit(trainingMatrix(), featureNames, 3.0)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if err := fitted.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Means) != len(fitted.Means) {
		t.Fatalf("means length mismatch: %d vs %d", len(loaded.Means), len(fitted.Means))
	}
	for j := range fitted.Means {
		if loaded.Means[j] != fitted.Means[j] || loaded.StdDevs[j] != fitted.StdDevs[j] {
			t.Fatalf("parameters differ at feature %d", j)
		}
	}
	if !loaded.TrainedAt.Equal(fitted.TrainedAt) {
		t.Fatalf("trained_at differs: %v vs %v", loaded.TrainedAt, fitted.TrainedAt)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing model file")
	}
}

func TestLoadOrUntrainedFallsBack(t *testing.T) {
	m := LoadOrUntrained(filepath.Join(t.TempDir(), "absent.json"), featureNames, 3.0)
	if m == nil {
		t.Fatal("expected untrained fallback model")
	}
	if m.ZThreshold != 3.0 {
		t.Fatalf("fallback threshold = %v, want 3.0", m.ZThreshold)
	}
}

type failingScorer struct{}

func (failingScorer) Score([][]float64) ([]Prediction, error) {
	return nil, errors.New("boom")
}

func TestSwappable(t *testing.T) {
	w := NewSwappable(failingScorer{})
	if _, err := w.Score([][]float64{{1}}); err == nil {
		t.Fatal("expected delegated error")
	}

	w.Swap(Untrained([]string{"a"}, 3.0))
	preds, err := w.Score([][]float64{{1}})
	if err != nil {
		t.Fatalf("score after swap: %v", err)
	}
	if len(preds) != 1 {
		t.Fatalf("expected 1 prediction, got %d", len(preds))
	}
}
