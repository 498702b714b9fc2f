package scorer

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"github.com/crimson-sun/vigil/internal/logging"
)

// MinTrainSamples is the smallest training set Fit accepts.
const MinTrainSamples = 10

// ZScoreModel scores vectors by their worst per-feature z-score against a
// fitted baseline. A vector at the baseline scores 1.0; the score falls
// linearly and crosses zero at the z threshold, where the outlier label
// flips on. Lower scores are more anomalous.
type ZScoreModel struct {
	FeatureNames []string  `json:"feature_names"`
	Means        []float64 `json:"means"`
	StdDevs      []float64 `json:"std_devs"`
	ZThreshold   float64   `json:"z_threshold"`
	TrainedAt    time.Time `json:"trained_at"`
}

// Fit estimates per-feature mean and standard deviation over the training
// matrix. Requires at least MinTrainSamples rows of uniform width.
func Fit(vectors [][]float64, featureNames []string, zThreshold float64) (*ZScoreModel, error) {
	if len(vectors) < MinTrainSamples {
		return nil, fmt.Errorf("scorer: insufficient training data: %d samples, need %d", len(vectors), MinTrainSamples)
	}
	dim := len(featureNames)
	for i, row := range vectors {
		if len(row) != dim {
			return nil, fmt.Errorf("scorer: row %d has %d features, expected %d", i, len(row), dim)
		}
	}

	means := make([]float64, dim)
	for _, row := range vectors {
		for j, v := range row {
			means[j] += v
		}
	}
	n := float64(len(vectors))
	for j := range means {
		means[j] /= n
	}

	stds := make([]float64, dim)
	for _, row := range vectors {
		for j, v := range row {
			d := v - means[j]
			stds[j] += d * d
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / n)
	}

	return &ZScoreModel{
		FeatureNames: featureNames,
		Means:        means,
		StdDevs:      stds,
		ZThreshold:   zThreshold,
		TrainedAt:    time.Now().UTC(),
	}, nil
}

// Untrained returns a model with no baseline. It labels nothing as
// outlying, so the model phase is inert until a real fit is swapped in.
func Untrained(featureNames []string, zThreshold float64) *ZScoreModel {
	return &ZScoreModel{
		FeatureNames: featureNames,
		Means:        make([]float64, len(featureNames)),
		StdDevs:      make([]float64, len(featureNames)),
		ZThreshold:   zThreshold,
	}
}

// Score evaluates each vector's worst per-feature deviation. Features with
// zero variance in the baseline are skipped.
func (m *ZScoreModel) Score(vectors [][]float64) ([]Prediction, error) {
	preds := make([]Prediction, len(vectors))
	for i, row := range vectors {
		if len(row) != len(m.Means) {
			return nil, fmt.Errorf("scorer: vector %d has %d features, model expects %d", i, len(row), len(m.Means))
		}
		var zmax float64
		for j, v := range row {
			if m.StdDevs[j] <= 0 {
				continue
			}
			if z := math.Abs(v-m.Means[j]) / m.StdDevs[j]; z > zmax {
				zmax = z
			}
		}
		preds[i] = Prediction{
			Outlier: zmax >= m.ZThreshold,
			Score:   (m.ZThreshold - zmax) / m.ZThreshold,
		}
	}
	return preds, nil
}

// Save writes the fitted parameters to path, creating parent directories
// and replacing any previous file atomically.
func (m *ZScoreModel) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("scorer: marshal model: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("scorer: create model dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("scorer: write model: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("scorer: replace model: %w", err)
	}
	return nil
}

// Load reads fitted parameters from path.
func Load(path string) (*ZScoreModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scorer: read model: %w", err)
	}
	var m ZScoreModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("scorer: decode model: %w", err)
	}
	if len(m.Means) != len(m.FeatureNames) || len(m.StdDevs) != len(m.FeatureNames) {
		return nil, fmt.Errorf("scorer: model file %s has inconsistent dimensions", path)
	}
	if m.ZThreshold <= 0 {
		return nil, fmt.Errorf("scorer: model file %s has invalid z threshold", path)
	}
	return &m, nil
}

// LoadOrUntrained loads a persisted model, falling back to an untrained
// one when the path is empty or the file is missing or unreadable.
func LoadOrUntrained(path string, featureNames []string, zThreshold float64) *ZScoreModel {
	if path == "" {
		return Untrained(featureNames, zThreshold)
	}
	log := logging.Component("scorer")
	m, err := Load(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("no usable model on disk, starting untrained")
		return Untrained(featureNames, zThreshold)
	}
	log.Info().Str("path", path).Time("trained_at", m.TrainedAt).Msg("loaded model")
	return m
}
