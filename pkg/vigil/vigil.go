package vigil

import (
	"fmt"

	"github.com/crimson-sun/vigil/internal/config"
	"github.com/crimson-sun/vigil/internal/detect"
	"github.com/crimson-sun/vigil/internal/extract"
	"github.com/crimson-sun/vigil/internal/history"
	"github.com/crimson-sun/vigil/internal/model"
	"github.com/crimson-sun/vigil/internal/pipeline"
	"github.com/crimson-sun/vigil/internal/scorer"
	"github.com/crimson-sun/vigil/internal/vector"
)

// Vigil is a log anomaly detection engine. It flags anomalies with
// deterministic threshold rules first, then a statistical outlier model.
// Safe for concurrent use.
type Vigil struct {
	extractor *extract.Extractor
	pipe      *pipeline.Pipeline
	hist      *history.Store
	model     *scorer.Swappable

	featureNames []string
	zThreshold   float64
	modelPath    string
}

// New creates a Vigil instance. Without options it carries the default
// rule tables; without WithModelPath (or before the first Train call)
// the statistical phase is inert and only rules fire.
func New(opts ...Option) (*Vigil, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.featureNames) == 0 {
		return nil, fmt.Errorf("vigil: at least one feature name is required")
	}

	m := scorer.NewSwappable(scorer.LoadOrUntrained(o.modelPath, o.featureNames, o.zThreshold))

	serviceRules := make(map[string]map[string]float64, len(o.rules))
	for service, table := range o.rules {
		if service != config.DefaultKey {
			serviceRules[service] = table
		}
	}
	eng := detect.New(detect.Config{
		DefaultRules: o.rules[config.DefaultKey],
		ServiceRules: serviceRules,
		FeatureNames: o.featureNames,
		ScoreCutoff:  o.scoreCutoff,
	}, m)

	ex := extract.New()
	hist := history.New(o.historyCapacity, o.snapshotPath)

	return &Vigil{
		extractor:    ex,
		pipe:         pipeline.New(ex, eng, hist, nil),
		hist:         hist,
		model:        m,
		featureNames: o.featureNames,
		zThreshold:   o.zThreshold,
		modelPath:    o.modelPath,
	}, nil
}

// Detect analyzes a batch of log entries and returns one result per
// distinct parsed line. Flagged anomalies are also added to the history.
func (v *Vigil) Detect(entries []Entry) []Result {
	raws := make([]model.RawEntry, len(entries))
	for i, e := range entries {
		raws[i] = e.toInternal()
	}
	results := v.pipe.Process(raws)

	out := make([]Result, len(results))
	for i, r := range results {
		out[i] = Result{Raw: r.Raw, Score: r.Score, IsAnomaly: r.IsAnomaly == 1}
	}
	return out
}

// Train fits a fresh model on the batch and swaps it in atomically.
// Concurrent Detect calls keep using the old model until the swap.
func (v *Vigil) Train(entries []Entry) error {
	raws := make([]model.RawEntry, len(entries))
	for i, e := range entries {
		raws[i] = e.toInternal()
	}
	records := v.extractor.Parse(raws)
	matrix := vector.Matrix(records, v.featureNames)

	fitted, err := scorer.Fit(matrix, v.featureNames, v.zThreshold)
	if err != nil {
		return err
	}
	if v.modelPath != "" {
		if err := fitted.Save(v.modelPath); err != nil {
			return err
		}
	}
	v.model.Swap(fitted)
	return nil
}

// Anomalies returns up to limit recorded anomalies, most anomalous
// first. A limit of 0 returns all of them.
func (v *Vigil) Anomalies(limit int) []Anomaly {
	records := v.hist.Recent(limit)
	out := make([]Anomaly, len(records))
	for i, a := range records {
		out[i] = anomalyFromInternal(a)
	}
	return out
}

// ClearHistory drops all recorded anomalies.
func (v *Vigil) ClearHistory() {
	v.hist.Clear()
}

// Stat summarizes the anomaly history.
func (v *Vigil) Stat() Stats {
	st := v.hist.Stat()
	return Stats{Total: st.Total, AvgScore: st.AvgScore}
}
