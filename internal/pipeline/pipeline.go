// Package pipeline connects extraction, detection, history, and rate
// alerting into a single batch processing path.
package pipeline

import (
	"github.com/rs/zerolog"

	"github.com/crimson-sun/vigil/internal/detect"
	"github.com/crimson-sun/vigil/internal/extract"
	"github.com/crimson-sun/vigil/internal/history"
	"github.com/crimson-sun/vigil/internal/logging"
	"github.com/crimson-sun/vigil/internal/metrics"
	"github.com/crimson-sun/vigil/internal/model"
	"github.com/crimson-sun/vigil/internal/throttle"
)

// Result is the per-log outcome of a detection pass.
type Result struct {
	Raw       string  `json:"raw_log"`
	Score     float64 `json:"score"`
	IsAnomaly int     `json:"is_anomaly"`
}

// Pipeline runs incoming batches end to end.
type Pipeline struct {
	extractor *extract.Extractor
	engine    *detect.Engine
	history   *history.Store
	throttle  *throttle.Throttle
	log       zerolog.Logger
}

// New creates a Pipeline from the given stages. The throttle may be nil
// when rate alerting is disabled.
func New(ex *extract.Extractor, eng *detect.Engine, hist *history.Store, thr *throttle.Throttle) *Pipeline {
	return &Pipeline{
		extractor: ex,
		engine:    eng,
		history:   hist,
		throttle:  thr,
		log:       logging.Component("pipeline"),
	}
}

// Process parses the batch, detects anomalies, persists them, and feeds
// the rate throttle. It returns one Result per distinct parsed log,
// keyed by raw text; unparseable entries are dropped and absent from
// the results.
func (p *Pipeline) Process(entries []model.RawEntry) []Result {
	records := p.extractor.Parse(entries)
	metrics.EntriesParsed.Add(float64(len(records)))
	if dropped := len(entries) - len(records); dropped > 0 {
		metrics.EntriesDropped.Add(float64(dropped))
	}

	anomalies := p.engine.Detect(records)
	if len(anomalies) > 0 {
		p.history.Append(anomalies)
		if p.throttle != nil {
			p.throttle.Observe(anomalies)
		}
		p.log.Info().
			Int("received", len(entries)).
			Int("parsed", len(records)).
			Int("anomalies", len(anomalies)).
			Msg("batch processed")
	}

	byRaw := make(map[string]model.Anomaly, len(anomalies))
	for _, a := range anomalies {
		byRaw[a.Raw] = a
	}

	results := make([]Result, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		if seen[rec.Raw] {
			continue
		}
		seen[rec.Raw] = true
		res := Result{Raw: rec.Raw}
		if a, ok := byRaw[rec.Raw]; ok {
			res.Score = a.Score
			res.IsAnomaly = 1
		}
		results = append(results, res)
	}
	return results
}
