// Package detect implements the dual-path anomaly detection engine:
// deterministic threshold rules first, then batched statistical scoring
// for everything the rules let through.
package detect

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/crimson-sun/vigil/internal/logging"
	"github.com/crimson-sun/vigil/internal/metrics"
	"github.com/crimson-sun/vigil/internal/model"
	"github.com/crimson-sun/vigil/internal/scorer"
	"github.com/crimson-sun/vigil/internal/vector"
)

// Config carries the engine's construction-time configuration. The engine
// does not hot-reload it.
type Config struct {
	// DefaultRules maps feature name to threshold for services with no
	// override of their own.
	DefaultRules map[string]float64
	// ServiceRules overlays DefaultRules per service; service keys win.
	ServiceRules map[string]map[string]float64
	// FeatureNames fixes the vectorization order; it must match the order
	// the scorer was fitted with.
	FeatureNames []string
	// ScoreCutoff gates the model phase: a record is anomalous only if the
	// scorer labels it outlying AND its score falls below this cutoff.
	ScoreCutoff float64
}

// Engine evaluates batches of canonical records. It holds no mutable state
// beyond the scorer reference, so batches may run concurrently.
type Engine struct {
	cfg    Config
	scorer scorer.Scorer
	log    zerolog.Logger
}

// New creates an Engine. Pass a *scorer.Swappable to allow retraining to
// replace the model between batches.
func New(cfg Config, s scorer.Scorer) *Engine {
	return &Engine{cfg: cfg, scorer: s, log: logging.Component("detect")}
}

// Detect runs both phases over a batch and returns the merged anomalies,
// keyed by raw log text (a later record with identical raw text replaces
// an earlier one; rule-phase results are never replaced). Failures inside
// the batch are contained: a scorer error degrades the model phase to no
// results and the rule-phase anomalies are still returned.
func (e *Engine) Detect(records []model.Record) []model.Anomaly {
	if len(records) == 0 {
		return nil
	}

	merged := make(map[string]model.Anomaly)
	var order []string
	put := func(a model.Anomaly) {
		if prev, ok := merged[a.Raw]; ok {
			if prev.RuleViolation {
				return
			}
		} else {
			order = append(order, a.Raw)
		}
		merged[a.Raw] = a
	}

	// Rule phase: first violation wins per record; violators never reach
	// the model phase.
	var pass []model.Record
	for _, rec := range records {
		if a, violated := e.checkRules(rec); violated {
			put(a)
			metrics.AnomaliesDetected.WithLabelValues("rule").Inc()
			continue
		}
		pass = append(pass, rec)
	}

	// Model phase: one batch call, no locks held across it. A nil scorer
	// means rules-only operation.
	if len(pass) > 0 && e.scorer != nil {
		matrix := vector.Matrix(pass, e.cfg.FeatureNames)
		preds, err := e.scorer.Score(matrix)
		if err != nil || len(preds) != len(pass) {
			if err == nil {
				err = fmt.Errorf("detect: scorer returned %d predictions for %d vectors", len(preds), len(pass))
			}
			metrics.ScorerFailures.Inc()
			e.log.Error().Err(err).Int("batch", len(pass)).Msg("scorer invocation failed, model phase skipped")
		} else {
			for i, p := range preds {
				if p.Outlier && p.Score < e.cfg.ScoreCutoff {
					put(e.modelAnomaly(pass[i], matrix[i], p.Score))
					metrics.AnomaliesDetected.WithLabelValues("model").Inc()
				}
			}
		}
	}

	anomalies := make([]model.Anomaly, 0, len(order))
	for _, key := range order {
		anomalies = append(anomalies, merged[key])
	}
	return anomalies
}

// checkRules evaluates the effective rule set for the record's service in
// the set's own (sorted-key) order and stops at the first violation.
func (e *Engine) checkRules(rec model.Record) (model.Anomaly, bool) {
	rules := e.effectiveRules(rec.Service)
	for _, feat := range sortedKeys(rules) {
		threshold := rules[feat]
		value, ok := rec.Features[feat]
		if !ok || value <= threshold {
			continue
		}
		return model.Anomaly{
			ID:            uuid.NewString(),
			Timestamp:     rec.Timestamp,
			Service:       rec.Service,
			Source:        rec.Source,
			Level:         rec.Level,
			Message:       fmt.Sprintf("Rule violation: %s (%v) > %v", feat, value, threshold),
			Score:         model.RuleViolationScore,
			RuleViolation: true,
			Features:      rec.Features,
			Raw:           rec.Raw,
			Metadata: map[string]any{
				"violated_rule": feat,
				"threshold":     threshold,
				"actual_value":  value,
			},
		}, true
	}
	return model.Anomaly{}, false
}

func (e *Engine) modelAnomaly(rec model.Record, row []float64, score float64) model.Anomaly {
	features := make(map[string]float64, len(e.cfg.FeatureNames))
	for j, name := range e.cfg.FeatureNames {
		features[name] = row[j]
	}
	return model.Anomaly{
		ID:        uuid.NewString(),
		Timestamp: rec.Timestamp,
		Service:   rec.Service,
		Source:    rec.Source,
		Level:     rec.Level,
		Message:   rec.Message,
		Score:     score,
		Features:  features,
		Raw:       rec.Raw,
		Metadata:  map[string]any{},
	}
}

// effectiveRules overlays the service's rule set on the defaults; the
// service's thresholds win on shared keys.
func (e *Engine) effectiveRules(service string) map[string]float64 {
	overrides := e.cfg.ServiceRules[service]
	rules := make(map[string]float64, len(e.cfg.DefaultRules)+len(overrides))
	for k, v := range e.cfg.DefaultRules {
		rules[k] = v
	}
	for k, v := range overrides {
		rules[k] = v
	}
	return rules
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
