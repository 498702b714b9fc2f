package vigil

import "github.com/crimson-sun/vigil/internal/config"

type options struct {
	rules           map[string]map[string]float64
	featureNames    []string
	scoreCutoff     float64
	zThreshold      float64
	modelPath       string
	historyCapacity int
	snapshotPath    string
}

// Option configures a Vigil instance.
type Option func(*options)

// WithRule sets one threshold rule for a service: values above threshold
// for the named feature are flagged as anomalies. Repeatable.
func WithRule(service, feature string, threshold float64) Option {
	return func(o *options) {
		table, ok := o.rules[service]
		if !ok {
			table = make(map[string]float64)
			o.rules[service] = table
		}
		table[feature] = threshold
	}
}

// WithDefaultRule sets a threshold rule for services that have no rule
// table of their own.
func WithDefaultRule(feature string, threshold float64) Option {
	return WithRule(config.DefaultKey, feature, threshold)
}

// WithRules replaces the entire rule table. The config.DefaultKey entry,
// if present, applies to services without a table of their own.
func WithRules(rules map[string]map[string]float64) Option {
	return func(o *options) {
		o.rules = rules
	}
}

// WithFeatureNames fixes the feature order used for vectorization and
// model scoring. Default: resp_time, bytes_out, error_rate.
func WithFeatureNames(names ...string) Option {
	return func(o *options) {
		o.featureNames = names
	}
}

// WithScoreCutoff sets the model-phase score cutoff: a record is
// anomalous only if the model labels it outlying and scores it below
// this cutoff. Default: 0.25.
func WithScoreCutoff(cutoff float64) Option {
	return func(o *options) {
		o.scoreCutoff = cutoff
	}
}

// WithZThreshold sets the z-score beyond which a feature value counts as
// outlying. Default: 3.
func WithZThreshold(t float64) Option {
	return func(o *options) {
		o.zThreshold = t
	}
}

// WithModelPath loads a persisted model from path at construction and
// saves retrained models back to it.
func WithModelPath(path string) Option {
	return func(o *options) {
		o.modelPath = path
	}
}

// WithHistoryCapacity bounds the in-memory anomaly history. Default: 500.
func WithHistoryCapacity(n int) Option {
	return func(o *options) {
		o.historyCapacity = n
	}
}

// WithSnapshotPath persists the anomaly history to a compressed JSON
// file at path. Without it the history is memory-only.
func WithSnapshotPath(path string) Option {
	return func(o *options) {
		o.snapshotPath = path
	}
}

func defaultOptions() options {
	d := config.Default()
	return options{
		rules:           d.Detection.Rules,
		featureNames:    d.Detection.FeatureNames,
		scoreCutoff:     d.Detection.ScoreCutoff,
		zThreshold:      d.Detection.ZThreshold,
		historyCapacity: d.History.Capacity,
	}
}
