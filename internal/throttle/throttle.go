// Package throttle converts bursts of individual anomalies into at most
// one aggregate alert per service per sliding window.
package throttle

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/crimson-sun/vigil/internal/alert"
	"github.com/crimson-sun/vigil/internal/logging"
	"github.com/crimson-sun/vigil/internal/metrics"
	"github.com/crimson-sun/vigil/internal/model"
)

// Rule is a per-service rate-alert policy: fire once Count anomalies land
// inside one trailing Window.
type Rule struct {
	Count  int           `json:"count" yaml:"count"`
	Window time.Duration `json:"window" yaml:"window"`
}

// Config resolves the rule for each service, falling back to Default when
// the service has no rule of its own. A nil Default disables throttling
// for unlisted services entirely.
type Config struct {
	Default  *Rule
	Services map[string]Rule
}

// Throttle keeps one sliding window of anomaly timestamps per service.
// Windows for different services update in parallel; a single service's
// update-and-maybe-fire sequence is serialized.
type Throttle struct {
	cfg    Config
	sinks  *alert.Manager
	log    zerolog.Logger
	mu     sync.Mutex // guards the windows table, not the windows
	window map[string]*serviceWindow
}

type serviceWindow struct {
	mu         sync.Mutex
	timestamps []time.Time
}

// New creates a Throttle dispatching through the given alert manager.
func New(cfg Config, sinks *alert.Manager) *Throttle {
	return &Throttle{
		cfg:    cfg,
		sinks:  sinks,
		log:    logging.Component("throttle"),
		window: make(map[string]*serviceWindow),
	}
}

// Observe feeds a batch of fresh anomalies into the per-service windows,
// firing aggregate alerts where a window crosses its rule's count.
func (t *Throttle) Observe(anomalies []model.Anomaly) {
	for _, a := range anomalies {
		t.observeOne(a)
	}
}

func (t *Throttle) observeOne(a model.Anomaly) {
	rule, ok := t.resolveRule(a.Service)
	if !ok {
		// No policy for this service: keep no state, fire nothing.
		return
	}

	w := t.serviceWindow(a.Service)
	w.mu.Lock()
	defer w.mu.Unlock()

	ts := a.Timestamp.UTC()
	w.timestamps = append(w.timestamps, ts)

	cutoff := ts.Add(-rule.Window)
	i := 0
	for i < len(w.timestamps) && w.timestamps[i].Before(cutoff) {
		i++
	}
	w.timestamps = w.timestamps[i:]

	count := len(w.timestamps)
	if count < rule.Count {
		return
	}

	t.sinks.Notify(
		fmt.Sprintf("High Anomaly Rate Detected for service: %s", a.Service),
		map[string]any{
			"service":                 a.Service,
			"rule_violated":           rule,
			"anomaly_count_in_window": count,
			"time_window_seconds":     rule.Window.Seconds(),
			"last_anomaly_timestamp":  ts.Format(time.RFC3339),
		},
		alert.KindHighAnomalyRate,
	)
	metrics.AlertsSent.Inc()
	t.log.Warn().
		Str("service", a.Service).
		Int("count", count).
		Dur("window", rule.Window).
		Msg("high anomaly rate alert fired, window cleared")

	// Clear so the next anomaly does not immediately re-fire.
	w.timestamps = w.timestamps[:0]
}

// WindowSize reports the current number of timestamps held for a service.
func (t *Throttle) WindowSize(service string) int {
	t.mu.Lock()
	w, ok := t.window[service]
	t.mu.Unlock()
	if !ok {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.timestamps)
}

func (t *Throttle) resolveRule(service string) (Rule, bool) {
	if r, ok := t.cfg.Services[service]; ok {
		return r, true
	}
	if t.cfg.Default != nil {
		return *t.cfg.Default, true
	}
	return Rule{}, false
}

func (t *Throttle) serviceWindow(service string) *serviceWindow {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.window[service]
	if !ok {
		w = &serviceWindow{}
		t.window[service] = w
	}
	return w
}
