// Package alert fans notifications out to registered sinks. Registration
// order is delivery order; one sink's failure is isolated and never
// reaches the caller.
package alert

import (
	"github.com/rs/zerolog"

	"github.com/crimson-sun/vigil/internal/logging"
)

// KindHighAnomalyRate tags aggregate alerts from the rate throttle so
// sinks can route them differently from ad-hoc notifications.
const KindHighAnomalyRate = "high_anomaly_rate"

// Sink delivers one alert to one destination.
type Sink interface {
	Name() string
	Notify(message string, details map[string]any, kind string) error
}

// Manager holds the registered sinks and dispatches to all of them.
type Manager struct {
	sinks []Sink
	log   zerolog.Logger
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{log: logging.Component("alert")}
}

// Register appends a sink. Not safe to call after dispatching begins;
// sinks are registered once at startup.
func (m *Manager) Register(s Sink) {
	m.sinks = append(m.sinks, s)
	m.log.Info().Str("sink", s.Name()).Msg("alert sink registered")
}

// Sinks returns the names of the registered sinks in delivery order.
func (m *Manager) Sinks() []string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return names
}

// Notify delivers the alert to every sink in registration order. A
// failing sink is logged and skipped; delivery always continues.
func (m *Manager) Notify(message string, details map[string]any, kind string) {
	if len(m.sinks) == 0 {
		m.log.Warn().Str("kind", kind).Msg("no alert sinks registered, alert dropped")
		return
	}
	for _, s := range m.sinks {
		if err := s.Notify(message, details, kind); err != nil {
			m.log.Error().Err(err).Str("sink", s.Name()).Str("kind", kind).Msg("alert delivery failed")
		}
	}
}
