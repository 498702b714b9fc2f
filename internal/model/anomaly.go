package model

import "time"

// RuleViolationScore is the fixed sentinel assigned to rule-violation
// anomalies. Statistical scores follow the lower-is-more-anomalous
// convention; the sentinel sits outside that scale and marks a
// deterministic threshold breach.
const RuleViolationScore = 1.0

// Anomaly is one detected anomalous log line. Immutable once created;
// owned by the history store after append.
type Anomaly struct {
	ID            string             `json:"id"`
	Timestamp     time.Time          `json:"timestamp"`
	Service       string             `json:"service"`
	Source        string             `json:"source"`
	Level         string             `json:"log_level"`
	Message       string             `json:"message"`
	Score         float64            `json:"anomaly_score"`
	RuleViolation bool               `json:"rule_violation"`
	Features      map[string]float64 `json:"features"`
	Raw           string             `json:"raw_log"`
	Metadata      map[string]any     `json:"metadata,omitempty"`
}
