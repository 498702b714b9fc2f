package vigil

import (
	"time"

	"github.com/crimson-sun/vigil/internal/model"
)

// Format identifies how a raw log line is parsed.
type Format string

const (
	// FormatStructured is a JSON-object log line.
	FormatStructured Format = "structured"
	// FormatKeyValue is a line of key=value pairs.
	FormatKeyValue Format = "key_value"
	// FormatPattern is a free-form line parsed by a caller-supplied regex.
	FormatPattern Format = "pattern"
)

// PatternConfig carries the regex configuration for FormatPattern: a
// pattern and a mapping from capture-group index to field name.
type PatternConfig struct {
	Pattern string         `json:"pattern"`
	Fields  map[int]string `json:"fields"`
}

// Entry is a single raw log line to analyze.
type Entry struct {
	Raw     string         `json:"raw_log"`
	Service string         `json:"service"`
	Source  string         `json:"source"`
	Format  Format         `json:"format"`
	Pattern *PatternConfig `json:"pattern_config,omitempty"`
}

// Result is the per-log outcome of a detection pass. Lower scores are
// more anomalous; rule violations carry a fixed score of 1.
type Result struct {
	Raw       string  `json:"raw_log"`
	Score     float64 `json:"score"`
	IsAnomaly bool    `json:"is_anomaly"`
}

// Anomaly is a flagged log record.
// This is the stable public type — internal representations may evolve
// independently without breaking consumers.
type Anomaly struct {
	ID            string             `json:"id"`
	Timestamp     time.Time          `json:"timestamp"`
	Service       string             `json:"service"`
	Source        string             `json:"source"`
	Level         string             `json:"level"`
	Message       string             `json:"message"`
	Score         float64            `json:"score"`
	RuleViolation bool               `json:"rule_violation"`
	Features      map[string]float64 `json:"features"`
	Raw           string             `json:"raw_log"`
}

// Stats summarizes the anomaly history.
type Stats struct {
	Total    int     `json:"total"`
	AvgScore float64 `json:"avg_score"`
}

func (e Entry) toInternal() model.RawEntry {
	raw := model.RawEntry{
		Raw:     e.Raw,
		Service: e.Service,
		Source:  e.Source,
		Format:  model.Format(e.Format),
	}
	if e.Pattern != nil {
		raw.Pattern = &model.PatternConfig{
			Pattern: e.Pattern.Pattern,
			Fields:  e.Pattern.Fields,
		}
	}
	return raw
}

func anomalyFromInternal(a model.Anomaly) Anomaly {
	return Anomaly{
		ID:            a.ID,
		Timestamp:     a.Timestamp,
		Service:       a.Service,
		Source:        a.Source,
		Level:         a.Level,
		Message:       a.Message,
		Score:         a.Score,
		RuleViolation: a.RuleViolation,
		Features:      a.Features,
		Raw:           a.Raw,
	}
}
