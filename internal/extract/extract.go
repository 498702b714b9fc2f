package extract

import (
	"github.com/rs/zerolog"

	"github.com/crimson-sun/vigil/internal/logging"
	"github.com/crimson-sun/vigil/internal/model"
)

// ParseFunc parses one raw entry into a flat field map. The second return
// value reports whether the entry could be parsed at all.
type ParseFunc func(entry model.RawEntry) (map[string]any, bool)

var registry = map[model.Format]ParseFunc{}

// Register adds a parse function under the given format tag. New formats
// register here without touching existing ones.
func Register(format model.Format, fn ParseFunc) {
	registry[format] = fn
}

// Formats returns the registered format tags.
func Formats() []model.Format {
	formats := make([]model.Format, 0, len(registry))
	for f := range registry {
		formats = append(formats, f)
	}
	return formats
}

// Extractor normalizes raw log entries into canonical records with numeric
// features. Parsing never fails loudly: undecodable or featureless entries
// are dropped with a diagnostic log and the batch continues.
type Extractor struct {
	log zerolog.Logger
}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{log: logging.Component("extract")}
}

// Parse converts a batch of raw entries into canonical records, preserving
// input order. Entries that cannot be parsed, or that yield no numeric
// features, are skipped.
func (e *Extractor) Parse(entries []model.RawEntry) []model.Record {
	records := make([]model.Record, 0, len(entries))
	for _, entry := range entries {
		rec, ok := e.parseOne(entry)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records
}

func (e *Extractor) parseOne(entry model.RawEntry) (model.Record, bool) {
	fn, ok := registry[entry.Format]
	if !ok {
		e.log.Warn().
			Str("format", string(entry.Format)).
			Str("service", entry.Service).
			Msg("unsupported log format, entry dropped")
		return model.Record{}, false
	}

	fields, ok := fn(entry)
	if !ok {
		e.log.Debug().
			Str("format", string(entry.Format)).
			Str("service", entry.Service).
			Str("raw", entry.Raw).
			Msg("unparseable entry dropped")
		return model.Record{}, false
	}

	features := make(map[string]float64, len(fields))
	for k, v := range fields {
		if n, numeric := Numeric(v); numeric {
			features[k] = n
		}
	}
	if len(features) == 0 {
		e.log.Debug().
			Str("service", entry.Service).
			Str("raw", entry.Raw).
			Msg("entry has no numeric features, dropped")
		return model.Record{}, false
	}

	return model.Record{
		Raw:       entry.Raw,
		Service:   entry.Service,
		Source:    entry.Source,
		Timestamp: NormalizeTimestamp(stringField(fields, "timestamp")),
		Level:     levelField(fields),
		Message:   stringField(fields, "message"),
		Features:  features,
	}, true
}

func stringField(fields map[string]any, key string) string {
	if s, ok := fields[key].(string); ok {
		return s
	}
	return ""
}

func levelField(fields map[string]any) string {
	if s, ok := fields["level"].(string); ok && s != "" {
		return s
	}
	return "unknown"
}
