package model

// Format identifies how a raw log line is to be parsed.
type Format string

const (
	// FormatStructured is a JSON-object log line.
	FormatStructured Format = "structured"
	// FormatKeyValue is a line of key=value pairs (values may be quoted).
	FormatKeyValue Format = "key_value"
	// FormatPattern is a free-form line parsed by a caller-supplied regex.
	FormatPattern Format = "pattern"
)

// PatternConfig carries the regex configuration required by FormatPattern:
// a pattern and a mapping from capture-group index to field name.
type PatternConfig struct {
	Pattern string         `json:"pattern" yaml:"pattern"`
	Fields  map[int]string `json:"fields" yaml:"fields"`
}

// RawEntry is a single unparsed log line as submitted by a caller.
// Constructed once, consumed once by the extractor.
type RawEntry struct {
	Raw     string         `json:"raw_log"`
	Service string         `json:"service"`
	Source  string         `json:"source"`
	Format  Format         `json:"format"`
	Pattern *PatternConfig `json:"pattern_config,omitempty"`
}
