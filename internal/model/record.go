package model

import "time"

// Record is the canonical, format-agnostic form of a parsed log line.
// Feature values are strictly numeric; non-numeric extracted fields are
// dropped during parsing, not coerced.
type Record struct {
	Raw       string
	Service   string
	Source    string
	Timestamp time.Time // always UTC; naive inputs are assumed UTC
	Level     string    // "unknown" when the line carries no level
	Message   string
	Features  map[string]float64
}
