package extract

import (
	"regexp"
	"strconv"
)

// First decimal or integer substring anywhere in a string. Handles values
// with unit suffixes ("500ms" -> 500, "1.5s" -> 1.5).
var numericPattern = regexp.MustCompile(`[-+]?\d*\.\d+|\d+`)

// Numeric coerces a parsed field value to a float64 feature. Values that
// are already numbers pass through; strings yield their first numeric
// substring. Anything else is not a feature.
func Numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		match := numericPattern.FindString(n)
		if match == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(match, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
