package extract

import (
	json "github.com/goccy/go-json"

	"github.com/crimson-sun/vigil/internal/model"
)

func init() {
	Register(model.FormatStructured, parseStructured)
}

// parseStructured decodes a JSON-object log line into a flat field map.
// Malformed JSON drops the entry.
func parseStructured(entry model.RawEntry) (map[string]any, bool) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(entry.Raw), &fields); err != nil {
		return nil, false
	}
	return fields, true
}
