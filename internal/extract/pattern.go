package extract

import (
	"regexp"

	"github.com/crimson-sun/vigil/internal/model"
)

func init() {
	Register(model.FormatPattern, parsePattern)
}

// parsePattern applies the caller-supplied regex and maps capture groups to
// field names by index. Missing configuration, an invalid pattern, or a
// non-matching line all drop the entry.
func parsePattern(entry model.RawEntry) (map[string]any, bool) {
	cfg := entry.Pattern
	if cfg == nil || cfg.Pattern == "" || len(cfg.Fields) == 0 {
		return nil, false
	}

	re, err := regexp.Compile(cfg.Pattern)
	if err != nil {
		return nil, false
	}

	groups := re.FindStringSubmatch(entry.Raw)
	if groups == nil {
		return nil, false
	}

	fields := make(map[string]any, len(cfg.Fields))
	for idx, name := range cfg.Fields {
		// idx addresses capture groups, which start at groups[1].
		if idx < 0 || idx+1 >= len(groups) {
			continue
		}
		fields[name] = groups[idx+1]
	}
	if len(fields) == 0 {
		return nil, false
	}
	return fields, true
}
