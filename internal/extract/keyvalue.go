package extract

import (
	"regexp"
	"strings"

	"github.com/crimson-sun/vigil/internal/model"
)

// Matches key=value tokens. Values may be double-quoted; unquoted values
// stop at the next whitespace.
var kvPattern = regexp.MustCompile(`(\w+)=("[^"]*"|\S+)`)

func init() {
	Register(model.FormatKeyValue, parseKeyValue)
}

// parseKeyValue tokenizes key=value pairs out of a log line. A line with no
// pairs at all is not parseable.
func parseKeyValue(entry model.RawEntry) (map[string]any, bool) {
	matches := kvPattern.FindAllStringSubmatch(entry.Raw, -1)
	if len(matches) == 0 {
		return nil, false
	}
	fields := make(map[string]any, len(matches))
	for _, m := range matches {
		fields[m[1]] = strings.Trim(m[2], `"`)
	}
	return fields, true
}
