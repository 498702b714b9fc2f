package alert

import (
	"fmt"
	"io"
	"os"
	"time"

	json "github.com/goccy/go-json"
)

// ConsoleSink prints alerts to a writer. Intended for local runs and
// debugging.
type ConsoleSink struct {
	Out io.Writer
}

// NewConsoleSink creates a console sink writing to stdout.
func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{Out: os.Stdout}
}

func (s *ConsoleSink) Name() string { return "console" }

func (s *ConsoleSink) Notify(message string, details map[string]any, kind string) error {
	if kind == "" {
		kind = "general"
	}
	body, err := json.MarshalIndent(details, "", "  ")
	if err != nil {
		return fmt.Errorf("console sink: marshal details: %w", err)
	}
	_, err = fmt.Fprintf(s.Out, "ALERT [%s] %s at %s\n%s\n",
		kind, message, time.Now().UTC().Format(time.RFC3339), body)
	return err
}
