package alert

import (
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
)

// SlackSink posts alerts to a Slack incoming webhook. Rate alerts get a
// compact header with the window stats; everything else falls back to a
// generic attachment.
type SlackSink struct {
	webhookURL string
	client     *http.Client
}

// NewSlackSink creates a Slack sink for the given incoming-webhook URL.
func NewSlackSink(webhookURL string) *SlackSink {
	return &SlackSink{webhookURL: webhookURL, client: &http.Client{Timeout: sinkTimeout}}
}

func (s *SlackSink) Name() string { return "slack" }

func (s *SlackSink) Notify(message string, details map[string]any, kind string) error {
	var header, title string
	var fields []slackField

	if kind == KindHighAnomalyRate {
		header = "High Anomaly Rate Detected"
		title = fmt.Sprintf("Service: *%v*", details["service"])
		fields = []slackField{
			{"Time Window", fmt.Sprintf("%vs", details["time_window_seconds"])},
			{"Anomaly Count", fmt.Sprintf("%v", details["anomaly_count_in_window"])},
		}
	} else {
		header = "Anomaly Detected"
		title = fmt.Sprintf("Service: *%v* | Source: *%v*", details["service"], details["source"])
		fields = []slackField{
			{"Score", fmt.Sprintf("%v", details["anomaly_score"])},
			{"Timestamp", fmt.Sprintf("%v", details["timestamp"])},
		}
	}

	detailJSON, err := json.MarshalIndent(details, "", "  ")
	if err != nil {
		return fmt.Errorf("slack sink: marshal details: %w", err)
	}

	sections := []map[string]any{
		{"type": "header", "text": map[string]any{"type": "plain_text", "text": header}},
		{"type": "divider"},
		{"type": "section", "text": map[string]any{"type": "mrkdwn", "text": title}},
	}
	var fieldBlocks []map[string]any
	for _, f := range fields {
		fieldBlocks = append(fieldBlocks, map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*%s*\n%s", f.title, f.value),
		})
	}
	sections = append(sections,
		map[string]any{"type": "section", "fields": fieldBlocks},
		map[string]any{"type": "section", "text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Message*: %s\n*Details*:\n```%s```", message, detailJSON),
		}},
	)

	payload := map[string]any{
		"attachments": []map[string]any{
			{"color": "#FF0000", "blocks": sections},
		},
	}
	return postJSON(s.client, s.webhookURL, payload, "slack sink")
}

type slackField struct {
	title string
	value string
}
