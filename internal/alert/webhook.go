package alert

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

const sinkTimeout = 5 * time.Second

// WebhookSink POSTs a generic JSON payload to a configured URL.
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink creates a generic webhook sink.
func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{url: url, client: &http.Client{Timeout: sinkTimeout}}
}

func (s *WebhookSink) Name() string { return "webhook" }

func (s *WebhookSink) Notify(message string, details map[string]any, kind string) error {
	if kind == "" {
		kind = "standard_anomaly"
	}
	payload := map[string]any{
		"alert_type": kind,
		"message":    message,
		"details":    details,
	}
	return postJSON(s.client, s.url, payload, "webhook sink")
}

func postJSON(client *http.Client, url string, payload any, label string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", label, err)
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: post: %w", label, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s: unexpected status %s", label, resp.Status)
	}
	return nil
}
