package alert

import "net/http"

const pagerDutyEventsURL = "https://events.pagerduty.com/v2/enqueue"

// PagerDutySink triggers PagerDuty Events API v2 incidents.
type PagerDutySink struct {
	routingKey string
	apiURL     string
	client     *http.Client
}

// NewPagerDutySink creates a sink for the given routing key.
func NewPagerDutySink(routingKey string) *PagerDutySink {
	return &PagerDutySink{
		routingKey: routingKey,
		apiURL:     pagerDutyEventsURL,
		client:     &http.Client{Timeout: sinkTimeout},
	}
}

func (s *PagerDutySink) Name() string { return "pagerduty" }

func (s *PagerDutySink) Notify(message string, details map[string]any, kind string) error {
	source := "vigil"
	if svc, ok := details["service"].(string); ok && svc != "" {
		source = svc
	}
	payload := map[string]any{
		"routing_key":  s.routingKey,
		"event_action": "trigger",
		"payload": map[string]any{
			"summary":        message,
			"source":         source,
			"severity":       "critical",
			"custom_details": details,
		},
	}
	return postJSON(s.client, s.apiURL, payload, "pagerduty sink")
}
