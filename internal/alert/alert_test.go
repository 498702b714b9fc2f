package alert

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
)

type recordingSink struct {
	name     string
	err      error
	messages []string
	kinds    []string
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Notify(message string, details map[string]any, kind string) error {
	s.messages = append(s.messages, message)
	s.kinds = append(s.kinds, kind)
	return s.err
}

func TestManagerDeliversInRegistrationOrder(t *testing.T) {
	m := NewManager()
	a := &recordingSink{name: "a"}
	b := &recordingSink{name: "b"}
	m.Register(a)
	m.Register(b)

	m.Notify("hello", map[string]any{"service": "web"}, KindHighAnomalyRate)

	if len(a.messages) != 1 || len(b.messages) != 1 {
		t.Fatalf("expected both sinks notified, got %d/%d", len(a.messages), len(b.messages))
	}
	if got := m.Sinks(); got[0] != "a" || got[1] != "b" {
		t.Fatalf("registration order not preserved: %v", got)
	}
	if a.kinds[0] != KindHighAnomalyRate {
		t.Fatalf("kind not propagated: %q", a.kinds[0])
	}
}

func TestManagerIsolatesFailingSink(t *testing.T) {
	m := NewManager()
	failing := &recordingSink{name: "failing", err: errors.New("down")}
	healthy := &recordingSink{name: "healthy"}
	m.Register(failing)
	m.Register(healthy)

	m.Notify("msg", nil, "")

	if len(healthy.messages) != 1 {
		t.Fatal("failure of an earlier sink blocked a later one")
	}
}

func TestManagerNoSinks(t *testing.T) {
	m := NewManager()
	// Must not panic or error; the alert is dropped with a warning.
	m.Notify("msg", nil, "")
}

func TestConsoleSink(t *testing.T) {
	var buf bytes.Buffer
	s := &ConsoleSink{Out: &buf}

	if err := s.Notify("cpu spike", map[string]any{"service": "web"}, KindHighAnomalyRate); err != nil {
		t.Fatalf("notify: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "cpu spike") || !strings.Contains(out, KindHighAnomalyRate) {
		t.Fatalf("console output missing fields: %q", out)
	}
}

func TestWebhookSink(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewWebhookSink(srv.URL)
	if err := s.Notify("msg", map[string]any{"service": "db"}, ""); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got["alert_type"] != "standard_anomaly" {
		t.Fatalf("default alert_type not applied: %v", got["alert_type"])
	}
	if got["message"] != "msg" {
		t.Fatalf("message not delivered: %v", got["message"])
	}
}

func TestWebhookSinkErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewWebhookSink(srv.URL)
	if err := s.Notify("msg", nil, ""); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestSlackSinkRateAlertPayload(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		buf.ReadFrom(r.Body)
		body = buf.Bytes()
	}))
	defer srv.Close()

	s := NewSlackSink(srv.URL)
	err := s.Notify("High Anomaly Rate Detected for service: db", map[string]any{
		"service":                 "db",
		"anomaly_count_in_window": 12,
		"time_window_seconds":     60.0,
	}, KindHighAnomalyRate)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if !bytes.Contains(body, []byte("High Anomaly Rate Detected")) {
		t.Fatalf("rate-alert header missing from payload: %s", body)
	}
}

func TestPagerDutySinkPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
	}))
	defer srv.Close()

	s := NewPagerDutySink("rk-123")
	s.apiURL = srv.URL
	if err := s.Notify("msg", map[string]any{"service": "db"}, ""); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got["routing_key"] != "rk-123" || got["event_action"] != "trigger" {
		t.Fatalf("unexpected payload: %v", got)
	}
	payload, _ := got["payload"].(map[string]any)
	if payload["source"] != "db" {
		t.Fatalf("service not used as source: %v", payload["source"])
	}
}
