package vigil

import (
	"fmt"
	"path/filepath"
	"testing"
)

func TestDetectWithDefaultRules(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	results := v.Detect([]Entry{
		{Raw: `{"level":"error","error_rate":0.5}`, Service: "checkout", Format: FormatStructured},
		{Raw: `{"level":"info","error_rate":0.01}`, Service: "checkout", Format: FormatStructured},
	})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].IsAnomaly {
		t.Errorf("error_rate 0.5 breaches the default 0.2 threshold: %+v", results[0])
	}
	if results[1].IsAnomaly {
		t.Errorf("error_rate 0.01 should pass: %+v", results[1])
	}
}

func TestCustomRuleBeatsDefault(t *testing.T) {
	v, err := New(
		WithRule("web_server", "response_time", 1000),
		WithFeatureNames("response_time"),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	results := v.Detect([]Entry{
		{Raw: `{"response_time":1500}`, Service: "web_server", Format: FormatStructured},
	})
	if len(results) != 1 || !results[0].IsAnomaly {
		t.Fatalf("1500 breaches the custom 1000 threshold: %+v", results)
	}
}

func TestTrainEnablesModelPhase(t *testing.T) {
	v, err := New(
		WithRules(map[string]map[string]float64{}),
		WithFeatureNames("response_time"),
		WithScoreCutoff(0.25),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	// Untrained: nothing fires.
	results := v.Detect([]Entry{
		{Raw: `{"response_time":100000}`, Service: "api", Format: FormatStructured},
	})
	if results[0].IsAnomaly {
		t.Fatalf("untrained model should stay inert: %+v", results[0])
	}
	v.ClearHistory()

	baseline := make([]Entry, 0, 20)
	for i := 0; i < 20; i++ {
		baseline = append(baseline, Entry{
			Raw:     fmt.Sprintf(`{"response_time":%d}`, 100+i%5),
			Service: "api",
			Format:  FormatStructured,
		})
	}
	if err := v.Train(baseline); err != nil {
		t.Fatalf("train: %v", err)
	}

	results = v.Detect([]Entry{
		{Raw: `{"response_time":100000}`, Service: "api", Format: FormatStructured},
	})
	if !results[0].IsAnomaly {
		t.Fatalf("trained model should flag the outlier: %+v", results[0])
	}
	if results[0].Score >= 0.25 {
		t.Errorf("expected score below cutoff, got %v", results[0].Score)
	}
}

func TestTrainPersistsModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	v, err := New(WithFeatureNames("response_time"), WithModelPath(path))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	baseline := make([]Entry, 0, 12)
	for i := 0; i < 12; i++ {
		baseline = append(baseline, Entry{
			Raw:     fmt.Sprintf(`{"response_time":%d}`, 200+i),
			Service: "api",
			Format:  FormatStructured,
		})
	}
	if err := v.Train(baseline); err != nil {
		t.Fatalf("train: %v", err)
	}

	// A second instance picks the persisted model up.
	v2, err := New(WithFeatureNames("response_time"), WithModelPath(path))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	results := v2.Detect([]Entry{
		{Raw: `{"response_time":100000}`, Service: "api", Format: FormatStructured},
	})
	if !results[0].IsAnomaly {
		t.Fatalf("persisted model should flag the outlier: %+v", results[0])
	}
}

func TestAnomaliesHistoryAndStats(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	v.Detect([]Entry{
		{Raw: `{"error_rate":0.5}`, Service: "checkout", Format: FormatStructured},
		{Raw: `{"error_rate":0.9}`, Service: "checkout", Format: FormatStructured},
	})

	anomalies := v.Anomalies(0)
	if len(anomalies) != 2 {
		t.Fatalf("expected 2 anomalies, got %d", len(anomalies))
	}
	if !anomalies[0].RuleViolation {
		t.Errorf("expected rule violations: %+v", anomalies[0])
	}

	st := v.Stat()
	if st.Total != 2 || st.AvgScore != 1.0 {
		t.Errorf("unexpected stats: %+v", st)
	}

	v.ClearHistory()
	if st := v.Stat(); st.Total != 0 {
		t.Errorf("history should be empty after clear, got %d", st.Total)
	}
}

func TestNewRejectsEmptyFeatureNames(t *testing.T) {
	if _, err := New(WithFeatureNames()); err == nil {
		t.Fatal("expected error for empty feature names")
	}
}
