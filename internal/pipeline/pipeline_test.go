package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/crimson-sun/vigil/internal/detect"
	"github.com/crimson-sun/vigil/internal/extract"
	"github.com/crimson-sun/vigil/internal/history"
	"github.com/crimson-sun/vigil/internal/model"
)

func newTestPipeline(t *testing.T) (*Pipeline, *history.Store) {
	t.Helper()
	cfg := detect.Config{
		DefaultRules: map[string]float64{"error_rate": 0.2},
		ServiceRules: map[string]map[string]float64{
			"web_server": {"response_time": 2000},
		},
		FeatureNames: []string{"response_time", "error_rate"},
		ScoreCutoff:  0.25,
	}
	eng := detect.New(cfg, nil)
	hist := history.New(10, filepath.Join(t.TempDir(), "anomalies.json.gz"))
	return New(extract.New(), eng, hist, nil), hist
}

func TestProcessFlagsRuleViolations(t *testing.T) {
	p, hist := newTestPipeline(t)

	results := p.Process([]model.RawEntry{
		{
			Raw:     `{"timestamp":"2025-06-01T10:00:00Z","level":"error","response_time":5000}`,
			Service: "web_server",
			Format:  model.FormatStructured,
		},
		{
			Raw:     `{"timestamp":"2025-06-01T10:00:01Z","level":"info","response_time":120}`,
			Service: "web_server",
			Format:  model.FormatStructured,
		},
	})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].IsAnomaly != 1 {
		t.Errorf("slow request should be flagged: %+v", results[0])
	}
	if results[0].Score != model.RuleViolationScore {
		t.Errorf("expected rule violation score %v, got %v", model.RuleViolationScore, results[0].Score)
	}
	if results[1].IsAnomaly != 0 || results[1].Score != 0 {
		t.Errorf("normal request should not be flagged: %+v", results[1])
	}
	if hist.Len() != 1 {
		t.Errorf("expected 1 anomaly persisted, got %d", hist.Len())
	}
}

func TestProcessDropsUnparseableEntries(t *testing.T) {
	p, _ := newTestPipeline(t)

	results := p.Process([]model.RawEntry{
		{Raw: "this is not json", Service: "web_server", Format: model.FormatStructured},
		{Raw: `{"level":"info","error_rate":0.01}`, Service: "web_server", Format: model.FormatStructured},
	})

	if len(results) != 1 {
		t.Fatalf("expected 1 result for the parseable entry, got %d", len(results))
	}
	if results[0].Raw != `{"level":"info","error_rate":0.01}` {
		t.Errorf("unexpected surviving entry: %q", results[0].Raw)
	}
}

func TestProcessCollapsesDuplicateRawText(t *testing.T) {
	p, _ := newTestPipeline(t)

	entry := model.RawEntry{
		Raw:     `{"level":"error","error_rate":0.9}`,
		Service: "database",
		Format:  model.FormatStructured,
	}
	results := p.Process([]model.RawEntry{entry, entry, entry})

	if len(results) != 1 {
		t.Fatalf("expected duplicates collapsed into 1 result, got %d", len(results))
	}
	if results[0].IsAnomaly != 1 {
		t.Errorf("error_rate 0.9 breaches the default rule: %+v", results[0])
	}
}

func TestProcessEmptyBatch(t *testing.T) {
	p, hist := newTestPipeline(t)
	if results := p.Process(nil); len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
	if hist.Len() != 0 {
		t.Errorf("expected empty history, got %d", hist.Len())
	}
}
