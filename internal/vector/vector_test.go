package vector

import (
	"testing"

	"github.com/crimson-sun/vigil/internal/model"
)

func rec(features map[string]float64) model.Record {
	return model.Record{Features: features}
}

func TestMatrixOrderAndDefaults(t *testing.T) {
	records := []model.Record{
		rec(map[string]float64{"resp_time": 150, "bytes_out": 1024, "error_rate": 0.02}),
		rec(map[string]float64{"resp_time": 200}),
		rec(map[string]float64{"unrelated": 9}),
	}
	names := []string{"resp_time", "bytes_out", "error_rate"}

	m := Matrix(records, names)
	if len(m) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(m))
	}

	want := [][]float64{
		{150, 1024, 0.02},
		{200, 0, 0},
		{0, 0, 0},
	}
	for i := range want {
		for j := range want[i] {
			if m[i][j] != want[i][j] {
				t.Fatalf("m[%d][%d] = %v, want %v", i, j, m[i][j], want[i][j])
			}
		}
	}
}

func TestMatrixEmpty(t *testing.T) {
	m := Matrix(nil, []string{"a", "b"})
	if len(m) != 0 {
		t.Fatalf("expected empty matrix, got %d rows", len(m))
	}
}
