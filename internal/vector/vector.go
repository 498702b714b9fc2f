// Package vector projects canonical records onto a fixed feature ordering.
// The ordering must match the one the outlier scorer was fitted with.
package vector

import "github.com/crimson-sun/vigil/internal/model"

// Matrix builds an NxF matrix where row i, column j is the value of feature
// names[j] in records[i]. Missing features default to zero; there is no
// error path.
func Matrix(records []model.Record, names []string) [][]float64 {
	matrix := make([][]float64, len(records))
	for i, rec := range records {
		row := make([]float64, len(names))
		for j, name := range names {
			row[j] = rec.Features[name] // zero value when absent
		}
		matrix[i] = row
	}
	return matrix
}
