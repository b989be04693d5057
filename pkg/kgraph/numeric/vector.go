// Package numeric provides the vector math behind the recommendation
// strategies: cosine similarity, pairwise distance matrices, centroids, and
// average-linkage clustering of a precomputed distance matrix.
package numeric

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// normEpsilon guards unit normalization against zero vectors.
const normEpsilon = 1e-8

// ToFloat64 converts a float32 vector to float64.
func ToFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// ToFloat32 converts a float64 vector to float32.
func ToFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// UnitNorm returns v scaled to unit length. The divisor is clamped so a zero
// vector maps to zero rather than NaN.
func UnitNorm(v []float64) []float64 {
	norm := floats.Norm(v, 2)
	if norm < normEpsilon {
		norm = normEpsilon
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// CosineSimilarity computes the cosine similarity of two vectors, clamping
// zero norms.
func CosineSimilarity(a, b []float64) float64 {
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA < normEpsilon {
		normA = normEpsilon
	}
	if normB < normEpsilon {
		normB = normEpsilon
	}
	return floats.Dot(a, b) / (normA * normB)
}

// Prefix truncates each row to its leading dims dimensions. When dims is
// non-positive or at least the row length, rows are returned unchanged.
func Prefix(rows [][]float64, dims int) [][]float64 {
	if dims <= 0 {
		return rows
	}
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if dims < len(row) {
			out[i] = row[:dims]
		} else {
			out[i] = row
		}
	}
	return out
}

// CosineDistanceMatrix computes the pairwise cosine-distance matrix
// (1 − similarity) over the given row vectors.
func CosineDistanceMatrix(rows [][]float64) *mat.Dense {
	n := len(rows)
	dist := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := 1 - CosineSimilarity(rows[i], rows[j])
			dist.Set(i, j, d)
			dist.Set(j, i, d)
		}
	}
	return dist
}

// Centroid computes the element-wise mean of the given vectors. All vectors
// must share one dimension; the result is nil for an empty input.
func Centroid(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	out := make([]float64, len(rows[0]))
	for _, row := range rows {
		floats.Add(out, row)
	}
	floats.Scale(1/float64(len(rows)), out)
	return out
}
