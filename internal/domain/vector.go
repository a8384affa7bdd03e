package domain

import (
	"fmt"
	"math"
)

// ValidateVector checks length and finiteness of v against the configured dimension.
func ValidateVector(v []float32, dim int) error {
	if len(v) != dim {
		return NewDimensionError(dim, len(v))
	}
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite component at %d", ErrInvalidVector, i)
		}
	}
	return nil
}

// NormalizeVector validates v and returns a unit-length copy.
func NormalizeVector(v []float32, dim int) ([]float32, error) {
	if err := ValidateVector(v, dim); err != nil {
		return nil, err
	}
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 || math.IsInf(norm, 0) {
		return nil, fmt.Errorf("%w: zero-length vector", ErrInvalidVector)
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}

// L2Distance returns the Euclidean distance between a and b.
// Vectors of different length are compared over their common prefix.
func L2Distance(a, b []float32) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := range n {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// ScoreFromL2 converts the L2 distance between two unit vectors into cosine similarity.
func ScoreFromL2(d float64) float64 {
	return 1 - d*d/2
}
