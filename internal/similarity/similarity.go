// Package similarity provides pure vector distance and ranking utilities.
// It is used for diagnostics and for relevance scoring in store backends
// that do their own brute-force search.
package similarity

import (
	"errors"
	"math"
	"sort"
)

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Cosine returns the cosine similarity between a and b, in [-1, 1].
// If either vector has zero magnitude the similarity is defined as 0.0
// rather than an error, so callers can rank degenerate vectors last.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Euclidean returns the L2 distance between a and b.
func Euclidean(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// Manhattan returns the L1 distance between a and b.
func Manhattan(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}
	var sum float64
	for i := range a {
		sum += math.Abs(float64(a[i]) - float64(b[i]))
	}
	return sum, nil
}

// Dot returns the dot product of a and b.
func Dot(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum, nil
}

// Matrix computes the pairwise cosine similarity matrix for the given vectors.
// The diagonal is forced to 1.0 regardless of floating-point rounding.
func Matrix(vectors [][]float32) ([][]float64, error) {
	n := len(vectors)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		matrix[i][i] = 1.0
		for j := i + 1; j < n; j++ {
			sim, err := Cosine(vectors[i], vectors[j])
			if err != nil {
				return nil, err
			}
			matrix[i][j] = sim
			matrix[j][i] = sim
		}
	}
	return matrix, nil
}

// Match pairs a candidate index with its similarity score.
type Match struct {
	Index int
	Score float64
}

// MostSimilar ranks candidates by cosine similarity to query, descending.
// topK is clipped to the candidate count. Ties keep candidate order.
func MostSimilar(query []float32, candidates [][]float32, topK int) ([]Match, error) {
	matches := make([]Match, 0, len(candidates))
	for i, cand := range candidates {
		sim, err := Cosine(query, cand)
		if err != nil {
			return nil, err
		}
		matches = append(matches, Match{Index: i, Score: sim})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if topK < 0 {
		topK = 0
	}
	if topK > len(matches) {
		topK = len(matches)
	}
	return matches[:topK], nil
}
