// Package distance provides vector distance primitives.
//
// The index holds at most a few hundred records, so all functions use plain
// scalar loops with float64 accumulation for numerical stability.
package distance

import "math"

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Norm calculates the L2 norm of a vector.
func Norm(a []float32) float64 {
	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Cosine calculates the cosine distance 1 - dot(a,b)/(‖a‖·‖b‖).
// Lower means more similar; identical directions yield 0.
// If either vector has zero norm the distance is 1 (no similarity signal).
func Cosine(a, b []float32) float64 {
	na := Norm(a)
	nb := Norm(b)
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - Dot(a, b)/(na*nb)
}
