package distance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDot(t *testing.T) {
	assert.InDelta(t, 32.0, Dot([]float32{1, 2, 3}, []float32{4, 5, 6}), 1e-9)
	assert.InDelta(t, 0.0, Dot([]float32{1, 0}, []float32{0, 1}), 1e-9)
}

func TestNorm(t *testing.T) {
	assert.InDelta(t, 5.0, Norm([]float32{3, 4}), 1e-9)
	assert.InDelta(t, 0.0, Norm([]float32{0, 0, 0}), 1e-9)
}

func TestCosine(t *testing.T) {
	t.Run("Identical", func(t *testing.T) {
		assert.InDelta(t, 0.0, Cosine([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-6)
	})

	t.Run("Orthogonal", func(t *testing.T) {
		assert.InDelta(t, 1.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-6)
	})

	t.Run("Opposite", func(t *testing.T) {
		assert.InDelta(t, 2.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	})

	t.Run("ScaleInvariant", func(t *testing.T) {
		a := []float32{0.2, 0.5, 0.9}
		b := []float32{2, 5, 9}
		assert.InDelta(t, 0.0, Cosine(a, b), 1e-6)
	})

	t.Run("ZeroVector", func(t *testing.T) {
		assert.InDelta(t, 1.0, Cosine([]float32{0, 0}, []float32{1, 2}), 1e-9)
	})
}
