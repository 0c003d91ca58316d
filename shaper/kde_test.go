package shaper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortKDE(t *testing.T) {
	got := SortKDE(map[string]float64{"10": 0.1, "2.5": 0.3, "-1": 0.05, "nan?": 1})
	assert.Equal(t, []KDEPoint{
		{X: -1, Density: 0.05},
		{X: 2.5, Density: 0.3},
		{X: 10, Density: 0.1},
	}, got)
	assert.Empty(t, SortKDE(nil))
}

func TestKDEReference(t *testing.T) {
	mean, uniform, ok := KDEReference([]KDEPoint{{X: 0, Density: 1}, {X: 4, Density: 3}})
	assert.True(t, ok)
	assert.InDelta(t, 3.0, mean, 1e-9)
	assert.InDelta(t, 0.25, uniform, 1e-9)

	_, _, ok = KDEReference(nil)
	assert.False(t, ok)

	_, _, ok = KDEReference([]KDEPoint{{X: 2, Density: 1}, {X: 2, Density: 2}})
	assert.False(t, ok, "single distinct x")

	_, _, ok = KDEReference([]KDEPoint{{X: 0, Density: 0}, {X: 1, Density: 0}})
	assert.False(t, ok, "no mass")
}
