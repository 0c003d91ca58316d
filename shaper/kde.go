package shaper

import (
	"sort"
	"strconv"
	"strings"
)

// KDEPoint is one sample of the duration density curve
type KDEPoint struct {
	X       float64 `json:"x"`
	Density float64 `json:"density"`
}

// SortKDE parses the x keys and orders the points by ascending x.
func SortKDE(kde map[string]float64) []KDEPoint {
	out := make([]KDEPoint, 0, len(kde))
	for key, density := range kde {
		x, err := strconv.ParseFloat(strings.TrimSpace(key), 64)
		if err != nil {
			continue
		}
		out = append(out, KDEPoint{X: x, Density: density})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Density < out[j].Density
	})
	return out
}

// KDEReference computes the density-weighted mean x and the density a
// uniform distribution over the sampled x range would have.
// ok is false when the curve has fewer than two distinct x values or no mass.
func KDEReference(points []KDEPoint) (mean, uniform float64, ok bool) {
	if len(points) == 0 {
		return 0, 0, false
	}
	var weighted, total float64
	lo, hi := points[0].X, points[0].X
	for _, p := range points {
		weighted += p.X * p.Density
		total += p.Density
		if p.X < lo {
			lo = p.X
		}
		if p.X > hi {
			hi = p.X
		}
	}
	if hi == lo || total == 0 {
		return 0, 0, false
	}
	return weighted / total, 1 / (hi - lo), true
}
