// Package metrics derives the quantitative quality model for a routed
// sub-diagram: per-wire-set aggregates, derived ratios, and the weighted
// 0–100 score that the optimization pipeline reports and regression
// tests pin down.
//
// Metrics carry no identity of their own: they are recomputed on demand
// from the current block and wire state and are valid only until the
// next routing pass mutates a path.
package metrics

import (
	"math"

	"github.com/wiretidy/wiretidy/pkg/diagram"
	"github.com/wiretidy/wiretidy/pkg/geom"
	"github.com/wiretidy/wiretidy/pkg/route"
)

// complexSegmentLimit is the segment count above which a wire counts as
// complex. A clean orthogonal route needs at most three segments, so
// anything longer signals leftover hand-routing or a failed reduction.
const complexSegmentLimit = 3

// densityScale normalizes block density to a readable magnitude
// (blocks per 10,000 square units).
const densityScale = 10000.0

// Score weights. Straightness dominates; the other two terms penalize
// fragmented and overly complex routing equally.
const (
	weightStraight = 0.4
	weightSegments = 0.3
	weightComplex  = 0.3
)

// Metrics is the scalar quality bundle for one sub-diagram.
type Metrics struct {
	TotalWires    int     `json:"total_wires" bson:"total_wires"`
	StraightWires int     `json:"straight_wires" bson:"straight_wires"`
	TotalSegments int     `json:"total_segments" bson:"total_segments"`
	TotalLength   float64 `json:"total_length" bson:"total_length"`
	ComplexWires  int     `json:"complex_wires" bson:"complex_wires"`

	StraightRatio float64 `json:"straight_ratio" bson:"straight_ratio"` // % of wires fully axis-aligned
	AvgSegments   float64 `json:"avg_segments" bson:"avg_segments"`
	AvgLength     float64 `json:"avg_length" bson:"avg_length"`
	ComplexRatio  float64 `json:"complex_ratio" bson:"complex_ratio"` // % of wires with >3 segments
	Density       float64 `json:"density" bson:"density"`             // blocks per 10k square units

	Crossings route.CrossingCounts `json:"crossings" bson:"crossings"`

	Score float64 `json:"score" bson:"score"` // weighted 0–100 quality score
}

// Compute derives all metrics from the sub-diagram's current state.
// A sub-diagram with no wires yields all-zero metrics and score 0; that
// is a valid result, not an error.
func Compute(sub *diagram.SubDiagram, tol float64) Metrics {
	var m Metrics

	for wi := 0; wi < sub.WireCount(); wi++ {
		w, _ := sub.Wire(wi)
		if len(w.Path) < 2 {
			continue
		}
		m.TotalWires++
		segments := w.Segments()
		m.TotalSegments += segments
		m.TotalLength += geom.PathLength(w.Path)
		if route.IsStraight(w.Path, tol) {
			m.StraightWires++
		}
		if segments > complexSegmentLimit {
			m.ComplexWires++
		}
	}

	// The zero-wire guard covers every derived metric, density included:
	// a wireless sub-diagram scores zero across the board.
	if m.TotalWires == 0 {
		return m
	}

	if area := sub.Bounds().Area(); area > 0 {
		m.Density = float64(sub.BlockCount()) / area * densityScale
	}

	n := float64(m.TotalWires)
	m.StraightRatio = float64(m.StraightWires) / n * 100
	m.AvgSegments = float64(m.TotalSegments) / n
	m.AvgLength = m.TotalLength / n
	m.ComplexRatio = float64(m.ComplexWires) / n * 100

	m.Crossings = route.CountCrossings(sub, nil)

	m.Score = score(m.StraightRatio, m.AvgSegments, m.ComplexRatio)
	return m
}

// score combines the derived ratios into the weighted 0–100 quality
// score. Two average segments per wire is treated as the ideal; each
// additional average segment costs 20 points on that term.
func score(straightRatio, avgSegments, complexRatio float64) float64 {
	s := weightStraight*math.Min(straightRatio, 100) +
		weightSegments*math.Max(0, 100-(avgSegments-2)*20) +
		weightComplex*math.Max(0, 100-complexRatio)
	return math.Min(math.Max(s, 0), 100)
}
