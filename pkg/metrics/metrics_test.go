package metrics

import (
	"math"
	"testing"

	"github.com/wiretidy/wiretidy/pkg/diagram"
	"github.com/wiretidy/wiretidy/pkg/geom"
)

func buildSub(t *testing.T, paths [][]geom.Point) *diagram.SubDiagram {
	t.Helper()
	s := diagram.New("metrics-test")
	src, err := s.AddBlock(diagram.Block{
		ID:      "src",
		Bounds:  geom.Rect{Left: 0, Top: 0, Right: 40, Bottom: 200},
		Outputs: []diagram.Port{{Ordinal: 1, Position: geom.Point{X: 40, Y: 20}, Direction: diagram.Out}},
	})
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	dst, err := s.AddBlock(diagram.Block{
		ID:     "dst",
		Bounds: geom.Rect{Left: 400, Top: 0, Right: 440, Bottom: 200},
		Inputs: []diagram.Port{{Ordinal: 1, Position: geom.Point{X: 400, Y: 20}, Direction: diagram.In}},
	})
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	for _, p := range paths {
		if _, err := s.AddWire(diagram.Wire{
			From: diagram.PortRef{Block: src, Ordinal: 1},
			To:   []diagram.PortRef{{Block: dst, Ordinal: 1}},
			Path: p,
		}); err != nil {
			t.Fatalf("AddWire: %v", err)
		}
	}
	return s
}

func TestCompute_EmptyWireSet(t *testing.T) {
	s := diagram.New("empty")
	m := Compute(s, 1.0)

	if m.Score != 0 {
		t.Errorf("Score = %v, want 0", m.Score)
	}
	if m.TotalWires != 0 || m.StraightRatio != 0 || m.AvgSegments != 0 || m.AvgLength != 0 {
		t.Errorf("empty sub-diagram should yield all-zero metrics, got %+v", m)
	}
}

func TestCompute_BlocksWithoutWires(t *testing.T) {
	// Blocks alone must not leak into any derived metric: zero wires
	// means all-zero, density included.
	s := diagram.New("blocks-only")
	if _, err := s.AddBlock(diagram.Block{
		ID:     "plant",
		Bounds: geom.Rect{Left: 0, Top: 0, Right: 60, Bottom: 60},
	}); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	m := Compute(s, 1.0)

	if m.Density != 0 {
		t.Errorf("Density = %v, want 0 for a wireless sub-diagram", m.Density)
	}
	if m != (Metrics{}) {
		t.Errorf("metrics = %+v, want zero value", m)
	}
}

func TestCompute_PerfectDiagram(t *testing.T) {
	// Two straight orthogonal wires with 1 and 2 segments.
	s := buildSub(t, [][]geom.Point{
		{{X: 40, Y: 20}, {X: 400, Y: 20}},
		{{X: 40, Y: 60}, {X: 400, Y: 60}, {X: 400, Y: 20}},
	})
	m := Compute(s, 1.0)

	if m.TotalWires != 2 || m.StraightWires != 2 {
		t.Fatalf("wires = (%d straight of %d), want (2 of 2)", m.StraightWires, m.TotalWires)
	}
	if m.StraightRatio != 100 {
		t.Errorf("StraightRatio = %v, want 100", m.StraightRatio)
	}
	if m.TotalSegments != 3 {
		t.Errorf("TotalSegments = %d, want 3", m.TotalSegments)
	}
	if m.ComplexWires != 0 {
		t.Errorf("ComplexWires = %d, want 0", m.ComplexWires)
	}
	// 0.4*100 + 0.3*(100-(1.5-2)*20) + 0.3*100 = 40 + 33 + 30 = 103 → clamped.
	if m.Score != 100 {
		t.Errorf("Score = %v, want 100 (clamped)", m.Score)
	}
}

func TestCompute_MixedQuality(t *testing.T) {
	s := buildSub(t, [][]geom.Point{
		{{X: 40, Y: 20}, {X: 400, Y: 20}}, // straight, 1 segment
		{{X: 40, Y: 60}, {X: 120, Y: 90}, {X: 200, Y: 40}, {X: 300, Y: 110}, {X: 400, Y: 20}}, // diagonal mess, 4 segments
	})
	m := Compute(s, 1.0)

	if m.StraightWires != 1 {
		t.Errorf("StraightWires = %d, want 1", m.StraightWires)
	}
	if m.ComplexWires != 1 {
		t.Errorf("ComplexWires = %d, want 1 (4 segments > 3)", m.ComplexWires)
	}
	if m.StraightRatio != 50 || m.ComplexRatio != 50 {
		t.Errorf("ratios = (%v, %v), want (50, 50)", m.StraightRatio, m.ComplexRatio)
	}
	if m.AvgSegments != 2.5 {
		t.Errorf("AvgSegments = %v, want 2.5", m.AvgSegments)
	}

	// 0.4*50 + 0.3*(100-0.5*20) + 0.3*50 = 20 + 27 + 15 = 62.
	if math.Abs(m.Score-62) > 1e-9 {
		t.Errorf("Score = %v, want 62", m.Score)
	}
}

func TestCompute_Density(t *testing.T) {
	s := buildSub(t, [][]geom.Point{{{X: 40, Y: 20}, {X: 400, Y: 20}}})
	m := Compute(s, 1.0)

	// Bounds span 440x200 = 88000 area with 2 blocks.
	want := 2.0 / 88000.0 * 10000.0
	if math.Abs(m.Density-want) > 1e-9 {
		t.Errorf("Density = %v, want %v", m.Density, want)
	}
}

func TestCompute_AvgLength(t *testing.T) {
	s := buildSub(t, [][]geom.Point{
		{{X: 40, Y: 20}, {X: 400, Y: 20}},                   // length 360
		{{X: 40, Y: 60}, {X: 40, Y: 160}, {X: 140, Y: 160}}, // length 200
	})
	m := Compute(s, 1.0)

	if math.Abs(m.TotalLength-560) > 1e-9 {
		t.Errorf("TotalLength = %v, want 560", m.TotalLength)
	}
	if math.Abs(m.AvgLength-280) > 1e-9 {
		t.Errorf("AvgLength = %v, want 280", m.AvgLength)
	}
}

func TestCompute_SkipsDegenerateWires(t *testing.T) {
	s := buildSub(t, [][]geom.Point{
		{{X: 40, Y: 20}, {X: 400, Y: 20}},
		{{X: 40, Y: 60}}, // single point: unsupported shape, ignored
	})
	m := Compute(s, 1.0)

	if m.TotalWires != 1 {
		t.Errorf("TotalWires = %d, want 1 (degenerate wire ignored)", m.TotalWires)
	}
}
