package route

import (
	"fmt"
	"testing"

	"github.com/wiretidy/wiretidy/pkg/diagram"
	"github.com/wiretidy/wiretidy/pkg/geom"
)

// rowSub builds a source and a destination block with n matching ports
// at the given rows, ready for wires between them.
func rowSub(t *testing.T, id string, rows []float64) *diagram.SubDiagram {
	t.Helper()
	s := diagram.New(id)

	outs := make([]diagram.Port, len(rows))
	ins := make([]diagram.Port, len(rows))
	for i, y := range rows {
		outs[i] = diagram.Port{Ordinal: i + 1, Position: geom.Point{X: 40, Y: y}, Direction: diagram.Out}
		ins[i] = diagram.Port{Ordinal: i + 1, Position: geom.Point{X: 400, Y: y}, Direction: diagram.In}
	}
	if _, err := s.AddBlock(diagram.Block{
		ID:      "src",
		Bounds:  geom.Rect{Left: 0, Top: 0, Right: 40, Bottom: 300},
		Outputs: outs,
	}); err != nil {
		t.Fatalf("AddBlock(src): %v", err)
	}
	if _, err := s.AddBlock(diagram.Block{
		ID:     "dst",
		Bounds: geom.Rect{Left: 400, Top: 0, Right: 440, Bottom: 300},
		Inputs: ins,
	}); err != nil {
		t.Fatalf("AddBlock(dst): %v", err)
	}
	return s
}

func addWire(t *testing.T, s *diagram.SubDiagram, ordinal int, path []geom.Point) int {
	t.Helper()
	wi, err := s.AddWire(diagram.Wire{
		From: diagram.PortRef{Block: 0, Ordinal: ordinal},
		To:   []diagram.PortRef{{Block: 1, Ordinal: ordinal}},
		Path: path,
	})
	if err != nil {
		t.Fatalf("AddWire(ordinal %d): %v", ordinal, err)
	}
	return wi
}

func TestCountCrossings_BothCounters(t *testing.T) {
	s := rowSub(t, "counters", []float64{50, 150, 250, 290})

	// Wire 0 runs straight along y=50; wire 1 drops through it.
	addWire(t, s, 1, []geom.Point{{X: 40, Y: 50}, {X: 400, Y: 50}})
	addWire(t, s, 2, []geom.Point{{X: 40, Y: 150}, {X: 220, Y: 150}, {X: 220, Y: 20}, {X: 400, Y: 20}})
	// Wires 2 and 3: bounding boxes overlap but no segment touches.
	addWire(t, s, 3, []geom.Point{{X: 40, Y: 250}, {X: 400, Y: 250}})
	addWire(t, s, 4, []geom.Point{{X: 40, Y: 290}, {X: 420, Y: 290}, {X: 420, Y: 240}, {X: 400, Y: 240}})

	counts := CountCrossings(s, nil)
	if counts.Candidates != 2 {
		t.Errorf("Candidates = %d, want 2", counts.Candidates)
	}
	if counts.Exact != 1 {
		t.Errorf("Exact = %d, want 1", counts.Exact)
	}
}

func TestCountCrossings_Subset(t *testing.T) {
	s := rowSub(t, "subset", []float64{50, 150, 250})
	addWire(t, s, 1, []geom.Point{{X: 40, Y: 50}, {X: 400, Y: 50}})
	addWire(t, s, 2, []geom.Point{{X: 40, Y: 150}, {X: 220, Y: 150}, {X: 220, Y: 20}, {X: 400, Y: 20}})
	addWire(t, s, 3, []geom.Point{{X: 40, Y: 250}, {X: 260, Y: 250}, {X: 260, Y: 40}, {X: 400, Y: 40}})

	// Restricting to the non-crossing pair hides the intersections.
	if counts := CountCrossings(s, []int{1, 2}); counts.Exact != 0 {
		t.Errorf("Exact over subset {1,2} = %d, want 0", counts.Exact)
	}
	if counts := CountCrossings(s, nil); counts.Exact != 2 {
		t.Errorf("Exact over all = %d, want 2", counts.Exact)
	}
}

func TestFindCrossingPairs(t *testing.T) {
	s := rowSub(t, "pairs", []float64{50, 150})
	addWire(t, s, 1, []geom.Point{{X: 40, Y: 50}, {X: 400, Y: 50}})
	addWire(t, s, 2, []geom.Point{{X: 40, Y: 150}, {X: 220, Y: 150}, {X: 220, Y: 20}, {X: 400, Y: 20}})

	pairs := FindCrossingPairs(s, nil)
	if len(pairs) != 1 {
		t.Fatalf("len(pairs) = %d, want 1: %v", len(pairs), pairs)
	}
	if pairs[0] != (WirePair{A: 0, B: 1}) {
		t.Errorf("pairs[0] = %v, want {0 1}", pairs[0])
	}
}

func TestPathsCross_SharedAnchorIsNotACrossing(t *testing.T) {
	// Two wires fanning out of the same port touch at the source anchor
	// by construction.
	a := []geom.Point{{X: 40, Y: 150}, {X: 220, Y: 150}, {X: 220, Y: 50}, {X: 400, Y: 50}}
	b := []geom.Point{{X: 40, Y: 150}, {X: 220, Y: 150}}

	if pathsCross(a, b) {
		t.Error("shared anchor reported as a crossing")
	}
}

func TestResolveCrossings_RemovesDetourCrossing(t *testing.T) {
	s := rowSub(t, "detour", []float64{50, 100})

	// Wire 0 dips down through wire 1's row and back; nudging it up
	// clears both intersections.
	addWire(t, s, 1, []geom.Point{{X: 40, Y: 50}, {X: 180, Y: 50}, {X: 180, Y: 110}, {X: 260, Y: 110}, {X: 260, Y: 50}, {X: 400, Y: 50}})
	addWire(t, s, 2, []geom.Point{{X: 40, Y: 100}, {X: 400, Y: 100}})

	if got := CountCrossings(s, nil).Exact; got != 1 {
		t.Fatalf("Exact before = %d, want 1", got)
	}

	report := ResolveCrossings(s, nil, 1.0)
	if report.Found != 1 || report.Resolved != 1 {
		t.Fatalf("report = %+v, want Found=1 Resolved=1", report)
	}
	if report.AnchorViolations != 0 {
		t.Errorf("AnchorViolations = %d, want 0", report.AnchorViolations)
	}

	if pairs := FindCrossingPairs(s, nil); len(pairs) != 0 {
		t.Errorf("crossings remain after resolution: %v", pairs)
	}

	// Anchors must survive the perturbation.
	w0, _ := s.Wire(0)
	if w0.Path[0] != (geom.Point{X: 40, Y: 50}) || w0.Path[len(w0.Path)-1] != (geom.Point{X: 400, Y: 50}) {
		t.Errorf("wire 0 anchors moved: %v", w0.Path)
	}
}

func TestResolveCrossings_PairCap(t *testing.T) {
	s := diagram.New("cap")

	// Six horizontal wires, each crossed by two verticals: 12 exact
	// pairs, two beyond the per-pass cap.
	outs := make([]diagram.Port, 6)
	ins := make([]diagram.Port, 6)
	for i := 0; i < 6; i++ {
		y := float64(10 + i*10)
		outs[i] = diagram.Port{Ordinal: i + 1, Position: geom.Point{X: 40, Y: y}, Direction: diagram.Out}
		ins[i] = diagram.Port{Ordinal: i + 1, Position: geom.Point{X: 400, Y: y}, Direction: diagram.In}
	}
	if _, err := s.AddBlock(diagram.Block{
		ID: "left", Bounds: geom.Rect{Left: 0, Top: 0, Right: 40, Bottom: 100}, Outputs: outs,
	}); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if _, err := s.AddBlock(diagram.Block{
		ID: "right", Bounds: geom.Rect{Left: 400, Top: 0, Right: 440, Bottom: 100}, Inputs: ins,
	}); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if _, err := s.AddBlock(diagram.Block{
		ID: "top", Bounds: geom.Rect{Left: 180, Top: -100, Right: 280, Bottom: -60},
		Outputs: []diagram.Port{
			{Ordinal: 1, Position: geom.Point{X: 200, Y: -60}, Direction: diagram.Out},
			{Ordinal: 2, Position: geom.Point{X: 250, Y: -60}, Direction: diagram.Out},
		},
	}); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if _, err := s.AddBlock(diagram.Block{
		ID: "bottom", Bounds: geom.Rect{Left: 180, Top: 160, Right: 280, Bottom: 200},
		Inputs: []diagram.Port{
			{Ordinal: 1, Position: geom.Point{X: 200, Y: 160}, Direction: diagram.In},
			{Ordinal: 2, Position: geom.Point{X: 250, Y: 160}, Direction: diagram.In},
		},
	}); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}

	for i := 0; i < 6; i++ {
		y := float64(10 + i*10)
		if _, err := s.AddWire(diagram.Wire{
			From: diagram.PortRef{Block: 0, Ordinal: i + 1},
			To:   []diagram.PortRef{{Block: 1, Ordinal: i + 1}},
			Path: []geom.Point{{X: 40, Y: y}, {X: 400, Y: y}},
		}); err != nil {
			t.Fatalf("AddWire(row %d): %v", i, err)
		}
	}
	for i, x := range []float64{200, 250} {
		if _, err := s.AddWire(diagram.Wire{
			From: diagram.PortRef{Block: 2, Ordinal: i + 1},
			To:   []diagram.PortRef{{Block: 3, Ordinal: i + 1}},
			Path: []geom.Point{{X: x, Y: -60}, {X: x, Y: 160}},
		}); err != nil {
			t.Fatalf("AddWire(column %d): %v", i, err)
		}
	}

	if got := CountCrossings(s, nil).Exact; got != 12 {
		t.Fatalf("Exact = %d, want 12", got)
	}

	report := ResolveCrossings(s, nil, 1.0)
	if report.Found != 12 {
		t.Errorf("Found = %d, want 12", report.Found)
	}
	if report.Deferred != 2 {
		t.Errorf("Deferred = %d, want 2", report.Deferred)
	}
	if report.Resolved != MaxPairsPerPass {
		t.Errorf("Resolved = %d, want %d", report.Resolved, MaxPairsPerPass)
	}
}

func TestRerouteAll(t *testing.T) {
	s := rowSub(t, "reroute", []float64{50, 150})
	addWire(t, s, 1, []geom.Point{{X: 40, Y: 50}, {X: 120, Y: 90}, {X: 200, Y: 30}, {X: 310, Y: 75}, {X: 400, Y: 50}})
	addWire(t, s, 2, []geom.Point{{X: 40, Y: 150}, {X: 180, Y: 150}, {X: 180, Y: 220}, {X: 320, Y: 220}, {X: 320, Y: 150}, {X: 400, Y: 150}})

	if got := RerouteAll(s, 1.0); got != 2 {
		t.Fatalf("RerouteAll = %d, want 2", got)
	}

	for wi := 0; wi < s.WireCount(); wi++ {
		w, _ := s.Wire(wi)
		if len(w.Path) > 4 {
			t.Errorf("wire %d: %d points after reroute, want <= 4", wi, len(w.Path))
		}
		for i := 1; i < len(w.Path); i++ {
			if !geom.AxisAligned(w.Path[i-1], w.Path[i], 1.0) {
				t.Errorf("wire %d: segment %d not axis-aligned: %v", wi, i, w.Path)
			}
		}
	}

	// Anchors stay on the ports.
	for wi, wantY := range []float64{50, 150} {
		w, _ := s.Wire(wi)
		got := fmt.Sprintf("%v %v", w.Path[0], w.Path[len(w.Path)-1])
		want := fmt.Sprintf("%v %v", geom.Point{X: 40, Y: wantY}, geom.Point{X: 400, Y: wantY})
		if got != want {
			t.Errorf("wire %d anchors = %s, want %s", wi, got, want)
		}
	}
}
