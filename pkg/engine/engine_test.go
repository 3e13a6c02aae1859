package engine

import (
	"testing"

	"github.com/wiretidy/wiretidy/pkg/diagram"
	"github.com/wiretidy/wiretidy/pkg/geom"
	"github.com/wiretidy/wiretidy/pkg/route"
)

// messyPair builds two blocks joined by one hand-drawn wire that wanders
// off the straight line between its anchors.
func messyPair(t *testing.T, id string) *diagram.SubDiagram {
	t.Helper()
	s := diagram.New(id)
	if _, err := s.AddBlock(diagram.Block{
		ID:      "src",
		Bounds:  geom.Rect{Left: 0, Top: 0, Right: 40, Bottom: 40},
		Outputs: []diagram.Port{{Ordinal: 1, Position: geom.Point{X: 40, Y: 20}, Direction: diagram.Out}},
	}); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if _, err := s.AddBlock(diagram.Block{
		ID:     "dst",
		Bounds: geom.Rect{Left: 400, Top: 0, Right: 440, Bottom: 40},
		Inputs: []diagram.Port{{Ordinal: 1, Position: geom.Point{X: 400, Y: 20}, Direction: diagram.In}},
	}); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if _, err := s.AddWire(diagram.Wire{
		From: diagram.PortRef{Block: 0, Ordinal: 1},
		To:   []diagram.PortRef{{Block: 1, Ordinal: 1}},
		Path: []geom.Point{{X: 40, Y: 20}, {X: 120, Y: 80}, {X: 200, Y: 10}, {X: 310, Y: 65}, {X: 400, Y: 20}},
	}); err != nil {
		t.Fatalf("AddWire: %v", err)
	}
	return s
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	if !p.PreserveExistingWires {
		t.Error("PreserveExistingWires should default to true")
	}
	if p.Tolerance <= 0 || p.MaxIterations <= 0 {
		t.Errorf("defaults must be usable as-is: %+v", p)
	}
}

func TestParams_Normalize(t *testing.T) {
	p := Params{}.Normalize()
	if p.Tolerance != 1.0 {
		t.Errorf("Tolerance = %v, want 1.0", p.Tolerance)
	}
	if p.MaxIterations != 1 {
		t.Errorf("MaxIterations = %d, want 1", p.MaxIterations)
	}
}

func TestOptimize_CanonicalizesLoneWire(t *testing.T) {
	s := messyPair(t, "lone")
	report := New(nil).Optimize(s, DefaultParams())

	if report.BundleGroups != 0 {
		t.Errorf("BundleGroups = %d, want 0", report.BundleGroups)
	}
	if report.Canonicalized != 1 {
		t.Errorf("Canonicalized = %d, want 1", report.Canonicalized)
	}
	if report.Rerouted != 0 {
		t.Errorf("Rerouted = %d, want 0 in preserve mode", report.Rerouted)
	}

	// Anchors share a row, so the wander collapses to a straight run.
	w, _ := s.Wire(0)
	want := []geom.Point{{X: 40, Y: 20}, {X: 400, Y: 20}}
	if len(w.Path) != 2 || w.Path[0] != want[0] || w.Path[1] != want[1] {
		t.Errorf("path = %v, want %v", w.Path, want)
	}
}

func TestOptimize_RerouteModeCountsSeparately(t *testing.T) {
	s := messyPair(t, "reroute-mode")
	params := DefaultParams()
	params.PreserveExistingWires = false

	report := New(nil).Optimize(s, params)
	if report.Rerouted != 1 {
		t.Errorf("Rerouted = %d, want 1", report.Rerouted)
	}
	if report.Canonicalized != 0 {
		t.Errorf("Canonicalized = %d, want 0 when preserve is off", report.Canonicalized)
	}
}

func TestOptimize_BundledWiresSkipCanonicalization(t *testing.T) {
	s := diagram.New("bundled")

	rows := []float64{50, 150, 250}
	ins := make([]diagram.Port, len(rows))
	for i, y := range rows {
		ins[i] = diagram.Port{Ordinal: i + 1, Position: geom.Point{X: 400, Y: y}, Direction: diagram.In}
	}
	if _, err := s.AddBlock(diagram.Block{
		ID:     "sink",
		Bounds: geom.Rect{Left: 400, Top: 0, Right: 460, Bottom: 300},
		Inputs: ins,
	}); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	for i, y := range rows {
		bi, err := s.AddBlock(diagram.Block{
			ID:      "src" + string(rune('a'+i)),
			Bounds:  geom.Rect{Left: 0, Top: y - 20, Right: 40, Bottom: y + 20},
			Outputs: []diagram.Port{{Ordinal: 1, Position: geom.Point{X: 40, Y: y}, Direction: diagram.Out}},
		})
		if err != nil {
			t.Fatalf("AddBlock: %v", err)
		}
		if _, err := s.AddWire(diagram.Wire{
			From: diagram.PortRef{Block: bi, Ordinal: 1},
			To:   []diagram.PortRef{{Block: 0, Ordinal: i + 1}},
			Path: []geom.Point{{X: 40, Y: y}, {X: 400, Y: y}},
		}); err != nil {
			t.Fatalf("AddWire: %v", err)
		}
	}

	report := New(nil).Optimize(s, DefaultParams())
	if report.BundleGroups != 1 || report.BundledWires != 3 {
		t.Fatalf("bundle = (%d groups, %d wires), want (1, 3)", report.BundleGroups, report.BundledWires)
	}
	if report.Canonicalized != 0 {
		t.Errorf("Canonicalized = %d, want 0 (all wires bundled)", report.Canonicalized)
	}

	// The trunk route must survive: elbow capping would have collapsed
	// the six-point approach back to a plain Z.
	for wi := range rows {
		w, _ := s.Wire(wi)
		if len(w.Path) != 6 {
			t.Errorf("wire %d path has %d points, want bundled 6: %v", wi, len(w.Path), w.Path)
		}
	}

	if report.AnchorWarnings != 0 {
		t.Errorf("AnchorWarnings = %d, want 0", report.AnchorWarnings)
	}
}

func TestOptimize_NeverMovesBlocksOrAnchors(t *testing.T) {
	s := messyPair(t, "frozen")
	before, _ := s.Block(0)
	beforeBounds := before.Bounds
	w, _ := s.Wire(0)
	first, last := w.Path[0], w.Path[len(w.Path)-1]

	New(nil).Optimize(s, DefaultParams())

	after, _ := s.Block(0)
	if after.Bounds != beforeBounds {
		t.Errorf("block bounds changed: %+v -> %+v", beforeBounds, after.Bounds)
	}
	w, _ = s.Wire(0)
	if w.Path[0] != first || w.Path[len(w.Path)-1] != last {
		t.Errorf("wire anchors changed: %v", w.Path)
	}
}

func TestOptimize_ReportsBeforeAndAfterMetrics(t *testing.T) {
	s := messyPair(t, "metrics")
	report := New(nil).Optimize(s, DefaultParams())

	if report.Before.TotalWires != 1 || report.After.TotalWires != 1 {
		t.Fatalf("metrics wire counts = (%d, %d), want (1, 1)",
			report.Before.TotalWires, report.After.TotalWires)
	}
	// The wander is not straight; the tidied run is.
	if report.Before.StraightWires != 0 {
		t.Errorf("Before.StraightWires = %d, want 0", report.Before.StraightWires)
	}
	if report.After.StraightWires != 1 {
		t.Errorf("After.StraightWires = %d, want 1", report.After.StraightWires)
	}
	if report.Improvement() <= 0 {
		t.Errorf("Improvement = %v, want > 0", report.Improvement())
	}
}

func TestOptimize_BeforeMetricsUseCallTolerance(t *testing.T) {
	// A wire with a 3-unit rise between its anchors is straight under a
	// tolerance of 5 but not under the analyzer's default of 1. The
	// report's Before metrics must be measured with the call's tolerance,
	// or Improvement compares apples to oranges.
	s := diagram.New("tolerant")
	if _, err := s.AddBlock(diagram.Block{
		ID:      "src",
		Bounds:  geom.Rect{Left: 0, Top: 0, Right: 40, Bottom: 40},
		Outputs: []diagram.Port{{Ordinal: 1, Position: geom.Point{X: 40, Y: 20}, Direction: diagram.Out}},
	}); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if _, err := s.AddBlock(diagram.Block{
		ID:     "dst",
		Bounds: geom.Rect{Left: 400, Top: 0, Right: 440, Bottom: 40},
		Inputs: []diagram.Port{{Ordinal: 1, Position: geom.Point{X: 400, Y: 23}, Direction: diagram.In}},
	}); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if _, err := s.AddWire(diagram.Wire{
		From: diagram.PortRef{Block: 0, Ordinal: 1},
		To:   []diagram.PortRef{{Block: 1, Ordinal: 1}},
		Path: []geom.Point{{X: 40, Y: 20}, {X: 400, Y: 23}},
	}); err != nil {
		t.Fatalf("AddWire: %v", err)
	}

	params := DefaultParams()
	params.Tolerance = 5

	report := New(nil).Optimize(s, params)
	if report.Before.StraightWires != 1 {
		t.Errorf("Before.StraightWires = %d, want 1 at tolerance 5", report.Before.StraightWires)
	}
	if report.Before.StraightRatio != 100 {
		t.Errorf("Before.StraightRatio = %v, want 100", report.Before.StraightRatio)
	}
}

func TestOptimize_CrossingCleanup(t *testing.T) {
	// A horizontal and a vertical wire between four distinct blocks form
	// a topological crossing: canonicalization leaves both straight runs
	// alone, so the cleanup loop is the pass that sees it. Nudging cannot
	// undo the topology, so the loop must terminate at the iteration
	// bound with the work honestly reported.
	s := diagram.New("cleanup")

	blocks := []diagram.Block{
		{
			ID: "left", Bounds: geom.Rect{Left: 0, Top: 80, Right: 40, Bottom: 120},
			Outputs: []diagram.Port{{Ordinal: 1, Position: geom.Point{X: 40, Y: 100}, Direction: diagram.Out}},
		},
		{
			ID: "right", Bounds: geom.Rect{Left: 400, Top: 80, Right: 440, Bottom: 120},
			Inputs: []diagram.Port{{Ordinal: 1, Position: geom.Point{X: 400, Y: 100}, Direction: diagram.In}},
		},
		{
			ID: "top", Bounds: geom.Rect{Left: 200, Top: -100, Right: 240, Bottom: -60},
			Outputs: []diagram.Port{{Ordinal: 1, Position: geom.Point{X: 220, Y: -60}, Direction: diagram.Out}},
		},
		{
			ID: "bottom", Bounds: geom.Rect{Left: 200, Top: 260, Right: 240, Bottom: 300},
			Inputs: []diagram.Port{{Ordinal: 1, Position: geom.Point{X: 220, Y: 260}, Direction: diagram.In}},
		},
	}
	for i, b := range blocks {
		if _, err := s.AddBlock(b); err != nil {
			t.Fatalf("AddBlock(%d): %v", i, err)
		}
	}
	if _, err := s.AddWire(diagram.Wire{
		From: diagram.PortRef{Block: 0, Ordinal: 1},
		To:   []diagram.PortRef{{Block: 1, Ordinal: 1}},
		Path: []geom.Point{{X: 40, Y: 100}, {X: 400, Y: 100}},
	}); err != nil {
		t.Fatalf("AddWire: %v", err)
	}
	if _, err := s.AddWire(diagram.Wire{
		From: diagram.PortRef{Block: 2, Ordinal: 1},
		To:   []diagram.PortRef{{Block: 3, Ordinal: 1}},
		Path: []geom.Point{{X: 220, Y: -60}, {X: 220, Y: 260}},
	}); err != nil {
		t.Fatalf("AddWire: %v", err)
	}

	report := New(nil).Optimize(s, DefaultParams())
	if report.CrossingsFound == 0 {
		t.Fatal("CrossingsFound = 0, want the crossing detected by the cleanup loop")
	}
	if report.CrossingsResolved == 0 {
		t.Errorf("CrossingsResolved = 0, want > 0 (nudges were applied)")
	}
	if report.AnchorWarnings != 0 {
		t.Errorf("AnchorWarnings = %d, want 0", report.AnchorWarnings)
	}

	// Topological crossings are not removable by perturbation; at most
	// the one crossing remains and anchors stay put.
	if got := route.CountCrossings(s, nil).Exact; got > 1 {
		t.Errorf("Exact crossings after optimize = %d, want at most 1", got)
	}
	for wi := 0; wi < s.WireCount(); wi++ {
		w, _ := s.Wire(wi)
		if len(w.Path) < 2 {
			t.Fatalf("wire %d degenerate after optimize", wi)
		}
	}
}
