package route

import (
	"math"

	"github.com/wiretidy/wiretidy/pkg/diagram"
	"github.com/wiretidy/wiretidy/pkg/geom"
)

// MaxPairsPerPass caps how many crossing pairs one resolution pass will
// touch. The cap keeps pass cost predictable on pathological diagrams;
// pairs beyond it are deferred to the next pass, never dropped.
const MaxPairsPerPass = 10

// Nudge distances for crossing resolution, in diagram units.
const (
	nudgeSame  = 25.0 // both wires share an orientation: push apart symmetrically
	nudgeMixed = 20.0 // mixed orientation: smaller, one-sided adjustments
)

// CrossingCounts carries the two crossing metrics side by side.
//
// Candidates counts wire pairs whose bounding boxes overlap — a cheap
// pessimistic signal. Exact counts pairs with a true segment
// intersection. Resolution under a tight budget may act on candidates
// only, so callers get both numbers rather than a single collapsed one.
type CrossingCounts struct {
	Candidates int `json:"candidates" bson:"candidates"`
	Exact      int `json:"exact" bson:"exact"`
}

// WirePair is an unordered pair of wire indices, A < B.
type WirePair struct {
	A, B int
}

// ResolveReport summarizes one crossing-resolution pass.
type ResolveReport struct {
	// Found is the number of exactly-crossing pairs detected.
	Found int
	// Resolved is the number of pairs this pass perturbed.
	Resolved int
	// Deferred is the backlog beyond the per-pass cap, left for the next
	// pass.
	Deferred int
	// AnchorViolations counts perturbations rejected because they would
	// have moved an anchor. Always zero unless a pass has a defect.
	AnchorViolations int
}

// CountCrossings computes both crossing metrics over the wire subset.
// A nil subset means all wires. Wires with fewer than two points are
// ignored.
func CountCrossings(sub *diagram.SubDiagram, wires []int) CrossingCounts {
	idx := wireSubset(sub, wires)
	var counts CrossingCounts
	for i := 0; i < len(idx); i++ {
		for j := i + 1; j < len(idx); j++ {
			wa, _ := sub.Wire(idx[i])
			wb, _ := sub.Wire(idx[j])
			if len(wa.Path) < 2 || len(wb.Path) < 2 {
				continue
			}
			if !geom.PathBounds(wa.Path).Overlaps(geom.PathBounds(wb.Path)) {
				continue
			}
			counts.Candidates++
			if pathsCross(wa.Path, wb.Path) {
				counts.Exact++
			}
		}
	}
	return counts
}

// FindCrossingPairs returns the exactly-crossing wire pairs within the
// subset (nil = all wires), in ascending index order. The broad-phase
// bounding-box filter rejects most pairs before any segment test runs.
func FindCrossingPairs(sub *diagram.SubDiagram, wires []int) []WirePair {
	idx := wireSubset(sub, wires)
	var pairs []WirePair
	for i := 0; i < len(idx); i++ {
		for j := i + 1; j < len(idx); j++ {
			wa, _ := sub.Wire(idx[i])
			wb, _ := sub.Wire(idx[j])
			if len(wa.Path) < 2 || len(wb.Path) < 2 {
				continue
			}
			if !geom.PathBounds(wa.Path).Overlaps(geom.PathBounds(wb.Path)) {
				continue
			}
			if pathsCross(wa.Path, wb.Path) {
				pairs = append(pairs, WirePair{A: idx[i], B: idx[j]})
			}
		}
	}
	return pairs
}

// pathsCross runs the exact per-segment intersection test across two
// polylines, short-circuiting on the first hit. Segment pairs that share
// an endpoint are skipped: wires fanning out of one port touch at the
// source anchor by construction, and that contact is not a crossing.
func pathsCross(a, b []geom.Point) bool {
	for i := 1; i < len(a); i++ {
		for j := 1; j < len(b); j++ {
			if sharesEndpoint(a[i-1], a[i], b[j-1], b[j]) {
				continue
			}
			if geom.SegmentsIntersect(a[i-1], a[i], b[j-1], b[j]) {
				return true
			}
		}
	}
	return false
}

func sharesEndpoint(a1, a2, b1, b2 geom.Point) bool {
	const eps = 1e-9
	near := func(p, q geom.Point) bool {
		return math.Abs(p.X-q.X) < eps && math.Abs(p.Y-q.Y) < eps
	}
	return near(a1, b1) || near(a1, b2) || near(a2, b1) || near(a2, b2)
}

// ResolveCrossings detects crossing pairs within the subset (nil = all)
// and perturbs interior points to pull them apart, processing at most
// [MaxPairsPerPass] pairs. Each perturbed wire is re-canonicalized.
//
// For each pair, both wires are classified as horizontal- or
// vertical-dominant by their anchor deltas. Same-orientation pairs are
// pushed apart symmetrically on the cross axis; mixed pairs get the
// horizontal wire nudged vertically and the vertical wire horizontally.
// Ties are broken by source-port ordinal: the lower ordinal moves up
// (or left).
func ResolveCrossings(sub *diagram.SubDiagram, wires []int, tol float64) ResolveReport {
	pairs := FindCrossingPairs(sub, wires)
	report := ResolveReport{Found: len(pairs)}

	limit := len(pairs)
	if limit > MaxPairsPerPass {
		report.Deferred = limit - MaxPairsPerPass
		limit = MaxPairsPerPass
	}

	for _, pair := range pairs[:limit] {
		wa, _ := sub.Wire(pair.A)
		wb, _ := sub.Wire(pair.B)

		aHoriz := horizontalDominant(wa.Path)
		bHoriz := horizontalDominant(wb.Path)
		aFirst := wa.From.Ordinal <= wb.From.Ordinal

		var dxA, dyA, dxB, dyB float64
		switch {
		case aHoriz && bHoriz:
			// Both horizontal: one up, one down.
			if aFirst {
				dyA, dyB = -nudgeSame, nudgeSame
			} else {
				dyA, dyB = nudgeSame, -nudgeSame
			}
		case !aHoriz && !bHoriz:
			// Both vertical: one left, one right.
			if aFirst {
				dxA, dxB = -nudgeSame, nudgeSame
			} else {
				dxA, dxB = nudgeSame, -nudgeSame
			}
		case aHoriz:
			dyA, dxB = -nudgeMixed, nudgeMixed
		default:
			dxA, dyB = nudgeMixed, -nudgeMixed
		}

		okA := nudgeWire(sub, pair.A, dxA, dyA, tol)
		okB := nudgeWire(sub, pair.B, dxB, dyB, tol)
		if !okA || !okB {
			report.AnchorViolations++
			continue
		}
		report.Resolved++
	}
	return report
}

// RerouteAll discards every wire's interior structure and installs a
// fresh minimal-elbow path between its anchors. This is the fallback
// used when the preserve-existing-wires policy is off: cheaper and more
// predictable than per-pair nudging, at the cost of losing any hand
// routing. Returns the number of wires rerouted.
func RerouteAll(sub *diagram.SubDiagram, tol float64) int {
	rerouted := 0
	for wi := 0; wi < sub.WireCount(); wi++ {
		w, _ := sub.Wire(wi)
		if len(w.Path) < 2 {
			continue
		}
		fresh := Canonicalize(Straighten(w.Path, Auto, tol), tol)
		if err := sub.SetPath(wi, fresh); err == nil {
			rerouted++
		}
	}
	return rerouted
}

// horizontalDominant classifies a wire by its anchor deltas.
func horizontalDominant(path []geom.Point) bool {
	if len(path) < 2 {
		return true
	}
	first, last := path[0], path[len(path)-1]
	return math.Abs(last.X-first.X) >= math.Abs(last.Y-first.Y)
}

// nudgeWire offsets the wire's interior points by (dx, dy) and
// re-canonicalizes. A two-point path has no interior to move, so a
// perturbable Z-detour is synthesized first. Returns false if the
// replacement was rejected by the anchor check.
func nudgeWire(sub *diagram.SubDiagram, wi int, dx, dy, tol float64) bool {
	if dx == 0 && dy == 0 {
		return true
	}
	w, _ := sub.Wire(wi)
	path := w.Path
	if len(path) == 2 {
		path = subdivide(path)
	}
	moved := make([]geom.Point, len(path))
	copy(moved, path)
	for i := 1; i < len(moved)-1; i++ {
		moved[i].X += dx
		moved[i].Y += dy
	}
	// Orthogonalize without the degenerate-collapse step: a full
	// Canonicalize would flatten the detour straight back out whenever
	// the anchors share a row or column.
	moved = dropCollinear(splitDiagonals(moved, tol), tol)
	return sub.SetPath(wi, moved) == nil
}

// subdivide inserts interior points at one and two thirds of a straight
// segment so a subsequent nudge has something to move.
func subdivide(path []geom.Point) []geom.Point {
	a, b := path[0], path[1]
	third := geom.Point{X: a.X + (b.X-a.X)/3, Y: a.Y + (b.Y-a.Y)/3}
	twoThird := geom.Point{X: a.X + 2*(b.X-a.X)/3, Y: a.Y + 2*(b.Y-a.Y)/3}
	return []geom.Point{a, third, twoThird, b}
}

// wireSubset normalizes a subset selector: nil means every wire index.
func wireSubset(sub *diagram.SubDiagram, wires []int) []int {
	if wires != nil {
		return wires
	}
	all := make([]int, sub.WireCount())
	for i := range all {
		all[i] = i
	}
	return all
}
