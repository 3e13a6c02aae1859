package route

import (
	"math"

	"github.com/wiretidy/wiretidy/pkg/geom"
)

// collapseThreshold is the total-delta below which a path is considered
// straight in one axis and collapsed to its two anchors. Deltas this
// small are invisible at diagram zoom levels, so any interior structure
// is noise left over from hand editing.
const collapseThreshold = 5.0

// Method selects how Straighten chooses its single elbow.
type Method int

const (
	// Auto picks horizontal or vertical based on which axis has the
	// larger total delta between the anchors.
	Auto Method = iota
	// Horizontal preserves the start point's row: the first segment runs
	// horizontally.
	Horizontal
	// Vertical preserves the start point's column: the first segment runs
	// vertically.
	Vertical
)

// Canonicalize reduces a wire path to fewer, more axis-aligned points.
// The anchors (first and last point) are never altered; only interior
// points are dropped, moved, or introduced. Canonicalize never mutates
// its input and always returns a path with the input's exact endpoints.
//
// Paths with fewer than two points are returned as-is: a degenerate wire
// is treated as already optimal, not as an error.
//
// The reduction applies, in priority order: degenerate collapse for
// paths whose total delta in one axis is under 5 units, removal of
// near-duplicate points, collinear middle-point removal, elbow capping
// for paths that still have more than four points, and decomposition of
// any remaining diagonal segment into two axis-aligned ones.
//
// For diagonal decomposition the rule is uniform: the segment runs along
// its larger-delta axis first, deferring the smaller-delta movement to
// the second sub-segment. A mostly-horizontal diagonal from a to b thus
// gets its elbow at (b.X, a.Y).
func Canonicalize(path []geom.Point, tol float64) []geom.Point {
	if len(path) < 2 {
		return path
	}
	first, last := path[0], path[len(path)-1]

	// Degenerate collapse: near-straight in one axis.
	if math.Abs(last.X-first.X) < collapseThreshold || math.Abs(last.Y-first.Y) < collapseThreshold {
		return []geom.Point{first, last}
	}

	pts := dropDuplicates(path, tol)
	pts = dropCollinear(pts, tol)

	if len(pts) > 4 {
		pts = capElbows(first, last)
	}

	pts = splitDiagonals(pts, tol)

	// New elbows can re-expose collinear triples.
	pts = dropCollinear(pts, tol)
	return pts
}

// Straighten replaces the path with a single-elbow orthogonal route
// between its anchors. The method controls which coordinate the elbow
// preserves; Auto picks the axis with the larger total delta. Already
// axis-aligned anchor pairs yield the two-point straight path.
func Straighten(path []geom.Point, method Method, tol float64) []geom.Point {
	if len(path) < 2 {
		return path
	}
	first, last := path[0], path[len(path)-1]

	dx := math.Abs(last.X - first.X)
	dy := math.Abs(last.Y - first.Y)
	if dx < tol || dy < tol {
		return []geom.Point{first, last}
	}

	m := method
	if m == Auto {
		if dx >= dy {
			m = Horizontal
		} else {
			m = Vertical
		}
	}

	var elbow geom.Point
	switch m {
	case Horizontal:
		elbow = geom.Point{X: last.X, Y: first.Y}
	default:
		elbow = geom.Point{X: first.X, Y: last.Y}
	}
	return []geom.Point{first, elbow, last}
}

// dropDuplicates removes points within tol of their predecessor. The
// final anchor always survives; when the point before it is the
// duplicate, that predecessor is dropped instead.
func dropDuplicates(path []geom.Point, tol float64) []geom.Point {
	out := make([]geom.Point, 0, len(path))
	out = append(out, path[0])
	for i := 1; i < len(path)-1; i++ {
		if path[i].Dist(out[len(out)-1]) < tol {
			continue
		}
		out = append(out, path[i])
	}
	last := path[len(path)-1]
	if len(out) > 1 && out[len(out)-1].Dist(last) < tol {
		out = out[:len(out)-1]
	}
	return append(out, last)
}

// dropCollinear removes interior points that lie on the line between
// their neighbors, axis-aligned or diagonal.
func dropCollinear(path []geom.Point, tol float64) []geom.Point {
	if len(path) <= 2 {
		return path
	}
	out := make([]geom.Point, 0, len(path))
	out = append(out, path[0])
	for i := 1; i < len(path)-1; i++ {
		prev := out[len(out)-1]
		if geom.Collinear(prev, path[i], path[i+1], tol) {
			continue
		}
		out = append(out, path[i])
	}
	return append(out, path[len(path)-1])
}

// capElbows discards all interior structure and emits a minimal Z-shape
// between the anchors, with the turn at the midpoint of the dominant
// axis. Collapses to an L (and later to a straight line) when the
// anchors share a row or column.
func capElbows(first, last geom.Point) []geom.Point {
	dx := math.Abs(last.X - first.X)
	dy := math.Abs(last.Y - first.Y)
	if dx >= dy {
		midX := (first.X + last.X) / 2
		return []geom.Point{first, {X: midX, Y: first.Y}, {X: midX, Y: last.Y}, last}
	}
	midY := (first.Y + last.Y) / 2
	return []geom.Point{first, {X: first.X, Y: midY}, {X: last.X, Y: midY}, last}
}

// splitDiagonals replaces every diagonal segment with two axis-aligned
// sub-segments, larger-delta axis first.
func splitDiagonals(path []geom.Point, tol float64) []geom.Point {
	out := make([]geom.Point, 0, len(path)+2)
	out = append(out, path[0])
	for i := 1; i < len(path); i++ {
		a, b := out[len(out)-1], path[i]
		dx := math.Abs(b.X - a.X)
		dy := math.Abs(b.Y - a.Y)
		if dx >= tol && dy >= tol {
			var elbow geom.Point
			if dx >= dy {
				elbow = geom.Point{X: b.X, Y: a.Y}
			} else {
				elbow = geom.Point{X: a.X, Y: b.Y}
			}
			out = append(out, elbow)
		}
		out = append(out, b)
	}
	return out
}

// IsStraight reports whether every segment of the path is axis-aligned
// within tol. Degenerate paths count as straight.
func IsStraight(path []geom.Point, tol float64) bool {
	for i := 1; i < len(path); i++ {
		if !geom.AxisAligned(path[i-1], path[i], tol) {
			return false
		}
	}
	return true
}
