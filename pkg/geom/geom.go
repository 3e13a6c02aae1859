// Package geom provides the planar geometry primitives used by the wire
// routing engine: points, segments, bounding rectangles, and the
// collinearity and intersection tests that every higher-level pass is
// built on.
//
// Coordinates are in diagram pixel space with y increasing downward,
// matching the coordinate system of the diagram files the pipeline reads.
//
// # Tolerances
//
// Diagram coordinates come from hand-placed blocks and accumulate small
// fractional offsets, so exact comparisons are never used. Every predicate
// takes an explicit tolerance; callers thread the engine's configured
// tolerance through rather than relying on a package-level default.
package geom

import "math"

// Point is a location in diagram pixel space.
type Point struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Sub returns the vector p − q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Cross returns the z-component of the cross product p × q.
func (p Point) Cross(q Point) float64 { return p.X*q.Y - p.Y*q.X }

// Rect is an axis-aligned rectangle. Left/Top is the minimum corner and
// Right/Bottom the maximum corner (y grows downward, so Top <= Bottom).
type Rect struct {
	Left   float64 `json:"left" bson:"left"`
	Top    float64 `json:"top" bson:"top"`
	Right  float64 `json:"right" bson:"right"`
	Bottom float64 `json:"bottom" bson:"bottom"`
}

// Width returns Right − Left.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns Bottom − Top.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Area returns the rectangle's area. Degenerate rectangles have area 0.
func (r Rect) Area() float64 {
	w, h := r.Width(), r.Height()
	if w < 0 || h < 0 {
		return 0
	}
	return w * h
}

// Center returns the rectangle's midpoint.
func (r Rect) Center() Point {
	return Point{(r.Left + r.Right) / 2, (r.Top + r.Bottom) / 2}
}

// Overlaps reports whether r and s share any area or boundary.
// Touching edges count as overlapping, which is the conservative choice
// for a broad-phase filter: a false positive only costs an exact test.
func (r Rect) Overlaps(s Rect) bool {
	return r.Left <= s.Right && s.Left <= r.Right &&
		r.Top <= s.Bottom && s.Top <= r.Bottom
}

// Union returns the smallest rectangle containing both r and s.
func (r Rect) Union(s Rect) Rect {
	return Rect{
		Left:   math.Min(r.Left, s.Left),
		Top:    math.Min(r.Top, s.Top),
		Right:  math.Max(r.Right, s.Right),
		Bottom: math.Max(r.Bottom, s.Bottom),
	}
}

// Collinear reports whether p3 lies on the line through p1 and p2, within
// tol. The test compares the magnitude of the cross product of (p2−p1)
// and (p3−p1) against tol, so tol is in squared-distance units and scales
// with segment length; the engine's default of 1.0 is effectively exact
// for diagram-sized coordinates.
func Collinear(p1, p2, p3 Point, tol float64) bool {
	return math.Abs(p2.Sub(p1).Cross(p3.Sub(p1))) < tol
}

// SegmentsIntersect reports whether segment a1–a2 crosses segment b1–b2.
//
// The test solves the parametric line equations for the two segments and
// reports an intersection iff both parameters lie in [0,1]. Parallel and
// collinear-overlapping segments are treated as non-intersecting: overlap
// of parallel wires is handled by the spacing passes, not the crossing
// resolver, and counting it as a crossing would make the resolver fight
// the bundler.
func SegmentsIntersect(a1, a2, b1, b2 Point) bool {
	d1 := a2.Sub(a1)
	d2 := b2.Sub(b1)

	denom := d1.Cross(d2)
	if math.Abs(denom) < 1e-10 {
		return false // parallel or collinear
	}

	w := b1.Sub(a1)
	s := w.Cross(d2) / denom
	t := w.Cross(d1) / denom
	return s >= 0 && s <= 1 && t >= 0 && t <= 1
}

// AxisAligned reports whether the segment a–b is horizontal or vertical
// within tol.
func AxisAligned(a, b Point, tol float64) bool {
	return math.Abs(b.X-a.X) < tol || math.Abs(b.Y-a.Y) < tol
}

// PathBounds returns the bounding rectangle of the given points.
// An empty path yields the zero Rect.
func PathBounds(path []Point) Rect {
	if len(path) == 0 {
		return Rect{}
	}
	r := Rect{Left: path[0].X, Top: path[0].Y, Right: path[0].X, Bottom: path[0].Y}
	for _, p := range path[1:] {
		r.Left = math.Min(r.Left, p.X)
		r.Top = math.Min(r.Top, p.Y)
		r.Right = math.Max(r.Right, p.X)
		r.Bottom = math.Max(r.Bottom, p.Y)
	}
	return r
}

// PathLength returns the sum of Euclidean segment lengths along the path.
// Paths with fewer than two points have length 0.
func PathLength(path []Point) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += path[i].Dist(path[i-1])
	}
	return total
}
