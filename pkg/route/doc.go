// Package route implements the wire re-routing passes of the layout
// engine: path canonicalization, branch/port bundling, and crossing
// detection and resolution.
//
// # Passes
//
// The engine applies the passes in a fixed order per sub-diagram:
//
//  1. Bundling groups wires that converge on one destination block (or
//     diverge from one source port) onto a shared trunk coordinate with
//     per-member spacing, so fan-in and fan-out read as parallel bundles.
//  2. Canonicalization reduces each path to fewer, more axis-aligned
//     points without ever moving its anchors.
//  3. Crossing resolution nudges interior points of intersecting wire
//     pairs apart, bounded to a fixed number of pairs per pass.
//
// All passes share two hard rules: a path's first and last points (the
// anchors, equal to the connected port positions) are never rewritten,
// and a per-wire failure is skipped and counted rather than aborting the
// pass.
//
// # Crossing Counters
//
// Two crossing counts are maintained deliberately: bounding-box overlap
// candidates (cheap, pessimistic) and exact segment intersections. Some
// resolution modes only have budget to act on candidates, so both numbers
// are exposed separately in [CrossingCounts] instead of being collapsed
// into one.
package route
