// Package diagram provides the block/wire data model the routing engine
// operates on: blocks with fixed rectangles and ordered ports, wires
// owning polyline paths, and the sub-diagram arena that holds both.
//
// # Arena Addressing
//
// Blocks and wires live in flat slices and are addressed by stable
// integer indices. Wires reference ports as {block index, ordinal} pairs
// rather than live pointers, so removing a block mid-pass can never leave
// a dangling handle — resolution of the stale reference simply fails and
// the affected wire is skipped and counted by the calling pass.
//
// # Anchors
//
// A wire path's first and last points are its anchors. They equal the
// connected port positions and must never change value; only interior
// points may be rewritten. [SubDiagram.SetPath] enforces this invariant
// and rejects any replacement path whose endpoints moved. The engine
// treats such a rejection as a defect in the transformation that produced
// the path, not as a runtime condition to swallow.
//
// # Serialization
//
// The [Document] type in this package is the canonical JSON form of a
// sub-diagram, used by the pipeline for files, caching, and the HTTP API.
// Round-tripping a document through [FromDocument] and [ToDocument]
// preserves block order, wire order, and paths exactly.
//
// # Concurrency
//
// SubDiagram is not safe for concurrent mutation. Independent
// sub-diagrams may be processed in parallel provided their block and wire
// collections are disjoint.
package diagram
