// Package pkg provides the core libraries for wiretidy diagram optimization.
//
// # Overview
//
// wiretidy re-routes the wires of block diagrams — straightening bends,
// bundling fan-in/fan-out groups, and untangling crossings — without ever
// moving a block. The pkg directory is organized into four main areas:
//
//  1. Domain logic (geometry, diagram arena, routing, layout analysis, metrics)
//  2. Orchestration (engine passes, pipeline with caching)
//  3. Infrastructure (cache backends, run history, HTTP utilities)
//  4. Output (snapshot rendering, visual scoring)
//
// # Architecture
//
// The typical data flow through wiretidy:
//
//	Diagram file (JSON)
//	         ↓
//	    [diagram] package (arena of blocks and wires)
//	         ↓
//	    [layout] package (flow direction, layers, complexity)
//	         ↓
//	    [engine] package (bundle → canonicalize → resolve crossings)
//	         ↓
//	    [snapshot] / [score] packages (SVG/PNG/DOT output, visual rating)
//
// # Quick Start
//
// Optimize a diagram and render a snapshot:
//
//	import (
//	    "github.com/wiretidy/wiretidy/pkg/diagram"
//	    "github.com/wiretidy/wiretidy/pkg/engine"
//	    "github.com/wiretidy/wiretidy/pkg/snapshot"
//	)
//
//	// 1. Load the diagram
//	sub, _ := diagram.ReadFile("plant.json")
//
//	// 2. Optimize wire routing
//	e := engine.New(nil)
//	report := e.Optimize(sub, engine.DefaultParams())
//
//	// 3. Render the result
//	svg := snapshot.RenderSVG(sub)
//
// # Main Packages
//
// ## Domain Logic
//
// [geom] - Points, rectangles, and orthogonal segment predicates with
// tolerance-based comparison. Everything else builds on these.
//
// [diagram] - Arena of blocks and wires addressed by stable integer
// indices. Owns the JSON serialization format and anchor invariants.
//
// [layout] - Read-only diagram analysis: flow direction, block layers,
// complexity score, and straight-wire statistics. Memoized per diagram.
//
// [route] - The routing passes: path canonicalization, fan-in/fan-out
// bundling, and crossing detection/resolution.
//
// [metrics] - Before/after quality measurement (straight ratio, segment
// counts, crossings, path length) and the composite score.
//
// ## Orchestration
//
// [engine] - Runs the routing passes in order under one Params set and
// produces a Report. Never moves a block, never touches an anchor.
//
// [pipeline] - Complete load → optimize → snapshot → score pipeline used
// by CLI and API. Ensures consistent caching across all entry points.
//
// ## Infrastructure
//
// [cache] - Content-addressed caching with file, Redis, and null
// backends plus scoped key derivation for shared instances.
//
// [report] - Run history persistence with file and MongoDB stores.
//
// [httputil] - Retry with exponential backoff and response caching for
// outbound HTTP calls.
//
// [observability] - Optional instrumentation hooks for pipeline stages,
// cache operations, and HTTP calls.
//
// ## Output
//
// [snapshot] - SVG, PNG, and Graphviz DOT rendering of routed diagrams,
// with optional port markers and crossing highlights.
//
// [score] - Visual quality rating via an OpenAI-compatible vision model,
// with manual fallback.
//
// [geom]: https://pkg.go.dev/github.com/wiretidy/wiretidy/pkg/geom
// [diagram]: https://pkg.go.dev/github.com/wiretidy/wiretidy/pkg/diagram
// [layout]: https://pkg.go.dev/github.com/wiretidy/wiretidy/pkg/layout
// [route]: https://pkg.go.dev/github.com/wiretidy/wiretidy/pkg/route
// [metrics]: https://pkg.go.dev/github.com/wiretidy/wiretidy/pkg/metrics
// [engine]: https://pkg.go.dev/github.com/wiretidy/wiretidy/pkg/engine
// [pipeline]: https://pkg.go.dev/github.com/wiretidy/wiretidy/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/wiretidy/wiretidy/pkg/cache
// [report]: https://pkg.go.dev/github.com/wiretidy/wiretidy/pkg/report
// [httputil]: https://pkg.go.dev/github.com/wiretidy/wiretidy/pkg/httputil
// [observability]: https://pkg.go.dev/github.com/wiretidy/wiretidy/pkg/observability
// [snapshot]: https://pkg.go.dev/github.com/wiretidy/wiretidy/pkg/snapshot
// [score]: https://pkg.go.dev/github.com/wiretidy/wiretidy/pkg/score
package pkg
