// Package layout analyzes a sub-diagram before routing: bounding box,
// block geometry, connection structure, dominant signal-flow direction,
// and a coarse layering of blocks along the flow axis.
//
// # Layering
//
// Layering here is agglomerative 1-D clustering of block centers along
// the dominant axis: centers are sorted and a new layer starts whenever
// the gap to the previous center exceeds a fixed tolerance. This is a
// deliberate simplification — it is not true graph layering and ignores
// connectivity — but it is cheap, stable, and good enough to orient the
// bundling pass.
//
// # Caching
//
// Analysis results are memoized per sub-diagram identity. The cache
// assumes single-writer access per key: callers analyzing the same
// sub-diagram from multiple goroutines must synchronize externally.
// After [Analyzer.Invalidate] or [Analyzer.ClearCache] a stale entry is
// never returned.
package layout

import (
	"math"
	"sort"

	"github.com/wiretidy/wiretidy/pkg/diagram"
	"github.com/wiretidy/wiretidy/pkg/geom"
	"github.com/wiretidy/wiretidy/pkg/metrics"
)

// layerGapTolerance is the center-to-center gap along the flow axis that
// separates two layers.
const layerGapTolerance = 50.0

// Flow is the dominant signal-flow direction of a sub-diagram.
type Flow int

const (
	// LeftToRight is the default for diagrams without resolvable wires.
	LeftToRight Flow = iota
	RightToLeft
	TopToBottom
	BottomToTop
)

// String returns the flow direction as a stable lowercase token.
func (f Flow) String() string {
	switch f {
	case RightToLeft:
		return "right_to_left"
	case TopToBottom:
		return "top_to_bottom"
	case BottomToTop:
		return "bottom_to_top"
	default:
		return "left_to_right"
	}
}

// Horizontal reports whether the flow runs along the x axis.
func (f Flow) Horizontal() bool { return f == LeftToRight || f == RightToLeft }

// Info is the analysis snapshot for one sub-diagram. It is derived
// state: valid until the next routing pass mutates the diagram, at
// which point the caller must invalidate the cache entry.
type Info struct {
	Bounds     geom.Rect
	BlockCount int
	WireCount  int

	// Centers maps block arena index to block center.
	Centers map[int]geom.Point

	Flow Flow

	// Layers groups block indices along the flow axis, ordered by
	// position. Each layer is sorted by the cross-axis coordinate.
	Layers [][]int

	// Skipped counts wires whose endpoints could not be resolved during
	// connection analysis.
	Skipped int

	Metrics metrics.Metrics
}

// Analyzer computes and memoizes sub-diagram analysis.
//
// The zero value is not usable; create with New. Not safe for
// concurrent use on the same key.
type Analyzer struct {
	tol   float64
	cache map[string]*Info
}

// New creates an analyzer with the given geometric tolerance.
func New(tol float64) *Analyzer {
	return &Analyzer{
		tol:   tol,
		cache: make(map[string]*Info),
	}
}

// Analyze characterizes the sub-diagram, returning a cached snapshot if
// one exists for its identity. Analyze is total: any well-formed
// sub-diagram yields an Info, with unresolvable wires counted in
// Skipped rather than reported as errors.
func (a *Analyzer) Analyze(sub *diagram.SubDiagram) *Info {
	if info, ok := a.cache[sub.ID]; ok {
		return info
	}
	info := a.analyze(sub)
	a.cache[sub.ID] = info
	return info
}

// Invalidate drops the cached entry for one sub-diagram identity.
// Call after any routing pass or parameter change that affects it.
func (a *Analyzer) Invalidate(id string) {
	delete(a.cache, id)
}

// ClearCache purges all cached entries.
func (a *Analyzer) ClearCache() {
	a.cache = make(map[string]*Info)
}

func (a *Analyzer) analyze(sub *diagram.SubDiagram) *Info {
	info := &Info{
		Bounds:     sub.Bounds(),
		BlockCount: sub.BlockCount(),
		WireCount:  sub.WireCount(),
		Centers:    make(map[int]geom.Point),
	}
	sub.Blocks(func(idx int, b *diagram.Block) {
		info.Centers[idx] = b.Center()
	})

	conn := sub.Connections()
	info.Skipped = conn.Skipped
	info.Flow = flowDirection(conn, info.Centers)
	info.Layers = layering(info.Centers, info.Flow)
	info.Metrics = metrics.Compute(sub, a.tol)
	return info
}

// flowDirection averages the center-to-center vectors of all resolvable
// connections. The dominant axis of the average picks horizontal vs
// vertical; its sign picks the direction. No connections at all yields
// the left-to-right default.
func flowDirection(conn *diagram.ConnectionGraph, centers map[int]geom.Point) Flow {
	var sumX, sumY float64
	n := 0
	for _, e := range conn.Edges {
		from, okF := centers[e.From]
		to, okT := centers[e.To]
		if !okF || !okT {
			continue
		}
		sumX += to.X - from.X
		sumY += to.Y - from.Y
		n++
	}
	if n == 0 {
		return LeftToRight
	}
	avgX, avgY := sumX/float64(n), sumY/float64(n)
	if math.Abs(avgX) >= math.Abs(avgY) {
		if avgX >= 0 {
			return LeftToRight
		}
		return RightToLeft
	}
	if avgY >= 0 {
		return TopToBottom
	}
	return BottomToTop
}

// layering clusters block centers along the flow axis: sort by the flow
// coordinate and start a new layer whenever the gap to the previous
// center exceeds the tolerance. Within each layer, blocks are ordered
// by the cross-axis coordinate.
func layering(centers map[int]geom.Point, flow Flow) [][]int {
	if len(centers) == 0 {
		return nil
	}
	idx := make([]int, 0, len(centers))
	for i := range centers {
		idx = append(idx, i)
	}

	along := func(p geom.Point) float64 {
		if flow.Horizontal() {
			return p.X
		}
		return p.Y
	}
	across := func(p geom.Point) float64 {
		if flow.Horizontal() {
			return p.Y
		}
		return p.X
	}

	sort.Slice(idx, func(i, j int) bool {
		ai, aj := along(centers[idx[i]]), along(centers[idx[j]])
		if ai != aj {
			return ai < aj
		}
		return idx[i] < idx[j]
	})

	var layers [][]int
	var current []int
	prev := math.Inf(-1)
	for _, bi := range idx {
		pos := along(centers[bi])
		if len(current) > 0 && pos-prev > layerGapTolerance {
			layers = append(layers, current)
			current = nil
		}
		current = append(current, bi)
		prev = pos
	}
	layers = append(layers, current)

	for _, layer := range layers {
		sort.Slice(layer, func(i, j int) bool {
			return across(centers[layer[i]]) < across(centers[layer[j]])
		})
	}
	return layers
}
