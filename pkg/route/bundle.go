package route

import (
	"math"
	"sort"

	"github.com/wiretidy/wiretidy/pkg/diagram"
	"github.com/wiretidy/wiretidy/pkg/geom"
)

// referenceBlockHeight is the block height at which the height scale
// factor reaches its cap. Taller blocks get proportionally wider port
// spacing up to this size, then the gain flattens out.
const referenceBlockHeight = 300.0

// Thresholds for choosing how many evenly spaced intermediate points a
// bundled path gets on its approach to the trunk.
const (
	shortApproach  = 150.0 // below this: 1 intermediate point
	mediumApproach = 300.0 // below this: 2, otherwise 3
)

// BundleOptions are the spacing parameters for the grouping pass,
// resolved by the caller. The zero value is not useful; the engine
// derives these from its parameter set.
type BundleOptions struct {
	// BaseOffset is the per-member spacing unit between trunk offsets.
	BaseOffset float64
	// MaxOffset clamps the absolute trunk offset of any member.
	MaxOffset float64
	// CommonXOffset is the distance from the destination block's left
	// edge (or source port, mirrored) to the shared trunk coordinate.
	CommonXOffset float64
	// ScaleFactor scales all offsets uniformly.
	ScaleFactor float64
	// MinSpacing is the floor for the spacing step between neighbors.
	MinSpacing float64
	// Tolerance is the geometric tolerance threaded through to path
	// cleanup.
	Tolerance float64
}

// BundleReport summarizes a grouping pass.
type BundleReport struct {
	// Groups is the number of fan-in/fan-out groups that were bundled.
	Groups int
	// Routed lists the wire indices whose paths this pass rewrote.
	// The engine excludes them from later canonicalization: elbow
	// capping would collapse a trunk route back into a plain Z.
	Routed []int
	// Skipped counts wires left out because a port failed to resolve.
	Skipped int
	// Crossings accumulates the intra-group resolution run after each
	// group is placed. Crossings inside a fresh bundle are common by
	// construction, so each group gets its own cleanup.
	Crossings ResolveReport
}

// band partitions a sorted group position into thirds.
type band int

const (
	bandUpper band = iota
	bandMiddle
	bandLower
)

func bandOf(i, n int) band {
	switch {
	case i*3 < n:
		return bandUpper
	case i*3 >= 2*n:
		return bandLower
	default:
		return bandMiddle
	}
}

// bandOfRow classifies a destination row against the source row. Rows
// within tolerance of the source form the middle band.
func bandOfRow(destY, srcY, tol float64) band {
	switch {
	case destY < srcY-tol:
		return bandUpper
	case destY > srcY+tol:
		return bandLower
	default:
		return bandMiddle
	}
}

// trunkOffset spaces the members of one band along the trunk, the
// farthest destination swinging widest. Members arrive sorted top to
// bottom, so the upper band counts down from its topmost member and the
// lower band counts up toward its bottommost.
func trunkOffset(b band, j, n int, step float64) float64 {
	switch b {
	case bandUpper:
		return -(step/2 + step*float64(n-1-j))
	case bandLower:
		return step/2 + step*float64(j)
	}
	return 0
}

// member is one wire participating in a group, with its resolved ports.
type member struct {
	wire    int
	ordinal int // destination ordinal for fan-in, source for fan-out
	first   geom.Point
	last    geom.Point
}

// Bundle runs fan-in grouping per destination block followed by fan-out
// grouping per source port. Wires routed by the fan-in stage are not
// re-routed by the fan-out stage.
func Bundle(sub *diagram.SubDiagram, opts BundleOptions) BundleReport {
	report := GroupFanIn(sub, opts, nil)

	taken := make(map[int]bool, len(report.Routed))
	for _, wi := range report.Routed {
		taken[wi] = true
	}

	out := GroupFanOut(sub, opts, taken)
	report.Groups += out.Groups
	report.Routed = append(report.Routed, out.Routed...)
	report.Skipped += out.Skipped
	mergeResolve(&report.Crossings, out.Crossings)
	return report
}

// GroupFanIn bundles wires that converge on the same destination block.
//
// Per destination block the incoming wires are sorted by destination
// port ordinal and assigned a shared trunk coordinate
// (blockLeft − CommonXOffset) plus a per-member vertical offset. Offsets
// grow with distance from the middle of the group, get an extra push in
// the outer bands, scale with block height (capped), and are clamped to
// ±MaxOffset. The approach from the source anchor to the trunk is
// interpolated with 1–3 evenly spaced points depending on horizontal
// distance.
//
// Only single-destination wires participate; branched wires keep their
// existing paths. The skip set excludes wires routed by an earlier stage.
func GroupFanIn(sub *diagram.SubDiagram, opts BundleOptions, skip map[int]bool) BundleReport {
	var report BundleReport

	groups := make(map[int][]member)
	for wi := 0; wi < sub.WireCount(); wi++ {
		if skip[wi] {
			continue
		}
		w, _ := sub.Wire(wi)
		if len(w.To) != 1 || len(w.Path) < 2 {
			continue
		}
		if _, err := sub.OutputPort(w.From); err != nil {
			report.Skipped++
			continue
		}
		dst := w.To[0]
		if _, err := sub.InputPort(dst); err != nil {
			report.Skipped++
			continue
		}
		groups[dst.Block] = append(groups[dst.Block], member{
			wire:    wi,
			ordinal: dst.Ordinal,
			first:   w.Path[0],
			last:    w.Path[len(w.Path)-1],
		})
	}

	blocks := make([]int, 0, len(groups))
	for b := range groups {
		blocks = append(blocks, b)
	}
	sort.Ints(blocks)

	for _, bi := range blocks {
		members := groups[bi]
		if len(members) < 2 {
			continue
		}
		block, err := sub.Block(bi)
		if err != nil {
			report.Skipped += len(members)
			continue
		}

		sort.Slice(members, func(i, j int) bool { return members[i].ordinal < members[j].ordinal })

		commonX := block.Bounds.Left - opts.CommonXOffset
		step := spacingStep(opts, block.Bounds.Height())

		var routed []int
		for i, m := range members {
			offset := clampOffset(memberOffset(i, len(members), step), opts.MaxOffset)
			trunk := geom.Point{X: commonX, Y: m.last.Y + offset}
			path := approachPath(m.first, trunk, m.last)
			if sub.SetPath(m.wire, path) != nil {
				report.Skipped++
				continue
			}
			routed = append(routed, m.wire)
		}
		if len(routed) == 0 {
			continue
		}
		report.Groups++
		report.Routed = append(report.Routed, routed...)
		mergeResolve(&report.Crossings, ResolveCrossings(sub, routed, opts.Tolerance))
	}
	return report
}

// GroupFanOut bundles wires that diverge from the same source port,
// mirroring the fan-in rule: each destination is banded by which side of
// the source row it lies on. Destinations level with the source (within
// tolerance) are routed directly with no added trunk — the common case
// stays cheap — while destinations above fan out through an upward trunk
// offset and destinations below through a downward one. Sorted position
// within a band spaces its trunk offsets.
func GroupFanOut(sub *diagram.SubDiagram, opts BundleOptions, skip map[int]bool) BundleReport {
	var report BundleReport

	type portKey struct {
		block   int
		ordinal int
	}
	groups := make(map[portKey][]member)
	for wi := 0; wi < sub.WireCount(); wi++ {
		if skip[wi] {
			continue
		}
		w, _ := sub.Wire(wi)
		if len(w.To) != 1 || len(w.Path) < 2 {
			continue
		}
		if _, err := sub.OutputPort(w.From); err != nil {
			report.Skipped++
			continue
		}
		key := portKey{block: w.From.Block, ordinal: w.From.Ordinal}
		groups[key] = append(groups[key], member{
			wire:    wi,
			ordinal: w.From.Ordinal,
			first:   w.Path[0],
			last:    w.Path[len(w.Path)-1],
		})
	}

	keys := make([]portKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].block != keys[j].block {
			return keys[i].block < keys[j].block
		}
		return keys[i].ordinal < keys[j].ordinal
	})

	for _, key := range keys {
		members := groups[key]
		if len(members) < 2 {
			continue
		}
		block, err := sub.Block(key.block)
		if err != nil {
			report.Skipped += len(members)
			continue
		}

		// Top-to-bottom by destination row.
		sort.Slice(members, func(i, j int) bool { return members[i].last.Y < members[j].last.Y })

		commonX := members[0].first.X + opts.CommonXOffset
		step := spacingStep(opts, block.Bounds.Height())

		// Band membership is decided against the source row, not by
		// sorted thirds: when every destination sits on one side, every
		// trunk must detour toward that side.
		bands := make([]band, len(members))
		counts := make(map[band]int, 3)
		for i, m := range members {
			bands[i] = bandOfRow(m.last.Y, m.first.Y, opts.Tolerance)
			counts[bands[i]]++
		}

		var routed []int
		pos := make(map[band]int, 3)
		for i, m := range members {
			b := bands[i]
			j := pos[b]
			pos[b]++

			var path []geom.Point
			if b == bandMiddle {
				path = Canonicalize(Straighten([]geom.Point{m.first, m.last}, Auto, opts.Tolerance), opts.Tolerance)
			} else {
				offset := clampOffset(trunkOffset(b, j, counts[b], step), opts.MaxOffset)
				trunk := geom.Point{X: commonX, Y: m.first.Y + offset}
				path = departPath(m.first, trunk, m.last)
			}
			if sub.SetPath(m.wire, path) != nil {
				report.Skipped++
				continue
			}
			routed = append(routed, m.wire)
		}
		if len(routed) == 0 {
			continue
		}
		report.Groups++
		report.Routed = append(report.Routed, routed...)
		mergeResolve(&report.Crossings, ResolveCrossings(sub, routed, opts.Tolerance))
	}
	return report
}

// spacingStep computes the per-member spacing unit: the base offset
// scaled by the configured factor and a height factor that grows with
// block size but is clamped to [0.5, 1.0]. MinSpacing is the floor.
func spacingStep(opts BundleOptions, blockHeight float64) float64 {
	heightScale := blockHeight / referenceBlockHeight
	heightScale = math.Min(math.Max(heightScale, 0.5), 1.0)
	step := opts.BaseOffset * opts.ScaleFactor * heightScale
	if step < opts.MinSpacing {
		step = opts.MinSpacing
	}
	return step
}

// memberOffset spaces group members around the middle: the offset grows
// linearly with distance from the group center, with an extra half-step
// push for the outer bands so upper and lower members clear the middle
// band visibly.
func memberOffset(i, n int, step float64) float64 {
	center := float64(n-1) / 2
	d := float64(i) - center
	offset := d * step
	switch bandOf(i, n) {
	case bandUpper:
		offset -= step / 2
	case bandLower:
		offset += step / 2
	}
	return offset
}

func clampOffset(offset, maxOffset float64) float64 {
	return math.Min(math.Max(offset, -maxOffset), maxOffset)
}

// approachPath builds a fan-in path: source anchor, 1–3 evenly spaced
// interpolation points toward the trunk, the trunk point, and the
// destination anchor.
func approachPath(first, trunk, last geom.Point) []geom.Point {
	k := intermediateCount(math.Abs(trunk.X - first.X))
	path := make([]geom.Point, 0, k+3)
	path = append(path, first)
	for i := 1; i <= k; i++ {
		t := float64(i) / float64(k+1)
		path = append(path, geom.Point{
			X: first.X + t*(trunk.X-first.X),
			Y: first.Y + t*(trunk.Y-first.Y),
		})
	}
	path = append(path, trunk, last)
	return path
}

// departPath builds a fan-out path: source anchor, the trunk point, then
// 1–3 evenly spaced interpolation points toward the destination anchor.
func departPath(first, trunk, last geom.Point) []geom.Point {
	k := intermediateCount(math.Abs(last.X - trunk.X))
	path := make([]geom.Point, 0, k+3)
	path = append(path, first, trunk)
	for i := 1; i <= k; i++ {
		t := float64(i) / float64(k+1)
		path = append(path, geom.Point{
			X: trunk.X + t*(last.X-trunk.X),
			Y: trunk.Y + t*(last.Y-trunk.Y),
		})
	}
	path = append(path, last)
	return path
}

func intermediateCount(dist float64) int {
	switch {
	case dist < shortApproach:
		return 1
	case dist < mediumApproach:
		return 2
	default:
		return 3
	}
}

func mergeResolve(dst *ResolveReport, src ResolveReport) {
	dst.Found += src.Found
	dst.Resolved += src.Resolved
	dst.Deferred += src.Deferred
	dst.AnchorViolations += src.AnchorViolations
}
