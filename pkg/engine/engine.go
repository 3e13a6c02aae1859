// Package engine is the top-level wire re-layout engine. It applies the
// routing passes to one sub-diagram in a fixed order — analysis,
// bundling, canonicalization (or fresh re-routing), crossing cleanup —
// and reports before/after quality metrics.
//
// # Totality
//
// Optimize is total: for any well-formed sub-diagram it returns a
// usable report. Per-wire failures (unresolvable ports, degenerate
// paths) are skipped and counted; an anchor-moving transformation is
// rejected and surfaced as a warning count, because it indicates a
// defect in a routing pass rather than a runtime condition.
//
// # Concurrency
//
// An Engine call is single-threaded and synchronous with no suspension
// points. Distinct sub-diagrams may be optimized concurrently only with
// separate Engine instances (the layout cache is not synchronized).
// There is no cancellation: callers bound work by scheduling fewer
// sub-diagrams, not by interrupting a call. The crossing resolver's
// fixed per-pass pair cap is the only built-in backpressure.
package engine

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/wiretidy/wiretidy/pkg/diagram"
	"github.com/wiretidy/wiretidy/pkg/layout"
	"github.com/wiretidy/wiretidy/pkg/metrics"
	"github.com/wiretidy/wiretidy/pkg/route"
)

// Params is the resolved parameter set for one engine call. The engine
// performs no validation or defaulting beyond zero-value protection in
// [Params.Normalize]; parsing and validation belong to the caller.
//
// Params is passed by value and threaded explicitly through every pass:
// there is no process-wide tunable state.
type Params struct {
	BaseOffset    float64 `json:"base_offset" toml:"base_offset" bson:"base_offset"`
	MaxOffset     float64 `json:"max_offset" toml:"max_offset" bson:"max_offset"`
	CommonXOffset float64 `json:"common_x_offset" toml:"common_x_offset" bson:"common_x_offset"`
	ScaleFactor   float64 `json:"scale_factor" toml:"scale_factor" bson:"scale_factor"`
	MinSpacing    float64 `json:"min_spacing" toml:"min_spacing" bson:"min_spacing"`
	Tolerance     float64 `json:"tolerance" toml:"tolerance" bson:"tolerance"`
	MaxIterations int     `json:"max_iterations" toml:"max_iterations" bson:"max_iterations"`

	// PreserveExistingWires selects the routing mode: true keeps prior
	// point lists as the starting point and only tidies them; false
	// discards interior structure and re-routes from scratch.
	PreserveExistingWires bool `json:"preserve_existing_wires" toml:"preserve_existing_wires" bson:"preserve_existing_wires"`
}

// DefaultParams returns the stock parameter set.
func DefaultParams() Params {
	return Params{
		BaseOffset:            10,
		MaxOffset:             50,
		CommonXOffset:         30,
		ScaleFactor:           0.5,
		MinSpacing:            5,
		Tolerance:             1.0,
		MaxIterations:         3,
		PreserveExistingWires: true,
	}
}

// Normalize guards against zero values that would break the passes
// (zero tolerance, zero iterations). It does not validate semantics.
func (p Params) Normalize() Params {
	if p.Tolerance <= 0 {
		p.Tolerance = 1.0
	}
	if p.MaxIterations <= 0 {
		p.MaxIterations = 1
	}
	return p
}

func (p Params) bundleOptions() route.BundleOptions {
	return route.BundleOptions{
		BaseOffset:    p.BaseOffset,
		MaxOffset:     p.MaxOffset,
		CommonXOffset: p.CommonXOffset,
		ScaleFactor:   p.ScaleFactor,
		MinSpacing:    p.MinSpacing,
		Tolerance:     p.Tolerance,
	}
}

// Report is the outcome of one Optimize call.
type Report struct {
	SubDiagram string `json:"sub_diagram" bson:"sub_diagram"`

	Flow   string `json:"flow" bson:"flow"`
	Layers int    `json:"layers" bson:"layers"`

	Before metrics.Metrics `json:"before" bson:"before"`
	After  metrics.Metrics `json:"after" bson:"after"`

	// BundleGroups is the number of fan-in/fan-out bundles placed;
	// BundledWires how many wires they routed.
	BundleGroups int `json:"bundle_groups" bson:"bundle_groups"`
	BundledWires int `json:"bundled_wires" bson:"bundled_wires"`

	// Canonicalized counts wires tidied in preserve mode; Rerouted
	// counts wires given fresh minimal-elbow paths when preserve is off.
	Canonicalized int `json:"canonicalized" bson:"canonicalized"`
	Rerouted      int `json:"rerouted" bson:"rerouted"`

	// CrossingsFound/Resolved/Deferred accumulate over all cleanup
	// passes. Deferred pairs were beyond the per-pass cap on the final
	// pass and remain for a future engine call.
	CrossingsFound    int `json:"crossings_found" bson:"crossings_found"`
	CrossingsResolved int `json:"crossings_resolved" bson:"crossings_resolved"`
	CrossingsDeferred int `json:"crossings_deferred" bson:"crossings_deferred"`

	// Skipped counts wires left untouched because a port failed to
	// resolve. AnchorWarnings counts rejected anchor-moving
	// transformations; nonzero values indicate a pass defect.
	Skipped        int `json:"skipped" bson:"skipped"`
	AnchorWarnings int `json:"anchor_warnings" bson:"anchor_warnings"`
}

// Improvement returns the score delta of this run.
func (r *Report) Improvement() float64 { return r.After.Score - r.Before.Score }

// Engine applies the routing passes. It owns a layout analyzer whose
// memo cache persists across calls until invalidated.
type Engine struct {
	analyzer *layout.Analyzer
	logger   *log.Logger
}

// New creates an engine. A nil logger discards all output.
func New(logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Engine{
		// The analyzer supplies flow and layering, which are
		// tolerance-independent; report metrics are computed per call
		// with the caller's tolerance.
		analyzer: layout.New(1.0),
		logger:   logger,
	}
}

// Analyzer exposes the engine's layout analyzer, primarily so callers
// can invalidate or clear its cache on configuration changes.
func (e *Engine) Analyzer() *layout.Analyzer { return e.analyzer }

// Optimize re-routes the wires of one sub-diagram in place and returns
// a report. Block geometry is never modified.
func (e *Engine) Optimize(sub *diagram.SubDiagram, params Params) *Report {
	params = params.Normalize()

	info := e.analyzer.Analyze(sub)
	report := &Report{
		SubDiagram: sub.ID,
		Flow:       info.Flow.String(),
		Layers:     len(info.Layers),
		// Before and After must be measured with the same tolerance or
		// Improvement compares incommensurable straightness counts.
		Before:  metrics.Compute(sub, params.Tolerance),
		Skipped: info.Skipped,
	}

	e.logger.Debug("analyzed sub-diagram",
		"id", sub.ID,
		"blocks", info.BlockCount,
		"wires", info.WireCount,
		"flow", info.Flow,
		"layers", len(info.Layers))

	// Bundling routes fan-in/fan-out groups onto shared trunks.
	bundle := route.Bundle(sub, params.bundleOptions())
	report.BundleGroups = bundle.Groups
	report.BundledWires = len(bundle.Routed)
	report.Skipped += bundle.Skipped
	report.CrossingsFound += bundle.Crossings.Found
	report.CrossingsResolved += bundle.Crossings.Resolved
	report.AnchorWarnings += bundle.Crossings.AnchorViolations

	bundled := make(map[int]bool, len(bundle.Routed))
	for _, wi := range bundle.Routed {
		bundled[wi] = true
	}

	// Remaining wires: tidy in place, or re-route from scratch when the
	// preserve policy is off.
	if params.PreserveExistingWires {
		report.Canonicalized = e.canonicalizeRemaining(sub, bundled, params, report)
	} else {
		report.Rerouted = e.rerouteRemaining(sub, bundled, params)
	}

	// Crossing cleanup, bounded per pass; deferred pairs are retried on
	// the next iteration rather than dropped.
	for pass := 0; pass < params.MaxIterations; pass++ {
		res := route.ResolveCrossings(sub, nil, params.Tolerance)
		report.CrossingsFound += res.Found
		report.CrossingsResolved += res.Resolved
		report.CrossingsDeferred = res.Deferred
		report.AnchorWarnings += res.AnchorViolations
		if res.Found == 0 || res.Resolved == 0 {
			break
		}
	}

	// The diagram changed under the cached snapshot.
	e.analyzer.Invalidate(sub.ID)
	report.After = metrics.Compute(sub, params.Tolerance)

	e.logger.Info("optimized sub-diagram",
		"id", sub.ID,
		"score_before", report.Before.Score,
		"score_after", report.After.Score,
		"bundles", report.BundleGroups,
		"crossings_resolved", report.CrossingsResolved,
		"skipped", report.Skipped)
	if report.AnchorWarnings > 0 {
		e.logger.Warn("anchor-moving transformations rejected",
			"id", sub.ID,
			"count", report.AnchorWarnings)
	}

	return report
}

// canonicalizeRemaining tidies every non-bundled wire's existing path.
func (e *Engine) canonicalizeRemaining(sub *diagram.SubDiagram, bundled map[int]bool, params Params, report *Report) int {
	count := 0
	for wi := 0; wi < sub.WireCount(); wi++ {
		if bundled[wi] {
			continue
		}
		w, _ := sub.Wire(wi)
		if len(w.Path) < 2 {
			continue // degenerate: already optimal
		}
		canon := route.Canonicalize(w.Path, params.Tolerance)
		switch err := sub.SetPath(wi, canon); err {
		case nil:
			count++
		case diagram.ErrAnchorMoved:
			report.AnchorWarnings++
		}
	}
	return count
}

// rerouteRemaining installs fresh minimal-elbow paths on every
// non-bundled wire, ignoring prior interior structure.
func (e *Engine) rerouteRemaining(sub *diagram.SubDiagram, bundled map[int]bool, params Params) int {
	count := 0
	for wi := 0; wi < sub.WireCount(); wi++ {
		if bundled[wi] {
			continue
		}
		w, _ := sub.Wire(wi)
		if len(w.Path) < 2 {
			continue
		}
		fresh := route.Canonicalize(route.Straighten(w.Path, route.Auto, params.Tolerance), params.Tolerance)
		if sub.SetPath(wi, fresh) == nil {
			count++
		}
	}
	return count
}
