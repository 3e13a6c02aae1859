package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/wiretidy/wiretidy/pkg/cache"
	"github.com/wiretidy/wiretidy/pkg/diagram"
	"github.com/wiretidy/wiretidy/pkg/engine"
	"github.com/wiretidy/wiretidy/pkg/observability"
	"github.com/wiretidy/wiretidy/pkg/report"
	"github.com/wiretidy/wiretidy/pkg/score"
	"github.com/wiretidy/wiretidy/pkg/snapshot"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache, store, and logger - it
// doesn't store pipeline results between calls. The embedded Engine's
// layout memo is per-runner, so use separate Runners for concurrent
// optimization of distinct diagrams.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Engine *engine.Engine

	// Store persists run history. Nil disables persistence.
	Store report.Store

	// Scorer evaluates snapshot quality. Nil disables scoring.
	Scorer *score.Client

	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Engine: engine.New(logger),
		Logger: logger,
	}
}

// resultEnvelope is the cached payload of the optimize stage: the routed
// diagram plus the engine's report, so a cache hit reproduces both.
type resultEnvelope struct {
	Diagram diagram.Document `json:"diagram"`
	Report  *engine.Report   `json:"report"`
}

// Execute runs the complete load → optimize → snapshot → score pipeline
// with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	result := &Result{
		Snapshots: make(map[string][]byte),
	}

	// Stage 1: Load
	sub, hash, err := r.Load(opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.DiagramHash = hash
	result.Stats.BlockCount = sub.BlockCount()
	result.Stats.WireCount = sub.WireCount()

	r.Logger.Info("loaded diagram",
		"source", opts.Source,
		"blocks", result.Stats.BlockCount,
		"wires", result.Stats.WireCount)

	// The comparison snapshot must be rendered before optimization
	// mutates the wire paths.
	var before []byte
	if opts.Score && opts.ScoreBefore {
		before = snapshot.RenderSVG(sub, r.svgOptions(opts)...)
	}

	// Stage 2: Optimize
	optimizeStart := time.Now()
	routed, rep, optimizeHit, err := r.OptimizeWithCacheInfo(ctx, sub, hash, opts)
	if err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}
	result.SubDiagram = routed
	result.Report = rep
	result.Stats.OptimizeTime = time.Since(optimizeStart)
	result.CacheInfo.OptimizeHit = optimizeHit

	r.Logger.Info("optimized wires",
		"improvement", rep.Improvement(),
		"crossings_resolved", rep.CrossingsResolved,
		"duration", result.Stats.OptimizeTime)

	// Stage 3: Snapshot
	snapshotStart := time.Now()
	snaps, snapshotHit, err := r.SnapshotWithCacheInfo(ctx, routed, opts)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	result.Snapshots = snaps
	result.Stats.SnapshotTime = time.Since(snapshotStart)
	result.CacheInfo.SnapshotHit = snapshotHit

	r.Logger.Info("rendered snapshots",
		"formats", opts.Formats,
		"duration", result.Stats.SnapshotTime)

	// Stage 4: Score (optional)
	if opts.Score && r.Scorer != nil {
		scoreStart := time.Now()
		after, ok := snaps[FormatSVG]
		if !ok {
			after = snapshot.RenderSVG(routed, r.svgOptions(opts)...)
		}
		observability.Pipeline().OnScoreStart(ctx, routed.ID)
		sr, err := r.Scorer.Evaluate(ctx, after, before)
		observability.Pipeline().OnScoreComplete(ctx, routed.ID, sr.Score, time.Since(scoreStart), err)
		if err != nil {
			return nil, fmt.Errorf("score: %w", err)
		}
		result.Score = &sr
		result.Stats.ScoreTime = time.Since(scoreStart)

		r.Logger.Info("scored snapshot",
			"score", sr.Score,
			"mode", sr.Mode,
			"duration", result.Stats.ScoreTime)
	}

	if opts.Write {
		if err := diagram.WriteFile(opts.Source, routed, opts.Backup); err != nil {
			return nil, fmt.Errorf("write back: %w", err)
		}
	}

	if r.Store != nil {
		run := report.NewRun(opts.Source, opts.Params, []*engine.Report{rep})
		run.Score = result.Score
		if err := r.Store.Save(ctx, run); err != nil {
			return nil, fmt.Errorf("save run: %w", err)
		}
		result.Run = run
	}

	return result, nil
}

// Load reads and parses the source diagram file, returning the
// sub-diagram and its content hash.
func (r *Runner) Load(opts Options) (*diagram.SubDiagram, string, error) {
	if err := opts.ValidateForLoad(); err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(opts.Source)
	if err != nil {
		return nil, "", err
	}
	sub, err := diagram.Unmarshal(data)
	if err != nil {
		return nil, "", fmt.Errorf("parse %s: %w", opts.Source, err)
	}
	return sub, cache.Hash(data), nil
}

// OptimizeWithCacheInfo runs the engine with caching and returns cache
// hit info. On a hit the routed diagram and report are rebuilt from the
// cached envelope and the input sub-diagram is left untouched; on a miss
// the input is optimized in place.
func (r *Runner) OptimizeWithCacheInfo(ctx context.Context, sub *diagram.SubDiagram, diagramHash string, opts Options) (*diagram.SubDiagram, *engine.Report, bool, error) {
	if err := opts.ValidateForLoad(); err != nil {
		return nil, nil, false, err
	}
	r.applyLogger(&opts)

	cacheKey := r.Keyer.ResultKey(diagramHash, opts.ResultKeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var env resultEnvelope
			if err := json.Unmarshal(data, &env); err == nil && env.Report != nil {
				routed, err := diagram.FromDocument(env.Diagram)
				if err == nil {
					observability.Cache().OnCacheHit(ctx, "result")
					return routed, env.Report, true, nil // Cache hit
				}
			}
			// If deserialization fails, fall through to recompute
		}
	}
	observability.Cache().OnCacheMiss(ctx, "result")

	start := time.Now()
	observability.Pipeline().OnOptimizeStart(ctx, sub.ID, sub.WireCount())
	rep := r.Engine.Optimize(sub, opts.Params)
	observability.Pipeline().OnOptimizeComplete(ctx, sub.ID, time.Since(start), nil)

	// Cache the result
	env := resultEnvelope{Diagram: diagram.ToDocument(sub), Report: rep}
	if data, err := json.Marshal(env); err == nil {
		if r.Cache.Set(ctx, cacheKey, data, cache.TTLResult) == nil {
			observability.Cache().OnCacheSet(ctx, "result", len(data))
		}
	}

	return sub, rep, false, nil // Cache miss
}

// Optimize is a convenience wrapper that calls OptimizeWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Optimize(ctx context.Context, sub *diagram.SubDiagram, diagramHash string, opts Options) (*engine.Report, error) {
	_, rep, _, err := r.OptimizeWithCacheInfo(ctx, sub, diagramHash, opts)
	return rep, err
}

// SnapshotWithCacheInfo renders snapshots with caching and returns cache
// hit info. Snapshots are keyed by the routed diagram's content hash, so
// parameter changes that alter the routing invalidate them naturally.
func (r *Runner) SnapshotWithCacheInfo(ctx context.Context, sub *diagram.SubDiagram, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForSnapshot(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	routedData, err := diagram.Marshal(sub)
	if err != nil {
		return nil, false, fmt.Errorf("serialize diagram for cache key: %w", err)
	}
	routedHash := cache.Hash(routedData)

	// Try to get all formats from cache
	allCached := true
	snaps := make(map[string][]byte)

	for _, format := range opts.Formats {
		cacheKey := r.Keyer.SnapshotKey(routedHash, opts.SnapshotKeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			snaps[format] = data
		} else {
			allCached = false
			break
		}
	}

	if allCached && len(snaps) == len(opts.Formats) {
		observability.Cache().OnCacheHit(ctx, "snapshot")
		return snaps, true, nil // All snapshots from cache
	}
	observability.Cache().OnCacheMiss(ctx, "snapshot")

	// Render all formats
	start := time.Now()
	observability.Pipeline().OnSnapshotStart(ctx, sub.ID, opts.Formats)
	rendered, err := r.renderAll(sub, opts)
	observability.Pipeline().OnSnapshotComplete(ctx, sub.ID, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	// Cache each format
	for format, data := range rendered {
		cacheKey := r.Keyer.SnapshotKey(routedHash, opts.SnapshotKeyOpts(format))
		if r.Cache.Set(ctx, cacheKey, data, cache.TTLSnapshot) == nil {
			observability.Cache().OnCacheSet(ctx, "snapshot", len(data))
		}
	}

	return rendered, false, nil // Cache miss
}

// Snapshot is a convenience wrapper that calls SnapshotWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Snapshot(ctx context.Context, sub *diagram.SubDiagram, opts Options) (map[string][]byte, error) {
	snaps, _, err := r.SnapshotWithCacheInfo(ctx, sub, opts)
	return snaps, err
}

// renderAll renders every requested format from the routed diagram.
func (r *Runner) renderAll(sub *diagram.SubDiagram, opts Options) (map[string][]byte, error) {
	svgOpts := r.svgOptions(opts)
	rendered := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		switch format {
		case FormatSVG:
			rendered[format] = snapshot.RenderSVG(sub, svgOpts...)
		case FormatPNG:
			data, err := snapshot.RenderPNG(sub, opts.Scale, svgOpts...)
			if err != nil {
				return nil, fmt.Errorf("render png: %w", err)
			}
			rendered[format] = data
		case FormatDOT:
			rendered[format] = []byte(snapshot.ToDOT(sub))
		default:
			return nil, fmt.Errorf("invalid format: %q", format)
		}
	}
	return rendered, nil
}

func (r *Runner) svgOptions(opts Options) []snapshot.SVGOption {
	var svgOpts []snapshot.SVGOption
	if opts.ShowPorts {
		svgOpts = append(svgOpts, snapshot.WithPorts())
	}
	if opts.MarkCrossings {
		svgOpts = append(svgOpts, snapshot.WithCrossings())
	}
	return svgOpts
}

// Close releases resources held by the runner (the cache and run store).
func (r *Runner) Close() error {
	var firstErr error
	if r.Cache != nil {
		firstErr = r.Cache.Close()
	}
	if r.Store != nil {
		if err := r.Store.Close(context.Background()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
