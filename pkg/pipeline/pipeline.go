// Package pipeline provides the core re-layout pipeline for wiretidy.
//
// This package implements the complete load → optimize → snapshot →
// score pipeline that can be used by CLI and API components. By
// centralizing this logic, we ensure consistent behavior across all
// entry points and avoid code duplication.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Load: Parse a diagram file into its sub-diagram arena
//  2. Optimize: Re-route the wires through the engine's passes
//  3. Snapshot: Render the routed diagram (SVG, PNG, DOT)
//  4. Score: Evaluate the visual quality of the result (optional)
//
// Each stage can be run independently or as part of the complete
// pipeline. The optimize and snapshot stages are cached by diagram
// content hash, so re-running an unchanged file is free.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Source:  "plant.json",
//	    Params:  engine.DefaultParams(),
//	    Formats: []string{"svg"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Snapshots["svg"]
//
// Run individual stages:
//
//	// Load only
//	sub, hash, err := runner.Load(opts)
//
//	// Optimize an already-loaded diagram
//	rep, err := runner.Optimize(ctx, sub, hash, opts)
//
//	// Snapshot an already-routed diagram
//	snaps, err := runner.Snapshot(ctx, sub, opts)
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/wiretidy/wiretidy/pkg/cache"
	"github.com/wiretidy/wiretidy/pkg/diagram"
	"github.com/wiretidy/wiretidy/pkg/engine"
	"github.com/wiretidy/wiretidy/pkg/report"
	"github.com/wiretidy/wiretidy/pkg/score"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultScale is the default PNG raster scale.
	DefaultScale = 1.0
)

// Format constants for snapshot formats.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
	FormatDOT = "dot"
)

// ValidFormats is the set of supported snapshot formats.
var ValidFormats = map[string]bool{
	FormatSVG: true,
	FormatPNG: true,
	FormatDOT: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the re-layout pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Load options
	Source  string `json:"source"`
	Refresh bool   `json:"refresh,omitempty"`

	// Optimize options
	Params engine.Params `json:"params"`

	// Write controls whether the optimized paths are written back to the
	// source file. Backup keeps the previous file contents aside first.
	Write  bool `json:"write,omitempty"`
	Backup bool `json:"backup,omitempty"`

	// Snapshot options
	Formats       []string `json:"formats,omitempty"`
	Scale         float64  `json:"scale,omitempty"`
	ShowPorts     bool     `json:"show_ports,omitempty"`
	MarkCrossings bool     `json:"mark_crossings,omitempty"`

	// Score options. ScoreBefore additionally renders the pre-optimization
	// diagram and asks for a comparative judgment.
	Score       bool `json:"score,omitempty"`
	ScoreBefore bool `json:"score_before,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// SubDiagram is the routed diagram.
	SubDiagram *diagram.SubDiagram

	// DiagramHash is the content hash of the source diagram file.
	DiagramHash string

	// Report is the engine's account of what the passes did.
	Report *engine.Report

	// Snapshots contains rendered outputs keyed by format.
	Snapshots map[string][]byte

	// Score is the visual evaluation, when scoring ran.
	Score *score.Result

	// Run is the persisted run record, when a store is configured.
	Run *report.Run

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	BlockCount   int
	WireCount    int
	OptimizeTime time.Duration
	SnapshotTime time.Duration
	ScoreTime    time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	OptimizeHit bool // Whether the routing result came from cache
	SnapshotHit bool // Whether all snapshots came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a snapshot format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: svg, png, dot)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the
// full pipeline. This method is idempotent - calling it multiple times has
// the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	o.SetSnapshotDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks required fields for loading a diagram.
func (o *Options) ValidateForLoad() error {
	if o.Source == "" {
		return fmt.Errorf("source is required")
	}

	// Optimize defaults
	o.Params = o.Params.Normalize()

	// Logger default
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	return nil
}

// SetSnapshotDefaults sets default values for snapshot rendering.
func (o *Options) SetSnapshotDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForSnapshot validates and sets defaults for snapshot rendering.
func (o *Options) ValidateForSnapshot() error {
	o.SetSnapshotDefaults()
	return ValidateFormats(o.Formats)
}

// ResultKeyOpts returns cache key options for the optimize stage.
func (o *Options) ResultKeyOpts() cache.ResultKeyOpts {
	return cache.ResultKeyOpts{
		BaseOffset:    o.Params.BaseOffset,
		MaxOffset:     o.Params.MaxOffset,
		CommonXOffset: o.Params.CommonXOffset,
		ScaleFactor:   o.Params.ScaleFactor,
		MinSpacing:    o.Params.MinSpacing,
		Tolerance:     o.Params.Tolerance,
		MaxIterations: o.Params.MaxIterations,
		Preserve:      o.Params.PreserveExistingWires,
	}
}

// SnapshotKeyOpts returns cache key options for one snapshot format.
func (o *Options) SnapshotKeyOpts(format string) cache.SnapshotKeyOpts {
	return cache.SnapshotKeyOpts{
		Format:    format,
		Scale:     o.Scale,
		Ports:     o.ShowPorts,
		Crossings: o.MarkCrossings,
	}
}
