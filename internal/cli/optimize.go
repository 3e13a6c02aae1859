package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wiretidy/wiretidy/pkg/diagram"
	"github.com/wiretidy/wiretidy/pkg/pipeline"
)

// optimizeOpts holds the command-line flags for the optimize command.
// These options control routing parameters, output targets, and caching.
type optimizeOpts struct {
	output      string // routed diagram output path (in-place with --write if empty)
	write       bool   // write routed paths back to the source file
	backup      bool   // keep a backup of the source before writing
	formatsStr  string // comma-separated snapshot formats
	snapshotOut string // snapshot base path (defaults to source without extension)
	ports       bool   // draw port markers in snapshots
	crossings   bool   // highlight crossing wires in snapshots
	scale       float64
	scoreIt     bool // evaluate the result with the vision scorer
	compare     bool // score against a before-snapshot
	reroute     bool // discard existing paths and route from scratch
	iterations  int  // crossing cleanup iterations (0 = config value)
	refresh     bool // bypass the result cache
	noCache     bool // disable caching entirely
}

// newOptimizeCmd creates the optimize command, the main entry point of
// the tool. It routes a diagram file through the full pipeline and
// reports what changed.
//
// Default behavior is a dry run: nothing is written unless --write or
// --output is given.
func newOptimizeCmd() *cobra.Command {
	opts := optimizeOpts{backup: true, scale: pipeline.DefaultScale}

	cmd := &cobra.Command{
		Use:   "optimize <diagram.json>",
		Short: "Re-route the wires of a diagram file",
		Long: `Re-route the wires of a block-diagram file.

The blocks never move: only wire paths change, and every wire keeps its
exact port anchor points. By default this is a dry run that reports what
would change; use --write to update the file in place (a timestamped
backup is kept) or --output to write the routed diagram elsewhere.

Examples:
  wiretidy optimize plant.json                   # Dry run with report
  wiretidy optimize plant.json --write           # Update in place
  wiretidy optimize plant.json -o routed.json    # Write elsewhere
  wiretidy optimize plant.json -f svg,png        # Also render snapshots
  wiretidy optimize plant.json --score --compare # Judge the improvement`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runOptimize(c.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the routed diagram to this path")
	cmd.Flags().BoolVar(&opts.write, "write", false, "write routed paths back to the source file")
	cmd.Flags().BoolVar(&opts.backup, "backup", opts.backup, "keep a backup before overwriting the source")
	cmd.Flags().StringVarP(&opts.formatsStr, "format", "f", "", "snapshot format(s): svg, png, dot (comma-separated)")
	cmd.Flags().StringVar(&opts.snapshotOut, "snapshot-out", "", "snapshot base path (default: source without extension)")
	cmd.Flags().BoolVar(&opts.ports, "ports", false, "draw port markers in snapshots")
	cmd.Flags().BoolVar(&opts.crossings, "crossings", false, "highlight crossing wires in snapshots")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "PNG raster scale")
	cmd.Flags().BoolVar(&opts.scoreIt, "score", false, "evaluate the result with the vision scorer")
	cmd.Flags().BoolVar(&opts.compare, "compare", false, "score the before/after improvement (implies --score)")
	cmd.Flags().BoolVar(&opts.reroute, "reroute", false, "discard existing paths and route from scratch")
	cmd.Flags().IntVar(&opts.iterations, "iterations", 0, "crossing cleanup iterations (default from config)")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the result cache")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

// runOptimize executes the pipeline and reports the outcome.
func runOptimize(ctx context.Context, source string, opts *optimizeOpts) error {
	cfg := configFromContext(ctx)
	logger := loggerFromContext(ctx)

	runner, err := newRunner(ctx, cfg, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	params := cfg.Params
	if opts.reroute {
		params.PreserveExistingWires = false
	}
	if opts.iterations > 0 {
		params.MaxIterations = opts.iterations
	}

	pipeOpts := pipeline.Options{
		Source:        source,
		Params:        params,
		Refresh:       opts.refresh,
		Write:         opts.write,
		Backup:        opts.backup,
		ShowPorts:     opts.ports,
		MarkCrossings: opts.crossings,
		Scale:         opts.scale,
		Score:         opts.scoreIt || opts.compare,
		ScoreBefore:   opts.compare,
		Logger:        logger,
	}
	if opts.formatsStr != "" {
		pipeOpts.Formats = parseFormats(opts.formatsStr)
	}
	if pipeOpts.Score && runner.Scorer == nil {
		printWarning("No API key configured; skipping scoring (set OPENAI_API_KEY or [score] api_key)")
		pipeOpts.Score = false
	}

	prog := newProgress(logger)
	result, err := runner.Execute(ctx, pipeOpts)
	if err != nil {
		return err
	}
	rep := result.Report
	prog.done(fmt.Sprintf("Routed %d wires", rep.Before.TotalWires))

	printSuccess("Optimized %s", source)
	printStats(result.Stats.BlockCount, result.Stats.WireCount, result.CacheInfo.OptimizeHit)
	printKeyValue("Flow", rep.Flow)
	printKeyValue("Score", fmt.Sprintf("%.1f → %.1f (%+.1f)", rep.Before.Score, rep.After.Score, rep.Improvement()))
	printKeyValue("Bundles", fmt.Sprintf("%d groups, %d wires", rep.BundleGroups, rep.BundledWires))
	if rep.Canonicalized > 0 {
		printKeyValue("Tidied", fmt.Sprintf("%d wires", rep.Canonicalized))
	}
	if rep.Rerouted > 0 {
		printKeyValue("Rerouted", fmt.Sprintf("%d wires", rep.Rerouted))
	}
	if rep.CrossingsFound > 0 {
		printKeyValue("Crossings", fmt.Sprintf("%d found, %d resolved, %d deferred",
			rep.CrossingsFound, rep.CrossingsResolved, rep.CrossingsDeferred))
	}
	if rep.Skipped > 0 {
		printWarning("%d wires skipped (unresolvable ports)", rep.Skipped)
	}
	if rep.AnchorWarnings > 0 {
		printWarning("%d anchor violations rejected", rep.AnchorWarnings)
	}
	if result.Score != nil {
		printKeyValue("Visual", fmt.Sprintf("%d/100 (%s)", result.Score.Score, result.Score.Mode))
	}

	if opts.output != "" {
		if err := diagram.WriteFile(opts.output, result.SubDiagram, false); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		printFile(opts.output)
	}

	if len(result.Snapshots) > 0 {
		base := opts.snapshotOut
		if base == "" {
			base = strings.TrimSuffix(source, filepath.Ext(source))
		}
		for format, data := range result.Snapshots {
			path := base + "." + format
			if err := os.WriteFile(path, data, 0644); err != nil {
				return fmt.Errorf("write snapshot: %w", err)
			}
			printFile(path)
		}
	}

	if !opts.write && opts.output == "" {
		printNewline()
		printNextStep("Apply the routing", fmt.Sprintf("wiretidy optimize %s --write", source))
	}

	return nil
}
