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
	"github.com/wiretidy/wiretidy/pkg/snapshot"
)

// snapshotOpts holds the command-line flags for the snapshot command.
type snapshotOpts struct {
	output     string
	formatsStr string
	ports      bool
	crossings  bool
	scale      float64
	graph      bool // route through graphviz instead of the exact-geometry renderer
	noCache    bool
}

// newSnapshotCmd creates the snapshot command for rendering diagrams
// without optimizing them.
func newSnapshotCmd() *cobra.Command {
	opts := snapshotOpts{scale: pipeline.DefaultScale}

	cmd := &cobra.Command{
		Use:   "snapshot <diagram.json>",
		Short: "Render a diagram as SVG, PNG, or DOT",
		Long: `Render a diagram file as it is currently routed.

The default renderer draws exact geometry: every block rectangle and
wire path point from the file, with optional port markers and crossing
highlights. With --graph the diagram is instead laid out by graphviz
from its connectivity, which is useful for a quick topology sketch.

Examples:
  wiretidy snapshot plant.json                   # plant.svg
  wiretidy snapshot plant.json -f png --scale 2  # plant.png at 2x
  wiretidy snapshot plant.json --crossings       # highlight crossings
  wiretidy snapshot plant.json --graph -f png    # graphviz topology`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runSnapshot(c.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output base path (default: source without extension)")
	cmd.Flags().StringVarP(&opts.formatsStr, "format", "f", "", "output format(s): svg (default), png, dot (comma-separated)")
	cmd.Flags().BoolVar(&opts.ports, "ports", false, "draw port markers")
	cmd.Flags().BoolVar(&opts.crossings, "crossings", false, "highlight crossing wires")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "PNG raster scale")
	cmd.Flags().BoolVar(&opts.graph, "graph", false, "render connectivity through graphviz")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func runSnapshot(ctx context.Context, source string, opts *snapshotOpts) error {
	cfg := configFromContext(ctx)

	formats := parseFormats(opts.formatsStr)
	if err := pipeline.ValidateFormats(formats); err != nil {
		return err
	}

	base := opts.output
	if base == "" {
		base = strings.TrimSuffix(source, filepath.Ext(source))
	}

	if opts.graph {
		return runGraphSnapshot(ctx, source, base, formats)
	}

	runner, err := newRunner(ctx, cfg, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	sub, err := diagram.ReadFile(source)
	if err != nil {
		return err
	}

	snaps, cached, err := runner.SnapshotWithCacheInfo(ctx, sub, pipeline.Options{
		Source:        source,
		Formats:       formats,
		Scale:         opts.scale,
		ShowPorts:     opts.ports,
		MarkCrossings: opts.crossings,
	})
	if err != nil {
		return err
	}

	printSuccess("Rendered %s", source)
	printStats(sub.BlockCount(), sub.WireCount(), cached)
	return writeSnapshots(base, snaps)
}

// runGraphSnapshot renders the connectivity graph through graphviz.
// DOT output is the graph source itself; svg and png go through the
// graphviz engine.
func runGraphSnapshot(ctx context.Context, source, base string, formats []string) error {
	sub, err := diagram.ReadFile(source)
	if err != nil {
		return err
	}
	dot := snapshot.ToDOT(sub)

	snaps := make(map[string][]byte, len(formats))
	for _, format := range formats {
		switch format {
		case pipeline.FormatDOT:
			snaps[format] = []byte(dot)
		case pipeline.FormatSVG:
			data, err := snapshot.RenderGraphSVG(ctx, dot)
			if err != nil {
				return fmt.Errorf("graphviz svg: %w", err)
			}
			snaps[format] = data
		case pipeline.FormatPNG:
			data, err := snapshot.RenderGraphPNG(ctx, dot)
			if err != nil {
				return fmt.Errorf("graphviz png: %w", err)
			}
			snaps[format] = data
		}
	}

	printSuccess("Rendered %s (graphviz)", source)
	return writeSnapshots(base, snaps)
}

func writeSnapshots(base string, snaps map[string][]byte) error {
	for format, data := range snaps {
		path := base + "." + format
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		printFile(path)
	}
	return nil
}
