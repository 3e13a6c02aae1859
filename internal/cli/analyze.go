package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wiretidy/wiretidy/pkg/diagram"
	"github.com/wiretidy/wiretidy/pkg/layout"
	"github.com/wiretidy/wiretidy/pkg/route"
)

// newAnalyzeCmd creates the analyze command. It reports routing quality
// without modifying the diagram, so it is safe to run anywhere.
func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <diagram.json>",
		Short: "Report routing quality without changing anything",
		Long: `Analyze the wire routing of a diagram file.

Reports the detected signal flow direction, block layering, wire
quality metrics, and crossing counts. The file is never modified.`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runAnalyze(c.Context(), args[0])
		},
	}
}

func runAnalyze(ctx context.Context, source string) error {
	cfg := configFromContext(ctx)

	sub, err := diagram.ReadFile(source)
	if err != nil {
		return err
	}

	info := layout.New(cfg.Params.Tolerance).Analyze(sub)
	crossings := route.CountCrossings(sub, nil)
	m := info.Metrics

	printSuccess("Analyzed %s", source)
	printStats(info.BlockCount, info.WireCount, false)
	printKeyValue("Flow", info.Flow.String())
	printKeyValue("Layers", fmt.Sprintf("%d", len(info.Layers)))
	printKeyValue("Score", fmt.Sprintf("%.1f/100", m.Score))
	printKeyValue("Straight", fmt.Sprintf("%d/%d wires (%.0f%%)", m.StraightWires, m.TotalWires, m.StraightRatio))
	printKeyValue("Segments", fmt.Sprintf("%.1f avg, %d total", m.AvgSegments, m.TotalSegments))
	printKeyValue("Length", fmt.Sprintf("%.0f units", m.TotalLength))
	if m.ComplexWires > 0 {
		printKeyValue("Complex", fmt.Sprintf("%d wires", m.ComplexWires))
	}
	printKeyValue("Crossings", fmt.Sprintf("%d", crossings.Exact))
	if info.Skipped > 0 {
		printWarning("%d wires skipped (unresolvable ports)", info.Skipped)
	}

	printNewline()
	printNextStep("Route the wires", fmt.Sprintf("wiretidy optimize %s", source))
	return nil
}
