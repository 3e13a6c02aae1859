package snapshot

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"

	"github.com/wiretidy/wiretidy/pkg/diagram"
)

// dotScale maps diagram units to Graphviz points. Diagram coordinates
// are roughly pixel-sized; neato positions are in inches at 72 dpi.
const dotScale = 1.0 / 72.0

// ToDOT converts a sub-diagram to Graphviz DOT for the structural view.
// Block positions are pinned (neato layout) so the picture keeps the
// diagram's spatial arrangement; wires become plain edges, one per
// destination. The Y axis is flipped because diagram coordinates grow
// downward and Graphviz coordinates grow upward.
func ToDOT(sub *diagram.SubDiagram) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  splines=line;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("\n")

	sub.Blocks(func(idx int, b *diagram.Block) {
		center := b.Center()
		fmt.Fprintf(&buf, "  %q [pos=\"%.3f,%.3f!\", width=%.3f, height=%.3f];\n",
			b.ID,
			center.X*dotScale, -center.Y*dotScale,
			b.Bounds.Width()*dotScale, b.Bounds.Height()*dotScale)
	})

	buf.WriteString("\n")
	conn := sub.Connections()
	for _, e := range conn.Edges {
		from, errF := sub.Block(e.From)
		to, errT := sub.Block(e.To)
		if errF != nil || errT != nil {
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q;\n", from.ID, to.ID)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderGraphSVG renders a DOT graph to SVG using Graphviz.
func RenderGraphSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderGraphPNG renders a DOT graph to PNG using Graphviz.
func RenderGraphPNG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
