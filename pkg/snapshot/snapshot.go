// Package snapshot renders a routed sub-diagram to SVG and PNG.
//
// Two renderers are provided. [RenderSVG] draws the exact geometry —
// block rectangles, port dots, and the routed wire polylines — and is
// what the scoring pipeline feeds to the vision model. [ToDOT] plus
// [RenderGraphSVG] produce a structural Graphviz view with pinned block
// positions, useful for eyeballing connectivity without the routing.
package snapshot

import (
	"bytes"
	"fmt"

	"github.com/wiretidy/wiretidy/pkg/diagram"
	"github.com/wiretidy/wiretidy/pkg/geom"
	"github.com/wiretidy/wiretidy/pkg/route"
)

const (
	padding    = 20.0
	portRadius = 3.0
)

// SVGOption configures geometry rendering.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	showPorts      bool
	markCrossings  bool
	wireColor      string
	crossingColor  string
	blockFill      string
	blockStroke    string
	backgroundFill string
}

// WithPorts draws a dot at every port position.
func WithPorts() SVGOption { return func(r *svgRenderer) { r.showPorts = true } }

// WithCrossings colors wires that participate in an exact crossing, so
// a reviewer can spot the pairs the resolver left behind.
func WithCrossings() SVGOption { return func(r *svgRenderer) { r.markCrossings = true } }

func newSVGRenderer(opts ...SVGOption) svgRenderer {
	r := svgRenderer{
		wireColor:      "#1a1a1a",
		crossingColor:  "#cc2222",
		blockFill:      "#f5f5f0",
		blockStroke:    "#333333",
		backgroundFill: "white",
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// RenderSVG draws the sub-diagram's exact geometry as SVG.
func RenderSVG(sub *diagram.SubDiagram, opts ...SVGOption) []byte {
	r := newSVGRenderer(opts...)

	bounds := sub.Bounds()
	minX := bounds.Left - padding
	minY := bounds.Top - padding
	width := bounds.Width() + 2*padding
	height := bounds.Height() + 2*padding
	if width <= 2*padding {
		width, height = 2*padding, 2*padding
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%.1f %.1f %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		minX, minY, width, height, width, height)
	fmt.Fprintf(&buf, `  <rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>`+"\n",
		minX, minY, width, height, r.backgroundFill)

	crossing := map[int]bool{}
	if r.markCrossings {
		for _, pair := range route.FindCrossingPairs(sub, nil) {
			crossing[pair.A] = true
			crossing[pair.B] = true
		}
	}

	// Wires under blocks, so anchors visually terminate at block edges.
	for wi := 0; wi < sub.WireCount(); wi++ {
		w, _ := sub.Wire(wi)
		if len(w.Path) < 2 {
			continue
		}
		color := r.wireColor
		if crossing[wi] {
			color = r.crossingColor
		}
		fmt.Fprintf(&buf, `  <polyline points="%s" fill="none" stroke="%s" stroke-width="1.5"/>`+"\n",
			polylinePoints(w.Path), color)
	}

	sub.Blocks(func(idx int, b *diagram.Block) {
		fmt.Fprintf(&buf, `  <rect id="block-%d" x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" stroke="%s" stroke-width="1.5" rx="2"/>`+"\n",
			idx, b.Bounds.Left, b.Bounds.Top, b.Bounds.Width(), b.Bounds.Height(), r.blockFill, r.blockStroke)
		center := b.Center()
		fmt.Fprintf(&buf, `  <text x="%.1f" y="%.1f" text-anchor="middle" dominant-baseline="middle" font-family="sans-serif" font-size="11">%s</text>`+"\n",
			center.X, center.Y, escapeText(b.ID))

		if r.showPorts {
			for _, p := range b.Inputs {
				writePort(&buf, p.Position, "#2266cc")
			}
			for _, p := range b.Outputs {
				writePort(&buf, p.Position, "#22aa55")
			}
		}
	})

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func writePort(buf *bytes.Buffer, pos geom.Point, color string) {
	fmt.Fprintf(buf, `  <circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>`+"\n",
		pos.X, pos.Y, portRadius, color)
}

func polylinePoints(path []geom.Point) string {
	var b bytes.Buffer
	for i, p := range path {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.1f,%.1f", p.X, p.Y)
	}
	return b.String()
}

func escapeText(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		switch r {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '&':
			b.WriteString("&amp;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
