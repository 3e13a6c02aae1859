package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/wiretidy/wiretidy/pkg/diagram"
	"github.com/wiretidy/wiretidy/pkg/geom"
)

// testContext builds a command context with a quiet logger and a config
// whose cache and history live under temp directories.
func testContext(t *testing.T) context.Context {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Cache.Dir = filepath.Join(t.TempDir(), "cache")
	cfg.History.Dir = filepath.Join(t.TempDir(), "runs")

	ctx := withLogger(context.Background(), log.NewWithOptions(io.Discard, log.Options{}))
	return withConfig(ctx, cfg)
}

// writeTestDiagram creates a diagram file with one wandering wire.
func writeTestDiagram(t *testing.T) string {
	t.Helper()
	s := diagram.New("plant")
	if _, err := s.AddBlock(diagram.Block{
		ID:      "gain",
		Bounds:  geom.Rect{Left: 0, Top: 0, Right: 40, Bottom: 40},
		Outputs: []diagram.Port{{Ordinal: 1, Position: geom.Point{X: 40, Y: 20}, Direction: diagram.Out}},
	}); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if _, err := s.AddBlock(diagram.Block{
		ID:     "scope",
		Bounds: geom.Rect{Left: 200, Top: 0, Right: 240, Bottom: 40},
		Inputs: []diagram.Port{{Ordinal: 1, Position: geom.Point{X: 200, Y: 20}, Direction: diagram.In}},
	}); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if _, err := s.AddWire(diagram.Wire{
		From: diagram.PortRef{Block: 0, Ordinal: 1},
		To:   []diagram.PortRef{{Block: 1, Ordinal: 1}},
		Path: []geom.Point{{X: 40, Y: 20}, {X: 100, Y: 20}, {X: 100, Y: 60}, {X: 160, Y: 60}, {X: 160, Y: 20}, {X: 200, Y: 20}},
	}); err != nil {
		t.Fatalf("AddWire: %v", err)
	}

	path := filepath.Join(t.TempDir(), "plant.json")
	if err := diagram.WriteFile(path, s, false); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestRunOptimize_DryRun(t *testing.T) {
	ctx := testContext(t)
	source := writeTestDiagram(t)

	opts := optimizeOpts{backup: true, scale: 1}
	if err := runOptimize(ctx, source, &opts); err != nil {
		t.Fatalf("runOptimize: %v", err)
	}

	// Dry run: the source keeps its wandering path.
	sub, err := diagram.ReadFile(source)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	w, _ := sub.Wire(0)
	if len(w.Path) != 6 {
		t.Errorf("dry run modified the source: %v", w.Path)
	}
}

func TestRunOptimize_Output(t *testing.T) {
	ctx := testContext(t)
	source := writeTestDiagram(t)
	out := filepath.Join(t.TempDir(), "routed.json")

	opts := optimizeOpts{output: out, backup: true, scale: 1}
	if err := runOptimize(ctx, source, &opts); err != nil {
		t.Fatalf("runOptimize: %v", err)
	}

	sub, err := diagram.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	w, _ := sub.Wire(0)
	if len(w.Path) != 2 {
		t.Errorf("routed path = %v, want straightened 2 points", w.Path)
	}
}

func TestRunOptimize_MissingFile(t *testing.T) {
	ctx := testContext(t)
	opts := optimizeOpts{backup: true, scale: 1}
	if err := runOptimize(ctx, filepath.Join(t.TempDir(), "nope.json"), &opts); err == nil {
		t.Error("missing source should fail")
	}
}

func TestRunAnalyze(t *testing.T) {
	ctx := testContext(t)
	source := writeTestDiagram(t)

	if err := runAnalyze(ctx, source); err != nil {
		t.Fatalf("runAnalyze: %v", err)
	}

	// Analyze never modifies the file.
	sub, err := diagram.ReadFile(source)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	w, _ := sub.Wire(0)
	if len(w.Path) != 6 {
		t.Errorf("analyze modified the source: %v", w.Path)
	}
}

func TestRunSnapshot(t *testing.T) {
	ctx := testContext(t)
	source := writeTestDiagram(t)
	base := filepath.Join(t.TempDir(), "snap")

	opts := snapshotOpts{output: base, formatsStr: "svg,dot", scale: 1}
	if err := runSnapshot(ctx, source, &opts); err != nil {
		t.Fatalf("runSnapshot: %v", err)
	}

	for _, ext := range []string{".svg", ".dot"} {
		if _, err := os.Stat(base + ext); err != nil {
			t.Errorf("snapshot %s not written: %v", ext, err)
		}
	}
}

func TestRunSnapshot_BadFormat(t *testing.T) {
	ctx := testContext(t)
	opts := snapshotOpts{formatsStr: "bmp", scale: 1}
	if err := runSnapshot(ctx, writeTestDiagram(t), &opts); err == nil {
		t.Error("invalid format should fail")
	}
}
