package diagram

import (
	"errors"
	"math"

	"github.com/wiretidy/wiretidy/pkg/geom"
)

var (
	// ErrInvalidBlockID is returned by [SubDiagram.AddBlock] when the block
	// ID is empty. All blocks must have non-empty identifiers.
	ErrInvalidBlockID = errors.New("block ID must not be empty")

	// ErrDuplicateBlockID is returned by [SubDiagram.AddBlock] when a block
	// with the same ID already exists. Block IDs must be unique.
	ErrDuplicateBlockID = errors.New("duplicate block ID")

	// ErrUnknownBlock is returned when a port reference names a block index
	// that does not exist or has been removed.
	ErrUnknownBlock = errors.New("unknown block")

	// ErrUnknownPort is returned when a port reference names an ordinal the
	// referenced block does not have.
	ErrUnknownPort = errors.New("unknown port ordinal")

	// ErrNoDestination is returned by [SubDiagram.AddWire] for wires with an
	// empty destination list. Every wire connects a source to at least one
	// destination.
	ErrNoDestination = errors.New("wire has no destination")

	// ErrShortPath is returned by [SubDiagram.SetPath] when the replacement
	// path has fewer than two points.
	ErrShortPath = errors.New("path must have at least two points")

	// ErrAnchorMoved is returned by [SubDiagram.SetPath] when the replacement
	// path's endpoints differ from the wire's current anchors. Anchors are
	// tied to port positions and must never be rewritten by routing passes.
	ErrAnchorMoved = errors.New("path endpoints must not move")
)

// anchorEps is the tolerance for comparing anchor coordinates in SetPath.
// Anchors are copied values, so any drift beyond float noise is a bug in
// the calling pass.
const anchorEps = 1e-6

// Direction tells whether a port consumes or produces a signal.
type Direction int

const (
	// In marks a destination (input) port.
	In Direction = iota
	// Out marks a source (output) port.
	Out
)

// Port is a fixed connection point on a block. Ordinals are 1-based and
// stable per block and direction: input 1 is always the same physical port
// across an optimization run.
type Port struct {
	Ordinal   int        `json:"ordinal" bson:"ordinal"`
	Position  geom.Point `json:"position" bson:"position"`
	Direction Direction  `json:"direction" bson:"direction"`
}

// Block is a rectangular diagram element with ordered input and output
// ports. Blocks are read-only to the routing engine: only wire paths are
// ever rewritten, never block geometry.
type Block struct {
	ID      string    `json:"id" bson:"id"`
	Bounds  geom.Rect `json:"bounds" bson:"bounds"`
	Inputs  []Port    `json:"inputs,omitempty" bson:"inputs,omitempty"`
	Outputs []Port    `json:"outputs,omitempty" bson:"outputs,omitempty"`

	// removed marks a tombstoned arena slot. Indices of live blocks never
	// shift, so wires referencing a removed block fail port resolution
	// instead of silently pointing at a different block.
	removed bool
}

// Center returns the block's geometric center.
func (b *Block) Center() geom.Point { return b.Bounds.Center() }

// PortRef addresses a port by arena block index and 1-based ordinal.
// Wires hold references, not live port pointers, so removing a block can
// never leave a dangling pointer — resolution just fails.
type PortRef struct {
	Block   int `json:"block" bson:"block"`
	Ordinal int `json:"ordinal" bson:"ordinal"`
}

// Wire connects one source port to one or more destination ports and owns
// its polyline path. Path[0] and Path[len-1] are the anchors: they equal
// the connected port positions and are never altered by routing passes.
type Wire struct {
	From PortRef      `json:"from" bson:"from"`
	To   []PortRef    `json:"to" bson:"to"`
	Path []geom.Point `json:"path" bson:"path"`
}

// Segments returns the number of segments in the wire's path.
func (w *Wire) Segments() int {
	if len(w.Path) < 2 {
		return 0
	}
	return len(w.Path) - 1
}

// SubDiagram is an arena of blocks and wires at one level of diagram
// nesting. Blocks and wires are addressed by stable integer indices; the
// engine never recurses into nested diagrams (the orchestrator drives
// recursion one sub-diagram at a time).
//
// SubDiagram is not safe for concurrent mutation. Independent SubDiagrams
// may be optimized in parallel as long as no collections are shared.
type SubDiagram struct {
	ID string

	blocks  []Block
	wires   []Wire
	blockID map[string]int
}

// New creates an empty sub-diagram with the given identity. The identity
// keys layout-analysis memoization, so it should be unique per diagram
// level (e.g. the diagram path of the subsystem).
func New(id string) *SubDiagram {
	return &SubDiagram{
		ID:      id,
		blockID: make(map[string]int),
	}
}

// AddBlock appends a block to the arena and returns its index.
// Returns ErrInvalidBlockID for empty IDs and ErrDuplicateBlockID when the
// ID is already in use.
func (s *SubDiagram) AddBlock(b Block) (int, error) {
	if b.ID == "" {
		return 0, ErrInvalidBlockID
	}
	if _, exists := s.blockID[b.ID]; exists {
		return 0, ErrDuplicateBlockID
	}
	idx := len(s.blocks)
	s.blocks = append(s.blocks, b)
	s.blockID[b.ID] = idx
	return idx, nil
}

// RemoveBlock tombstones the block at idx. The slot keeps its index so
// other block indices remain valid; wires referencing the removed block
// fail resolution and are skipped by analysis passes.
func (s *SubDiagram) RemoveBlock(idx int) error {
	if idx < 0 || idx >= len(s.blocks) || s.blocks[idx].removed {
		return ErrUnknownBlock
	}
	delete(s.blockID, s.blocks[idx].ID)
	s.blocks[idx].removed = true
	return nil
}

// AddWire appends a wire to the arena and returns its index.
// The source and destination references must resolve against blocks
// already in the arena; wires cannot be added ahead of their blocks.
func (s *SubDiagram) AddWire(w Wire) (int, error) {
	if len(w.To) == 0 {
		return 0, ErrNoDestination
	}
	if _, err := s.ResolvePort(w.From); err != nil {
		return 0, err
	}
	for _, ref := range w.To {
		if _, err := s.ResolvePort(ref); err != nil {
			return 0, err
		}
	}
	idx := len(s.wires)
	s.wires = append(s.wires, w)
	return idx, nil
}

// Block returns the block at idx, or an error if the index is out of
// range or the block was removed.
func (s *SubDiagram) Block(idx int) (*Block, error) {
	if idx < 0 || idx >= len(s.blocks) || s.blocks[idx].removed {
		return nil, ErrUnknownBlock
	}
	return &s.blocks[idx], nil
}

// BlockByID returns the index of the block with the given ID.
func (s *SubDiagram) BlockByID(id string) (int, bool) {
	idx, ok := s.blockID[id]
	return idx, ok
}

// BlockCount returns the number of live (non-removed) blocks.
func (s *SubDiagram) BlockCount() int {
	n := 0
	for i := range s.blocks {
		if !s.blocks[i].removed {
			n++
		}
	}
	return n
}

// Blocks calls fn for each live block with its arena index.
func (s *SubDiagram) Blocks(fn func(idx int, b *Block)) {
	for i := range s.blocks {
		if !s.blocks[i].removed {
			fn(i, &s.blocks[i])
		}
	}
}

// Wire returns the wire at idx. Wires are never removed, so any index
// returned by AddWire stays valid for the arena's lifetime.
func (s *SubDiagram) Wire(idx int) (*Wire, error) {
	if idx < 0 || idx >= len(s.wires) {
		return nil, errors.New("wire index out of range")
	}
	return &s.wires[idx], nil
}

// WireCount returns the number of wires in the arena.
func (s *SubDiagram) WireCount() int { return len(s.wires) }

// ResolvePort looks up the port a reference names. Direction is inferred
// from which port list contains the ordinal: outputs are searched first
// for source-style refs, then inputs. Returns ErrUnknownBlock or
// ErrUnknownPort if the reference cannot be resolved.
func (s *SubDiagram) ResolvePort(ref PortRef) (Port, error) {
	b, err := s.Block(ref.Block)
	if err != nil {
		return Port{}, err
	}
	for _, p := range b.Outputs {
		if p.Ordinal == ref.Ordinal && p.Direction == Out {
			return p, nil
		}
	}
	for _, p := range b.Inputs {
		if p.Ordinal == ref.Ordinal && p.Direction == In {
			return p, nil
		}
	}
	return Port{}, ErrUnknownPort
}

// InputPort resolves ref against the block's input ports only.
func (s *SubDiagram) InputPort(ref PortRef) (Port, error) {
	b, err := s.Block(ref.Block)
	if err != nil {
		return Port{}, err
	}
	for _, p := range b.Inputs {
		if p.Ordinal == ref.Ordinal {
			return p, nil
		}
	}
	return Port{}, ErrUnknownPort
}

// OutputPort resolves ref against the block's output ports only.
func (s *SubDiagram) OutputPort(ref PortRef) (Port, error) {
	b, err := s.Block(ref.Block)
	if err != nil {
		return Port{}, err
	}
	for _, p := range b.Outputs {
		if p.Ordinal == ref.Ordinal {
			return p, nil
		}
	}
	return Port{}, ErrUnknownPort
}

// SetPath replaces the wire's path, enforcing the anchor invariant: the
// new path must start and end exactly where the old one did. A violation
// is a defect in the calling pass, so it is reported as ErrAnchorMoved
// and the original path is kept untouched.
func (s *SubDiagram) SetPath(wireIdx int, path []geom.Point) error {
	w, err := s.Wire(wireIdx)
	if err != nil {
		return err
	}
	if len(path) < 2 {
		return ErrShortPath
	}
	if len(w.Path) >= 2 {
		if !samePoint(path[0], w.Path[0]) || !samePoint(path[len(path)-1], w.Path[len(w.Path)-1]) {
			return ErrAnchorMoved
		}
	}
	w.Path = path
	return nil
}

// ResetPath installs a fresh path without the anchor check. This is the
// host auto-route escape hatch used when preserve mode is off: the new
// anchors must still equal the connected port positions, which the caller
// establishes by construction.
func (s *SubDiagram) ResetPath(wireIdx int, path []geom.Point) error {
	w, err := s.Wire(wireIdx)
	if err != nil {
		return err
	}
	if len(path) < 2 {
		return ErrShortPath
	}
	w.Path = path
	return nil
}

// Bounds returns the bounding rectangle of all live blocks and wire
// points. An empty sub-diagram yields the zero rect.
func (s *SubDiagram) Bounds() geom.Rect {
	var r geom.Rect
	first := true
	s.Blocks(func(_ int, b *Block) {
		if first {
			r = b.Bounds
			first = false
			return
		}
		r = r.Union(b.Bounds)
	})
	for i := range s.wires {
		pb := geom.PathBounds(s.wires[i].Path)
		if len(s.wires[i].Path) == 0 {
			continue
		}
		if first {
			r = pb
			first = false
			continue
		}
		r = r.Union(pb)
	}
	return r
}

func samePoint(a, b geom.Point) bool {
	return math.Abs(a.X-b.X) < anchorEps && math.Abs(a.Y-b.Y) < anchorEps
}
