package diagram

// ConnEdge is one resolved block-to-block connection carried by a wire.
// A fan-out wire contributes one edge per resolvable destination.
type ConnEdge struct {
	From int // source block index
	To   int // destination block index
	Wire int // wire index carrying the connection
}

// ConnectionGraph is the block connectivity derived from the wire set.
// It is ephemeral: built fresh by [SubDiagram.Connections] for each
// analysis call and never persisted or cached.
type ConnectionGraph struct {
	Edges []ConnEdge

	// Skipped counts wires (or wire branches) whose source or destination
	// port could not be resolved. Unresolvable wires are dropped from the
	// graph, never treated as an error for the whole pass.
	Skipped int
}

// Outgoing returns the edges leaving the given block.
func (g *ConnectionGraph) Outgoing(block int) []ConnEdge {
	var out []ConnEdge
	for _, e := range g.Edges {
		if e.From == block {
			out = append(out, e)
		}
	}
	return out
}

// Incoming returns the edges arriving at the given block.
func (g *ConnectionGraph) Incoming(block int) []ConnEdge {
	var in []ConnEdge
	for _, e := range g.Edges {
		if e.To == block {
			in = append(in, e)
		}
	}
	return in
}

// Connections builds the block connection graph from the current wire
// set. Wires whose source port cannot be resolved are skipped entirely;
// fan-out branches with an unresolvable destination are skipped
// individually while the wire's remaining branches still contribute.
func (s *SubDiagram) Connections() *ConnectionGraph {
	g := &ConnectionGraph{}
	for wi := range s.wires {
		w := &s.wires[wi]
		if _, err := s.OutputPort(w.From); err != nil {
			g.Skipped++
			continue
		}
		for _, dst := range w.To {
			if _, err := s.InputPort(dst); err != nil {
				g.Skipped++
				continue
			}
			g.Edges = append(g.Edges, ConnEdge{From: w.From.Block, To: dst.Block, Wire: wi})
		}
	}
	return g
}
