package graph

// Merge returns the union of graphs, applied in argument order.
// Union is not symmetric: when two graphs carry the same node ID, the later
// graph's label and attributes win (last writer wins). Edges are a set union.
func Merge(graphs ...*Graph) (*Graph, error) {
	merged := New()
	for _, g := range graphs {
		if err := merged.Absorb(g); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// Absorb adds every node and edge of other into g
func (g *Graph) Absorb(other *Graph) error {
	if other == nil {
		return nil
	}
	for _, id := range other.order {
		if err := g.AddNode(*other.nodes[id]); err != nil {
			return err
		}
	}
	for _, e := range other.edges {
		if err := g.AddEdge(e.Source, e.Target, e.Relation); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of g
func (g *Graph) Clone() *Graph {
	cp := New()
	// cannot fail: g only ever holds validated nodes and edges
	_ = cp.Absorb(g)
	return cp
}
