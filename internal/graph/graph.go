// Package graph holds the typed multi-relational graph every builder produces
// and the traversal primitives the reasoning layer walks.
//
// Node identity is the ID string. Adding a node that already exists merges
// attributes with last-writer-wins semantics, so the union of two graphs is
// simply adding one into the other.
package graph

import (
	"sort"

	"github.com/ppiankov/panelgraph/internal/errors"
)

// Node is a typed, labelled vertex with optional string attributes
type Node struct {
	ID    string
	Type  NodeType
	Label string
	Attrs map[string]string
}

// Attr returns an attribute value, or "" if unset
func (n Node) Attr(key string) string {
	return n.Attrs[key]
}

// Edge is a directed, relation-labelled edge. Identity is the whole triple.
type Edge struct {
	Source   string
	Target   string
	Relation Relation
}

// Graph is a directed multigraph keyed by node ID.
// Not safe for concurrent mutation; graphs are built once then read.
type Graph struct {
	nodes   map[string]*Node
	order   []string
	edges   []Edge
	edgeSet map[Edge]struct{}
	out     map[string][]int
	in      map[string][]int
}

// New creates an empty graph
func New() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		edgeSet: make(map[Edge]struct{}),
		out:     make(map[string][]int),
		in:      make(map[string][]int),
	}
}

// AddNode inserts n, or merges it into the existing node with the same ID.
// On merge, label and attributes from n win, except that a placeholder type
// never replaces a concrete one.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return errors.Wrap(errors.ErrMalformedInput, "node with empty id")
	}
	if !n.Type.Valid() {
		return errors.Wrapf(errors.ErrUnknownNodeType, "node %q: %q", n.ID, n.Type)
	}
	if n.Label == "" {
		n.Label = n.ID
	}

	existing, ok := g.nodes[n.ID]
	if !ok {
		stored := n
		stored.Attrs = copyAttrs(n.Attrs)
		g.nodes[n.ID] = &stored
		g.order = append(g.order, n.ID)
		return nil
	}

	if n.Type.Placeholder() && !existing.Type.Placeholder() {
		// keep the concrete node, only fold in attributes
		for k, v := range n.Attrs {
			if _, set := existing.Attrs[k]; !set {
				existing.Attrs = setAttr(existing.Attrs, k, v)
			}
		}
		return nil
	}

	existing.Type = n.Type
	existing.Label = n.Label
	for k, v := range n.Attrs {
		existing.Attrs = setAttr(existing.Attrs, k, v)
	}
	return nil
}

// AddEdge adds src --rel--> tgt. Both endpoints must already exist.
// Adding the same triple twice is a no-op.
func (g *Graph) AddEdge(src, tgt string, rel Relation) error {
	if !rel.Valid() {
		return errors.Wrapf(errors.ErrUnknownRelation, "edge %s -> %s: %q", src, tgt, rel)
	}
	if _, ok := g.nodes[src]; !ok {
		return errors.Wrapf(errors.ErrDanglingEdge, "source %q of %s edge", src, rel)
	}
	if _, ok := g.nodes[tgt]; !ok {
		return errors.Wrapf(errors.ErrDanglingEdge, "target %q of %s edge", tgt, rel)
	}

	e := Edge{Source: src, Target: tgt, Relation: rel}
	if _, dup := g.edgeSet[e]; dup {
		return nil
	}
	g.edgeSet[e] = struct{}{}
	idx := len(g.edges)
	g.edges = append(g.edges, e)
	g.out[src] = append(g.out[src], idx)
	g.in[tgt] = append(g.in[tgt], idx)
	return nil
}

// Node returns a copy of the node with the given ID
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	cp := *n
	cp.Attrs = copyAttrs(n.Attrs)
	return cp, true
}

// HasNode reports whether id exists
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// TypeOf returns the type of id, or "" if absent
func (g *Graph) TypeOf(id string) NodeType {
	if n, ok := g.nodes[id]; ok {
		return n.Type
	}
	return ""
}

// LabelOf returns the label of id, or "" if absent
func (g *Graph) LabelOf(id string) string {
	if n, ok := g.nodes[id]; ok {
		return n.Label
	}
	return ""
}

// HasEdge reports whether the exact triple exists
func (g *Graph) HasEdge(src, tgt string, rel Relation) bool {
	_, ok := g.edgeSet[Edge{Source: src, Target: tgt, Relation: rel}]
	return ok
}

// Successors returns targets of id's outgoing rel edges, in insertion order.
// An empty typ matches any node type.
func (g *Graph) Successors(id string, rel Relation, typ NodeType) []string {
	var result []string
	for _, idx := range g.out[id] {
		e := g.edges[idx]
		if e.Relation != rel {
			continue
		}
		if typ != "" && g.nodes[e.Target].Type != typ {
			continue
		}
		result = append(result, e.Target)
	}
	return result
}

// Predecessors returns sources of id's incoming rel edges, in insertion order.
// An empty typ matches any node type.
func (g *Graph) Predecessors(id string, rel Relation, typ NodeType) []string {
	var result []string
	for _, idx := range g.in[id] {
		e := g.edges[idx]
		if e.Relation != rel {
			continue
		}
		if typ != "" && g.nodes[e.Source].Type != typ {
			continue
		}
		result = append(result, e.Source)
	}
	return result
}

// OutEdges returns id's outgoing edges
func (g *Graph) OutEdges(id string) []Edge {
	result := make([]Edge, 0, len(g.out[id]))
	for _, idx := range g.out[id] {
		result = append(result, g.edges[idx])
	}
	return result
}

// InEdges returns id's incoming edges
func (g *Graph) InEdges(id string) []Edge {
	result := make([]Edge, 0, len(g.in[id]))
	for _, idx := range g.in[id] {
		result = append(result, g.edges[idx])
	}
	return result
}

// Nodes returns copies of all nodes in insertion order
func (g *Graph) Nodes() []Node {
	result := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		n, _ := g.Node(id)
		result = append(result, n)
	}
	return result
}

// NodeIDs returns all node IDs in insertion order
func (g *Graph) NodeIDs() []string {
	return append([]string(nil), g.order...)
}

// NodesOfType returns IDs of nodes with the given type, in insertion order
func (g *Graph) NodesOfType(typ NodeType) []string {
	var result []string
	for _, id := range g.order {
		if g.nodes[id].Type == typ {
			result = append(result, id)
		}
	}
	return result
}

// Edges returns all edges in insertion order
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// EdgesOf returns every edge carrying rel
func (g *Graph) EdgesOf(rel Relation) []Edge {
	var result []Edge
	for _, e := range g.edges {
		if e.Relation == rel {
			result = append(result, e)
		}
	}
	return result
}

// NodeCount returns the number of nodes
func (g *Graph) NodeCount() int {
	return len(g.order)
}

// EdgeCount returns the number of edges
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// CountByType tallies nodes per type, for logging and reports
func (g *Graph) CountByType() map[NodeType]int {
	counts := make(map[NodeType]int)
	for _, n := range g.nodes {
		counts[n.Type]++
	}
	return counts
}

// SortedEdges returns edges ordered by (source, relation, target), handy for comparisons
func (g *Graph) SortedEdges() []Edge {
	edges := g.Edges()
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		if edges[i].Relation != edges[j].Relation {
			return edges[i].Relation < edges[j].Relation
		}
		return edges[i].Target < edges[j].Target
	})
	return edges
}

func copyAttrs(attrs map[string]string) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	cp := make(map[string]string, len(attrs))
	for k, v := range attrs {
		cp[k] = v
	}
	return cp
}

func setAttr(attrs map[string]string, k, v string) map[string]string {
	if attrs == nil {
		attrs = make(map[string]string)
	}
	attrs[k] = v
	return attrs
}
