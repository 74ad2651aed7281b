// Package validate checks the integrated graph against the containment
// invariants the traversal engine relies on: every placed panel reaches
// exactly one segment, one event and one macro-event, containment is
// acyclic, and ordering edges never cross levels.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/panelgraph/internal/errors"
	"github.com/ppiankov/panelgraph/internal/graph"
)

// ViolationKind classifies a structural problem
type ViolationKind string

const (
	KindMissingParent      ViolationKind = "missing_parent"      // segment/event without a parent
	KindMultipleParents    ViolationKind = "multiple_parents"    // more than one parent at the next level
	KindInvalidContainment ViolationKind = "invalid_containment" // containment edge between the wrong levels
	KindNoMacroAncestor    ViolationKind = "no_macro_ancestor"   // panel chain stops before a macro-event
	KindCycle              ViolationKind = "cycle"               // containment edges form a cycle
	KindCrossLevelOrder    ViolationKind = "cross_level_order"   // ordering edge joins different levels
)

// Violation is one broken invariant
type Violation struct {
	Kind   ViolationKind `json:"kind"`
	Node   string        `json:"node"`
	Detail string        `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s %s: %s", v.Kind, v.Node, v.Detail)
}

// Report collects violations. Unplaced panels (no containment at all, the
// missing-data case) are listed separately and are not violations.
type Report struct {
	Violations []Violation `json:"violations,omitempty"`
	Unplaced   []string    `json:"unplaced,omitempty"`
}

// HasViolations reports whether any invariant is broken
func (r *Report) HasViolations() bool {
	return r != nil && len(r.Violations) > 0
}

// Error summarizes the violations
func (r *Report) Error() string {
	if !r.HasViolations() {
		return "no structural violations"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d structural violation(s)", len(r.Violations))
	for i, v := range r.Violations {
		if i == 5 {
			fmt.Fprintf(&b, "; ... and %d more", len(r.Violations)-5)
			break
		}
		b.WriteString("; ")
		b.WriteString(v.String())
	}
	return b.String()
}

// Is makes errors.Is(report, errors.ErrStructuralViolation) hold
func (r *Report) Is(target error) bool {
	return target == errors.ErrStructuralViolation
}

// Err returns the report as an error, or nil when there is nothing to report
func (r *Report) Err() error {
	if !r.HasViolations() {
		return nil
	}
	return errors.Mark(r, errors.ErrStructuralViolation)
}

// ByKind counts violations per kind
func (r *Report) ByKind() map[ViolationKind]int {
	counts := make(map[ViolationKind]int)
	for _, v := range r.Violations {
		counts[v.Kind]++
	}
	return counts
}

// allowed containment steps: child type -> (relation, parent type)
var parentRule = map[graph.NodeType]struct {
	rel    graph.Relation
	parent graph.NodeType
}{
	graph.TypePanel:        {graph.RelInstantiates, graph.TypeEventSegment},
	graph.TypeEventSegment: {graph.RelSubeventOf, graph.TypeEvent},
	graph.TypeEvent:        {graph.RelSubeventOf, graph.TypeMacroEvent},
}

// Containment checks g and returns a report; it never returns nil
func Containment(g *graph.Graph) *Report {
	r := &Report{}

	checkEdges(g, r)
	checkParents(g, r)
	checkCycles(g, r)
	checkOrdering(g, r)

	sort.SliceStable(r.Violations, func(i, j int) bool {
		if r.Violations[i].Kind != r.Violations[j].Kind {
			return r.Violations[i].Kind < r.Violations[j].Kind
		}
		return r.Violations[i].Node < r.Violations[j].Node
	})
	return r
}

// checkEdges flags containment edges that connect the wrong levels
func checkEdges(g *graph.Graph, r *Report) {
	for _, e := range g.Edges() {
		if !e.Relation.Containment() {
			continue
		}
		srcType, tgtType := g.TypeOf(e.Source), g.TypeOf(e.Target)
		rule, ok := parentRule[srcType]
		if !ok || rule.rel != e.Relation || rule.parent != tgtType {
			r.Violations = append(r.Violations, Violation{
				Kind:   KindInvalidContainment,
				Node:   e.Source,
				Detail: fmt.Sprintf("%s(%s) --%s--> %s(%s)", e.Source, srcType, e.Relation, e.Target, tgtType),
			})
		}
	}
}

// checkParents enforces exactly one parent per level and a full chain for placed panels
func checkParents(g *graph.Graph, r *Report) {
	for _, typ := range []graph.NodeType{graph.TypeEventSegment, graph.TypeEvent} {
		rule := parentRule[typ]
		for _, id := range g.NodesOfType(typ) {
			parents := g.Successors(id, rule.rel, rule.parent)
			switch {
			case len(parents) == 0:
				r.Violations = append(r.Violations, Violation{
					Kind:   KindMissingParent,
					Node:   id,
					Detail: fmt.Sprintf("%s has no %s parent", typ, rule.parent),
				})
			case len(parents) > 1:
				r.Violations = append(r.Violations, Violation{
					Kind:   KindMultipleParents,
					Node:   id,
					Detail: fmt.Sprintf("%s has %d %s parents: %s", typ, len(parents), rule.parent, strings.Join(parents, ", ")),
				})
			}
		}
	}

	for _, panel := range g.NodesOfType(graph.TypePanel) {
		segments := g.Successors(panel, graph.RelInstantiates, "")
		switch {
		case len(segments) == 0:
			r.Unplaced = append(r.Unplaced, panel)
			continue
		case len(segments) > 1:
			r.Violations = append(r.Violations, Violation{
				Kind:   KindMultipleParents,
				Node:   panel,
				Detail: fmt.Sprintf("panel instantiates %d segments: %s", len(segments), strings.Join(segments, ", ")),
			})
			continue
		}
		if !reachesMacro(g, panel) {
			r.Violations = append(r.Violations, Violation{
				Kind:   KindNoMacroAncestor,
				Node:   panel,
				Detail: "containment chain ends before a macro_event",
			})
		}
	}
}

// reachesMacro follows single-parent links panel -> segment -> event -> macro
func reachesMacro(g *graph.Graph, panel string) bool {
	current := panel
	for depth := 0; depth < 3; depth++ {
		rule, ok := parentRule[g.TypeOf(current)]
		if !ok {
			return false
		}
		parents := g.Successors(current, rule.rel, rule.parent)
		if len(parents) != 1 {
			return false
		}
		current = parents[0]
	}
	return g.TypeOf(current) == graph.TypeMacroEvent
}

// checkCycles runs a three-colour DFS over containment edges
func checkCycles(g *graph.Graph, r *Report) {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int)
	var path []string

	var visit func(id string)
	visit = func(id string) {
		color[id] = grey
		path = append(path, id)
		for _, e := range g.OutEdges(id) {
			if !e.Relation.Containment() {
				continue
			}
			switch color[e.Target] {
			case grey:
				start := indexOf(path, e.Target)
				cycle := append(append([]string(nil), path[start:]...), e.Target)
				r.Violations = append(r.Violations, Violation{
					Kind:   KindCycle,
					Node:   e.Target,
					Detail: strings.Join(cycle, " -> "),
				})
			case white:
				visit(e.Target)
			}
		}
		path = path[:len(path)-1]
		color[id] = black
	}

	for _, id := range g.NodeIDs() {
		if color[id] == white {
			visit(id)
		}
	}
}

// checkOrdering flags precedes_*/next edges between different hierarchy levels
func checkOrdering(g *graph.Graph, r *Report) {
	for _, e := range g.Edges() {
		if !e.Relation.Ordering() {
			continue
		}
		src, tgt := g.TypeOf(e.Source), g.TypeOf(e.Target)
		if src.Level() < 0 && tgt.Level() < 0 {
			continue
		}
		if src != tgt {
			r.Violations = append(r.Violations, Violation{
				Kind:   KindCrossLevelOrder,
				Node:   e.Source,
				Detail: fmt.Sprintf("%s(%s) --%s--> %s(%s)", e.Source, src, e.Relation, e.Target, tgt),
			})
		}
	}
}

func indexOf(values []string, v string) int {
	for i, s := range values {
		if s == v {
			return i
		}
	}
	return 0
}
