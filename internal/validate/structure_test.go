package validate

import (
	"testing"

	"github.com/ppiankov/panelgraph/internal/errors"
	"github.com/ppiankov/panelgraph/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type edge struct {
	src, tgt string
	rel      graph.Relation
}

func build(t *testing.T, nodes map[string]graph.NodeType, edges []edge) *graph.Graph {
	t.Helper()
	g := graph.New()
	for id, typ := range nodes {
		require.NoError(t, g.AddNode(graph.Node{ID: id, Type: typ}))
	}
	for _, e := range edges {
		require.NoError(t, g.AddEdge(e.src, e.tgt, e.rel))
	}
	return g
}

func validTree() (map[string]graph.NodeType, []edge) {
	nodes := map[string]graph.NodeType{
		"macro_A": graph.TypeMacroEvent,
		"event_1": graph.TypeEvent,
		"seg001":  graph.TypeEventSegment,
		"0_0_0":   graph.TypePanel,
		"0_0_1":   graph.TypePanel,
	}
	edges := []edge{
		{"event_1", "macro_A", graph.RelSubeventOf},
		{"seg001", "event_1", graph.RelSubeventOf},
		{"0_0_0", "seg001", graph.RelInstantiates},
		{"0_0_1", "seg001", graph.RelInstantiates},
		{"0_0_0", "0_0_1", graph.RelPrecedesReading},
	}
	return nodes, edges
}

func TestContainment_Valid(t *testing.T) {
	nodes, edges := validTree()
	r := Containment(build(t, nodes, edges))
	assert.False(t, r.HasViolations(), r.Error())
	assert.NoError(t, r.Err())
	assert.Empty(t, r.Unplaced)
}

func TestContainment_UnplacedPanelIsNotViolation(t *testing.T) {
	nodes, edges := validTree()
	nodes["0_9_9"] = graph.TypePanel
	r := Containment(build(t, nodes, edges))
	assert.False(t, r.HasViolations())
	assert.Equal(t, []string{"0_9_9"}, r.Unplaced)
}

func TestContainment_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]graph.NodeType, []edge) (map[string]graph.NodeType, []edge)
		kind   ViolationKind
	}{
		{
			name: "segment without event",
			mutate: func(n map[string]graph.NodeType, e []edge) (map[string]graph.NodeType, []edge) {
				n["seg009"] = graph.TypeEventSegment
				return n, e
			},
			kind: KindMissingParent,
		},
		{
			name: "event with two macros",
			mutate: func(n map[string]graph.NodeType, e []edge) (map[string]graph.NodeType, []edge) {
				n["macro_B"] = graph.TypeMacroEvent
				return n, append(e, edge{"event_1", "macro_B", graph.RelSubeventOf})
			},
			kind: KindMultipleParents,
		},
		{
			name: "panel skips a level",
			mutate: func(n map[string]graph.NodeType, e []edge) (map[string]graph.NodeType, []edge) {
				n["0_1_0"] = graph.TypePanel
				return n, append(e, edge{"0_1_0", "event_1", graph.RelInstantiates})
			},
			kind: KindInvalidContainment,
		},
		{
			name: "orphan segment breaks the panel chain",
			mutate: func(n map[string]graph.NodeType, e []edge) (map[string]graph.NodeType, []edge) {
				n["seg404"] = graph.TypeEventSegment
				n["0_2_0"] = graph.TypePanel
				return n, append(e, edge{"0_2_0", "seg404", graph.RelInstantiates})
			},
			kind: KindNoMacroAncestor,
		},
		{
			name: "ordering edge crosses levels",
			mutate: func(n map[string]graph.NodeType, e []edge) (map[string]graph.NodeType, []edge) {
				return n, append(e, edge{"seg001", "event_1", graph.RelPrecedesStorytime})
			},
			kind: KindCrossLevelOrder,
		},
		{
			name: "containment cycle",
			mutate: func(n map[string]graph.NodeType, e []edge) (map[string]graph.NodeType, []edge) {
				return n, append(e, edge{"macro_A", "0_0_0", graph.RelSubeventOf})
			},
			kind: KindCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes, edges := tt.mutate(validTree())
			r := Containment(build(t, nodes, edges))
			require.True(t, r.HasViolations())
			assert.Greater(t, r.ByKind()[tt.kind], 0, "violations: %v", r.Violations)

			err := r.Err()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrStructuralViolation))

			var report *Report
			require.True(t, errors.As(err, &report))
			assert.Equal(t, r, report)
		})
	}
}

func TestReportError_Truncates(t *testing.T) {
	r := &Report{}
	for i := 0; i < 8; i++ {
		r.Violations = append(r.Violations, Violation{Kind: KindMissingParent, Node: "n"})
	}
	assert.Contains(t, r.Error(), "8 structural violation(s)")
	assert.Contains(t, r.Error(), "and 3 more")
}
