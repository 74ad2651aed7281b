package reason

import (
	"context"
	"strings"
	"testing"

	"github.com/ppiankov/panelgraph/internal/builder"
	"github.com/ppiankov/panelgraph/internal/graph"
	"github.com/ppiankov/panelgraph/internal/integrate"
	"github.com/ppiankov/panelgraph/internal/model"
	"github.com/ppiankov/panelgraph/internal/plot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const table = `Index,Plot_0,Plot_1,Plot_2,Narrative_Time
0_0_0,macro_A,event,setup,1
0_0_1,,,talk,2
0_1_0,,next,fight,3
`

var annotations = map[string]model.Annotation{
	"0_0_0": {
		Characters: []string{"Tom"},
		Actions:    []string{"Tom throws ball"},
		Textual:    model.Textual{Dialogues: []string{"Catch!"}},
	},
	"0_0_1": {
		Characters: []string{"Ann"},
		Actions:    []string{"Ann kicks Tom"},
		Textual:    model.Textual{Dialogues: []string{"Ouch", ""}},
		Caption:    "Later",
	},
	"0_1_0": {
		Characters: []string{"Tom"},
		Actions:    []string{"Tom eats cake", "sleeps"},
		Textual:    model.Textual{Dialogues: []string{"Yum; good"}},
	},
}

func buildGraph(t *testing.T) *graph.Graph {
	t.Helper()
	tbl, err := plot.ReadCSV(strings.NewReader(table))
	require.NoError(t, err)
	tbl.AssignIDs()

	s := builder.NewSession(builder.Options{Logger: zap.NewNop().Sugar()})
	h, err := s.BuildHierarchy(tbl, nil)
	require.NoError(t, err)

	panels := make(map[string]*graph.Graph)
	for id, ann := range annotations {
		row, _ := tbl.Lookup(id)
		pg, err := s.BuildPanel(id, ann, row)
		require.NoError(t, err)
		panels[id] = pg
	}

	res, err := integrate.Integrate(context.Background(), integrate.Inputs{Hierarchy: h, Panels: panels, Strict: true})
	require.NoError(t, err)
	return res.Graph
}

func TestTraversals(t *testing.T) {
	g := buildGraph(t)

	assert.Equal(t, []string{"0_0_0", "0_0_1", "0_1_0"}, PanelsUnder(g, "macro_A"))
	assert.Equal(t, []string{"eats", "kicks", "throws"}, ActionsUnder(g, "macro_A"))
	assert.Equal(t, []string{"Catch!", "Ouch"}, DialoguesUnder(g, "event_1"))
	assert.Equal(t, []string{"Yum; good"}, DialoguesUnder(g, "next_1"))

	apps := CharacterAppearances(g)
	assert.Equal(t, []string{"0_0_0", "0_1_0"}, apps["Tom"])
	assert.Equal(t, []string{"0_0_1"}, apps["Ann"])

	assert.Equal(t, "event_1", EventOf(g, "0_0_1"))
	assert.Equal(t, "macro_A", MacroOf(g, "0_1_0"))
}

func TestTraversals_UnknownIDs(t *testing.T) {
	g := buildGraph(t)

	assert.Empty(t, PanelsUnder(g, "macro_Z"))
	assert.Empty(t, ActionsUnder(g, "macro_Z"))
	assert.Empty(t, DialoguesUnder(g, "nope"))
	assert.Empty(t, PanelsUnder(g, "event_1"), "an event is not a macro-event")
	assert.Equal(t, "", EventOf(g, "9_9_9"))
}

func TestTraversals_Idempotent(t *testing.T) {
	a, b := buildGraph(t), buildGraph(t)
	assert.Equal(t, ActionsUnder(a, "macro_A"), ActionsUnder(b, "macro_A"))
	assert.Equal(t, CharacterAppearances(a), CharacterAppearances(b))
	assert.Equal(t, ActionsUnder(a, "macro_A"), ActionsUnder(a, "macro_A"))
}

func TestReasoner_Run(t *testing.T) {
	r := NewReasoner(buildGraph(t))

	chars := r.Run(model.TaskCharacters, []string{"event_1", "next_1", "missing"})
	assert.Equal(t, "Predicted_Characters", chars.ValueColumn)
	got := chars.Map()
	assert.Equal(t, []string{"Ann", "Tom"}, got["event_1"])
	assert.Equal(t, []string{"Tom"}, got["next_1"])
	assert.Empty(t, got["missing"])

	panels := r.Run(model.TaskPanels, nil)
	assert.True(t, panels.Ordered)
	assert.Equal(t, []string{"macro_A"}, panels.IDs())

	all := r.RunAll(map[string][]string{model.TaskDialogues.ID: {"event_1"}})
	require.Len(t, all, 4)
	assert.Equal(t, []string{"event_1"}, all[model.TaskDialogues.ID].IDs())
	assert.Equal(t, []string{"event_1", "next_1"}, all[model.TaskCharacters.ID].IDs())
	items, _ := all[model.TaskActions.ID].Get("macro_A")
	assert.Equal(t, []string{"eats", "kicks", "throws"}, items)
}
