package reason

import (
	"github.com/ppiankov/panelgraph/internal/graph"
	"github.com/ppiankov/panelgraph/internal/model"
	"github.com/ppiankov/panelgraph/internal/report"
)

// Reasoner runs the four reasoning tasks over one graph
type Reasoner struct {
	g *graph.Graph

	// task 3 state, computed on first use
	byEvent map[string][]string
}

// NewReasoner creates a reasoner for g
func NewReasoner(g *graph.Graph) *Reasoner {
	return &Reasoner{g: g}
}

// Run answers task for each ID and returns the prediction table.
// With no IDs every macro-event (tasks 1 and 4) or event (tasks 2 and 3)
// in the graph is queried.
func (r *Reasoner) Run(task model.Task, ids []string) *report.ListTable {
	if len(ids) == 0 {
		ids = r.defaultIDs(task)
	}
	out := report.NewListTable(task.IDColumn, task.PredictedColumn(), task.Ordered)
	for _, id := range ids {
		out.Add(id, r.answer(task, id))
	}
	return out
}

// RunAll runs every task. truth supplies the query IDs per task ID;
// a missing entry queries every node of the task's level.
func (r *Reasoner) RunAll(truth map[string][]string) map[string]*report.ListTable {
	out := make(map[string]*report.ListTable, len(model.Tasks))
	for _, task := range model.Tasks {
		out[task.ID] = r.Run(task, truth[task.ID])
	}
	return out
}

func (r *Reasoner) answer(task model.Task, id string) []string {
	switch task.ID {
	case model.TaskActions.ID:
		return ActionsUnder(r.g, id)
	case model.TaskDialogues.ID:
		return DialoguesUnder(r.g, id)
	case model.TaskCharacters.ID:
		return r.charactersOf(id)
	case model.TaskPanels.ID:
		return PanelsUnder(r.g, id)
	}
	return nil
}

func (r *Reasoner) defaultIDs(task model.Task) []string {
	if task.IDColumn == model.TaskDialogues.IDColumn {
		return r.g.NodesOfType(graph.TypeEvent)
	}
	return r.g.NodesOfType(graph.TypeMacroEvent)
}

// charactersOf composes character appearances with the panel -> event map
func (r *Reasoner) charactersOf(event string) []string {
	if r.byEvent == nil {
		r.byEvent = make(map[string][]string)
		for char, panels := range CharacterAppearances(r.g) {
			for _, panel := range panels {
				if ev := EventOf(r.g, panel); ev != "" {
					r.byEvent[ev] = append(r.byEvent[ev], r.g.LabelOf(char))
				}
			}
		}
	}
	return report.SortedUnique(r.byEvent[event])
}
