// Package truth derives reasoning ground truth straight from the
// annotations and the metadata table, without touching any graph.
package truth

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/panelgraph/internal/errors"
	"github.com/ppiankov/panelgraph/internal/model"
	"github.com/ppiankov/panelgraph/internal/plot"
	"github.com/ppiankov/panelgraph/internal/report"
)

// Verb extracts the ground-truth verb of an action string: the second token
// of a three-or-more token action, or the sole token of a one-token action.
// Two-token actions carry no verb.
func Verb(action string) (string, bool) {
	parts := strings.Fields(action)
	switch {
	case len(parts) >= 3:
		return parts[1], true
	case len(parts) == 1:
		return parts[0], true
	}
	return "", false
}

// Generator computes the four ground-truth tables for one book
type Generator struct {
	table       *plot.Table
	annotations map[string]model.Annotation
}

// NewGenerator indexes annotations by panel ID. The table must already have
// its event IDs assigned.
func NewGenerator(table *plot.Table, annotations []model.PanelAnnotation) *Generator {
	idx := make(map[string]model.Annotation, len(annotations))
	for _, pa := range annotations {
		idx[pa.PanelID] = pa.Annotation
	}
	return &Generator{table: table, annotations: idx}
}

// Task builds the ground-truth table of one task. IDs are sorted; tasks 1-3
// only list IDs with at least one item, task 4 lists every macro-event.
func (g *Generator) Task(task model.Task) *report.ListTable {
	key, items := g.collector(task)

	grouped := make(map[string][]string)
	for _, panel := range g.readingOrderPanels() {
		row, _ := g.table.Lookup(panel)
		id := row.Get(key)
		if id == "" {
			continue
		}
		values := items(panel)
		if len(values) == 0 && !task.Ordered {
			continue
		}
		grouped[id] = append(grouped[id], values...)
	}

	ids := make([]string, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := report.NewListTable(task.IDColumn, task.Label, task.Ordered)
	for _, id := range ids {
		if task.Ordered {
			out.Add(id, report.Unique(grouped[id]))
		} else {
			out.Add(id, report.SortedUnique(grouped[id]))
		}
	}
	return out
}

// All builds every task's table keyed by task ID
func (g *Generator) All() map[string]*report.ListTable {
	out := make(map[string]*report.ListTable, len(model.Tasks))
	for _, task := range model.Tasks {
		out[task.ID] = g.Task(task)
	}
	return out
}

// WriteAll writes every ground-truth CSV into dir under its conventional name
func (g *Generator) WriteAll(dir string) error {
	for _, task := range model.Tasks {
		path := filepath.Join(dir, task.GroundTruthFile())
		if err := g.Task(task).SaveCSV(path); err != nil {
			return errors.Wrapf(err, "write ground truth for %s", task.ID)
		}
	}
	return nil
}

// collector returns the grouping column and per-panel item extractor of a task
func (g *Generator) collector(task model.Task) (string, func(panel string) []string) {
	switch task.ID {
	case model.TaskActions.ID:
		return plot.ColPlot0, func(panel string) []string {
			var verbs []string
			for _, action := range g.annotations[panel].Actions {
				if verb, ok := Verb(action); ok {
					verbs = append(verbs, verb)
				}
			}
			return verbs
		}
	case model.TaskDialogues.ID:
		return plot.ColPlot1ID, func(panel string) []string {
			return nonEmpty(g.annotations[panel].Textual.Dialogues)
		}
	case model.TaskCharacters.ID:
		return plot.ColPlot1ID, func(panel string) []string {
			return nonEmpty(g.annotations[panel].Characters)
		}
	default:
		return plot.ColPlot0, func(panel string) []string {
			return []string{panel}
		}
	}
}

func (g *Generator) readingOrderPanels() []string {
	panels := g.table.PanelIDs()
	plot.SortByReadingOrder(panels)
	return panels
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Load reads the ground-truth CSVs of every task from dir
func Load(dir string) (map[string]*report.ListTable, error) {
	out := make(map[string]*report.ListTable, len(model.Tasks))
	for _, task := range model.Tasks {
		t, err := report.LoadListCSV(filepath.Join(dir, task.GroundTruthFile()), task.IDColumn, task.Label, report.Splitter(task.PipeOnly))
		if err != nil {
			return nil, err
		}
		out[task.ID] = t
	}
	return out, nil
}

// IDs returns the query IDs per task ID, for driving the reasoner
func IDs(tables map[string]*report.ListTable) map[string][]string {
	out := make(map[string][]string, len(tables))
	for id, t := range tables {
		out[id] = t.IDs()
	}
	return out
}
