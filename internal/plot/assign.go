package plot

import (
	"fmt"
)

// ForwardFill replaces missing values in each column with the nearest
// preceding non-missing value. Leading gaps stay empty.
func (t *Table) ForwardFill(cols ...string) {
	for _, col := range cols {
		last := ""
		for _, row := range t.Rows {
			if v := row[col]; v != "" {
				last = v
				continue
			}
			if last != "" {
				row[col] = last
			}
		}
	}
}

// AssignIDs forward-fills the plot labels and derives Plot_1_ID and Plot_2_ID.
//
// Each contiguous run of a Plot_1 label becomes its own event instance
// "<label>_<n>", where n counts runs of that label, so an event interrupted
// and later resumed gets a fresh ID. Plot_2 runs are numbered globally
// ("seg001", "seg002", ...) regardless of label text.
func (t *Table) AssignIDs() {
	t.ForwardFill(ColPlot0, ColPlot1, ColPlot2)
	t.ensureColumn(ColPlot1ID)
	t.ensureColumn(ColPlot2ID)

	labels := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		labels[i] = row[ColPlot1]
	}
	for i, id := range EventIDs(labels) {
		setOrClear(t.Rows[i], ColPlot1ID, id)
	}

	for i, row := range t.Rows {
		labels[i] = row[ColPlot2]
	}
	for i, id := range SegmentIDs(labels) {
		setOrClear(t.Rows[i], ColPlot2ID, id)
	}
}

// EnsureIDs assigns IDs only when the table does not already carry them.
// A table with IDs (written by an earlier assign) is only forward-filled.
// Reports whether IDs were assigned.
func (t *Table) EnsureIDs() bool {
	for _, row := range t.Rows {
		if row[ColPlot1ID] != "" || row[ColPlot2ID] != "" {
			t.ForwardFill(ColPlot0, ColPlot1, ColPlot2, ColPlot1ID, ColPlot2ID)
			return false
		}
	}
	t.AssignIDs()
	return true
}

// EventIDs numbers contiguous runs per label: [A A B A] -> [A_1 A_1 B_1 A_2].
// Empty labels get an empty ID and do not end the current run.
func EventIDs(labels []string) []string {
	ids := make([]string, len(labels))
	counter := make(map[string]int)
	prev, started := "", false
	for i, curr := range labels {
		if curr == "" {
			continue
		}
		if !started || curr != prev {
			counter[curr]++
		}
		ids[i] = fmt.Sprintf("%s_%d", curr, counter[curr])
		prev, started = curr, true
	}
	return ids
}

// SegmentIDs numbers runs globally: [X X Y Y X] -> [seg001 seg001 seg002 seg002 seg003].
// Empty labels get an empty ID and do not end the current run.
func SegmentIDs(labels []string) []string {
	ids := make([]string, len(labels))
	runs := 0
	prev, started := "", false
	for i, curr := range labels {
		if curr == "" {
			continue
		}
		if !started || curr != prev {
			runs++
		}
		ids[i] = fmt.Sprintf("seg%03d", runs)
		prev, started = curr, true
	}
	return ids
}

func setOrClear(row Row, col, value string) {
	if value == "" {
		delete(row, col)
		return
	}
	row[col] = value
}
