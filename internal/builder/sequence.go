package builder

import (
	"github.com/ppiankov/panelgraph/internal/graph"
	"github.com/ppiankov/panelgraph/internal/plot"
)

// BuildSequence builds the reading-sequence view: each panel belongs_to its
// event, panels inside an event are linked with next, and events are chained
// by precedes_reading (first appearance) and precedes_storytime (narrative time).
func (s *Session) BuildSequence(table *plot.Table) (*graph.Graph, error) {
	b := &panelBuilder{g: graph.New()}
	times := filledNarrativeTimes(table)

	var events entityOrder
	members := make(map[string][]string)

	for i, row := range table.Rows {
		event := row.Get(plot.ColPlot1ID)
		if event == "" {
			continue
		}
		panel := row.PanelID()
		b.node(panel, graph.TypePanel, panel, nil)
		b.node(event, graph.TypeEvent, labelOr(row.Get(plot.ColPlot1), event), timeAttr(events.seen(event), times[i]))
		b.edge(panel, event, graph.RelBelongsTo)

		members[event] = append(members[event], panel)
		events.add(event, times[i])
	}

	for _, event := range events.ids {
		chain(b, members[event], graph.RelNext)
	}
	chain(b, events.ids, graph.RelPrecedesReading)
	chain(b, events.storyOrder(), graph.RelPrecedesStorytime)

	if b.err != nil {
		return nil, b.err
	}
	return b.g, nil
}
