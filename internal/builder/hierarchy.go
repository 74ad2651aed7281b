package builder

import (
	"sort"
	"strconv"

	"github.com/ppiankov/panelgraph/internal/graph"
	"github.com/ppiankov/panelgraph/internal/model"
	"github.com/ppiankov/panelgraph/internal/plot"
)

// AttrNarrativeTime is set on segment and event nodes that have a narrative time
const AttrNarrativeTime = "narrative_time"

// BuildHierarchy builds the macro -> event -> segment -> panel skeleton from an
// ID-assigned table in reading order, plus precedes_reading chains over
// panels, segments and events, and precedes_storytime chains.
//
// Containment edges are added for every row carrying Plot_0, Plot_1_ID and
// Plot_2_ID. Rows missing part of that chain keep their panel node but get
// no containment, so a panel never skips a level. Ordering edges are
// best-effort and never fail the build.
func (s *Session) BuildHierarchy(table *plot.Table, overrides []model.StoryOrder) (*graph.Graph, error) {
	b := &panelBuilder{g: graph.New()}
	times := filledNarrativeTimes(table)

	var panels []string
	var segments, events entityOrder

	for i, row := range table.Rows {
		panel := row.PanelID()
		b.node(panel, graph.TypePanel, panel, nil)
		panels = append(panels, panel)

		macro := row.Get(plot.ColPlot0)
		event := row.Get(plot.ColPlot1ID)
		segment := row.Get(plot.ColPlot2ID)
		if macro == "" || event == "" || segment == "" {
			s.stats.SkippedRows++
			s.log.Warnw("row lacks a full containment chain; panel left unplaced",
				"panel", panel, "plot_0", macro, "plot_1_id", event, "plot_2_id", segment)
			continue
		}

		b.node(macro, graph.TypeMacroEvent, macro, nil)
		b.node(event, graph.TypeEvent, labelOr(row.Get(plot.ColPlot1), event), timeAttr(events.seen(event), times[i]))
		b.node(segment, graph.TypeEventSegment, labelOr(row.Get(plot.ColPlot2), segment), timeAttr(segments.seen(segment), times[i]))

		b.edge(event, macro, graph.RelSubeventOf)
		b.edge(segment, event, graph.RelSubeventOf)
		b.edge(panel, segment, graph.RelInstantiates)

		events.add(event, times[i])
		segments.add(segment, times[i])
	}

	chain(b, panels, graph.RelPrecedesReading)
	chain(b, segments.ids, graph.RelPrecedesReading)
	chain(b, events.ids, graph.RelPrecedesReading)

	chain(b, segments.storyOrder(), graph.RelPrecedesStorytime)
	chain(b, events.storyOrder(), graph.RelPrecedesStorytime)

	if b.err != nil {
		return nil, b.err
	}

	for _, o := range overrides {
		if !s.applyOverride(b.g, o) {
			s.stats.SkippedOrders++
		}
	}

	return b.g, nil
}

// applyOverride adds a curated storytime edge when both endpoints exist at the same level
func (s *Session) applyOverride(g *graph.Graph, o model.StoryOrder) bool {
	if o.Before == o.After || !g.HasNode(o.Before) || !g.HasNode(o.After) {
		s.log.Debugw("storytime override skipped; endpoint missing", "before", o.Before, "after", o.After)
		return false
	}
	if g.TypeOf(o.Before) != g.TypeOf(o.After) {
		s.log.Warnw("storytime override skipped; endpoints are on different levels",
			"before", o.Before, "before_type", g.TypeOf(o.Before), "after", o.After, "after_type", g.TypeOf(o.After))
		return false
	}
	return g.AddEdge(o.Before, o.After, graph.RelPrecedesStorytime) == nil
}

// entityOrder records distinct IDs by first appearance with their narrative time
type entityOrder struct {
	ids   []string
	times []string
	index map[string]bool
}

func (o *entityOrder) seen(id string) bool {
	return o.index[id]
}

func (o *entityOrder) add(id, t string) {
	if o.index == nil {
		o.index = make(map[string]bool)
	}
	if o.index[id] {
		return
	}
	o.index[id] = true
	o.ids = append(o.ids, id)
	o.times = append(o.times, t)
}

// storyOrder sorts entities by narrative time, stable on first appearance.
// Returns nil unless every entity has a time.
func (o *entityOrder) storyOrder() []string {
	if len(o.ids) < 2 {
		return nil
	}
	for _, t := range o.times {
		if t == "" {
			return nil
		}
	}
	numeric := make([]float64, len(o.times))
	allNumeric := true
	for i, t := range o.times {
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			allNumeric = false
			break
		}
		numeric[i] = f
	}

	idx := make([]int, len(o.ids))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if allNumeric {
			return numeric[idx[a]] < numeric[idx[b]]
		}
		return o.times[idx[a]] < o.times[idx[b]]
	})

	ordered := make([]string, len(idx))
	for i, j := range idx {
		ordered[i] = o.ids[j]
	}
	return ordered
}

// chain links adjacent distinct IDs with rel
func chain(b *panelBuilder, ids []string, rel graph.Relation) {
	for i := 0; i+1 < len(ids); i++ {
		if ids[i] == ids[i+1] {
			continue
		}
		b.edge(ids[i], ids[i+1], rel)
	}
}

// filledNarrativeTimes forward-fills Narrative_Time without touching the table
func filledNarrativeTimes(table *plot.Table) []string {
	times := make([]string, len(table.Rows))
	last := ""
	for i, row := range table.Rows {
		if v := row.Get(plot.ColNarrativeTime); v != "" {
			last = v
		}
		times[i] = last
	}
	return times
}

// timeAttr stamps narrative time on first appearance only, so later rows
// never overwrite it through last-writer-wins merging
func timeAttr(alreadySeen bool, t string) map[string]string {
	if alreadySeen || t == "" {
		return nil
	}
	return map[string]string{AttrNarrativeTime: t}
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}
