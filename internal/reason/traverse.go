// Package reason answers the narrative queries over an integrated graph.
// Every query is a read-only, deterministic walk over typed edges; an ID
// with no matching node yields an empty result.
package reason

import (
	"github.com/ppiankov/panelgraph/internal/graph"
	"github.com/ppiankov/panelgraph/internal/plot"
	"github.com/ppiankov/panelgraph/internal/report"
)

// PanelsUnder returns the panels of a macro-event in reading order:
// macro <- events <- segments <- panels, exactly three containment hops.
func PanelsUnder(g *graph.Graph, macro string) []string {
	if g.TypeOf(macro) != graph.TypeMacroEvent {
		return nil
	}
	var panels []string
	for _, event := range g.Predecessors(macro, graph.RelSubeventOf, graph.TypeEvent) {
		panels = append(panels, panelsOfEvent(g, event)...)
	}
	return readingOrder(panels)
}

// PanelsOfEvent returns the panels of an event in reading order
func PanelsOfEvent(g *graph.Graph, event string) []string {
	if g.TypeOf(event) != graph.TypeEvent {
		return nil
	}
	return readingOrder(panelsOfEvent(g, event))
}

func panelsOfEvent(g *graph.Graph, event string) []string {
	var panels []string
	for _, seg := range g.Predecessors(event, graph.RelSubeventOf, graph.TypeEventSegment) {
		panels = append(panels, g.Predecessors(seg, graph.RelInstantiates, graph.TypePanel)...)
	}
	return panels
}

// ActionsUnder returns the sorted, distinct action labels (verbs) of every
// panel under a macro-event
func ActionsUnder(g *graph.Graph, macro string) []string {
	var verbs []string
	for _, panel := range PanelsUnder(g, macro) {
		for _, visual := range g.Successors(panel, graph.RelHasVisual, graph.TypePanelVisual) {
			for _, action := range g.Successors(visual, graph.RelHasAction, graph.TypeAction) {
				verbs = append(verbs, g.LabelOf(action))
			}
		}
	}
	return report.SortedUnique(verbs)
}

// DialoguesUnder returns the dialogue text of every panel under an event,
// in reading order, each line once
func DialoguesUnder(g *graph.Graph, event string) []string {
	var lines []string
	for _, panel := range PanelsOfEvent(g, event) {
		for _, hub := range g.Successors(panel, graph.RelHasTextual, graph.TypePanelTextual) {
			for _, dlg := range g.Predecessors(hub, graph.RelPartOf, graph.TypeDialogue) {
				for _, text := range g.Predecessors(dlg, graph.RelContentOf, graph.TypeText) {
					lines = append(lines, g.LabelOf(text))
				}
			}
		}
	}
	return report.Unique(lines)
}

// CharacterAppearances maps every character node ID to the panels it appears
// in, in reading order. A character is seen through the panel's visual hub
// (has_character) or, for graphs without hub edges, through the scene it is
// located in.
func CharacterAppearances(g *graph.Graph) map[string][]string {
	out := make(map[string][]string)
	for _, char := range g.NodesOfType(graph.TypeCharacter) {
		var visuals []string
		visuals = append(visuals, g.Predecessors(char, graph.RelHasCharacter, graph.TypePanelVisual)...)
		for _, scene := range g.Successors(char, graph.RelLocatedIn, graph.TypeScene) {
			visuals = append(visuals, g.Successors(scene, graph.RelAppearsIn, graph.TypePanelVisual)...)
		}

		var panels []string
		for _, visual := range visuals {
			panels = append(panels, g.Predecessors(visual, graph.RelHasVisual, graph.TypePanel)...)
		}
		out[char] = readingOrder(panels)
	}
	return out
}

// EventOf returns the event a panel belongs to (panel -> segment -> event),
// or "" when the panel is not placed
func EventOf(g *graph.Graph, panel string) string {
	for _, seg := range g.Successors(panel, graph.RelInstantiates, graph.TypeEventSegment) {
		for _, event := range g.Successors(seg, graph.RelSubeventOf, graph.TypeEvent) {
			return event
		}
	}
	return ""
}

// MacroOf returns the macro-event above a panel, or ""
func MacroOf(g *graph.Graph, panel string) string {
	event := EventOf(g, panel)
	if event == "" {
		return ""
	}
	if macros := g.Successors(event, graph.RelSubeventOf, graph.TypeMacroEvent); len(macros) > 0 {
		return macros[0]
	}
	return ""
}

func readingOrder(ids []string) []string {
	out := report.Unique(ids)
	plot.SortByReadingOrder(out)
	return out
}
