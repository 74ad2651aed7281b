// Package integrate merges independently built graphs into one and
// re-derives the cross-level edges that tie panel content to the event
// hierarchy.
package integrate

import (
	"context"
	"sort"

	"github.com/ppiankov/panelgraph/internal/errors"
	"github.com/ppiankov/panelgraph/internal/graph"
	"github.com/ppiankov/panelgraph/internal/logger"
	"github.com/ppiankov/panelgraph/internal/plot"
	"github.com/ppiankov/panelgraph/internal/validate"
	"go.uber.org/zap"
)

// Inputs are the graphs to integrate
type Inputs struct {
	Hierarchy *graph.Graph            // event hierarchy (required)
	Panels    map[string]*graph.Graph // panel-content graphs keyed by panel ID
	Sequence  *graph.Graph            // optional reading-sequence graph
	Strict    bool                    // structural violations are returned as errors
}

// OrphanRef is a segment named by a panel graph that the hierarchy does not know
type OrphanRef struct {
	Panel   string `json:"panel"`
	Segment string `json:"segment"`
}

// JoinReport describes how panel graphs were joined to the hierarchy
type JoinReport struct {
	Resolved  map[string]string `json:"resolved"`             // panel -> segment
	Orphans   []OrphanRef       `json:"orphans,omitempty"`    // join keys with no hierarchy match
	NoSegment []string          `json:"no_segment,omitempty"` // panel graphs without a segment node
	Structure *validate.Report  `json:"structure"`
}

// Result is the integrated graph and its join report
type Result struct {
	Graph *graph.Graph
	Join  JoinReport
}

// Integrator merges graphs; it holds no state besides its logger
type Integrator struct {
	log *zap.SugaredLogger
}

// NewIntegrator creates an integrator logging under "integrate"
func NewIntegrator() *Integrator {
	return &Integrator{log: logger.Named("integrate")}
}

// Integrate is shorthand for NewIntegrator().Integrate
func Integrate(ctx context.Context, in Inputs) (*Result, error) {
	return NewIntegrator().Integrate(ctx, in)
}

// Integrate unions the sequence graph, the hierarchy graph and the panel
// graphs in that order (later sources win attribute conflicts), then joins
// each panel to its segment by ID and copies the segment's event and
// macro-event ancestry from the hierarchy.
//
// Segments a panel graph names but the hierarchy lacks are reported as
// orphans and get no edges. The merged graph is then checked with
// validate.Containment; in strict mode violations come back as an error
// matching errors.ErrStructuralViolation, alongside the result.
func (i *Integrator) Integrate(ctx context.Context, in Inputs) (*Result, error) {
	if in.Hierarchy == nil {
		return nil, errors.Wrap(errors.ErrMalformedInput, "integrate: hierarchy graph is required")
	}

	merged := graph.New()
	if err := merged.Absorb(in.Sequence); err != nil {
		return nil, errors.Wrap(err, "merge sequence graph")
	}
	if err := merged.Absorb(in.Hierarchy); err != nil {
		return nil, errors.Wrap(err, "merge hierarchy graph")
	}

	panelIDs := make([]string, 0, len(in.Panels))
	for id := range in.Panels {
		panelIDs = append(panelIDs, id)
	}
	plot.SortByReadingOrder(panelIDs)

	join := JoinReport{Resolved: make(map[string]string)}

	for _, panel := range panelIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pg := in.Panels[panel]
		if err := merged.Absorb(pg); err != nil {
			return nil, errors.Wrapf(err, "merge panel graph %s", panel)
		}
		if err := i.joinPanel(merged, in.Hierarchy, panel, pg, &join); err != nil {
			return nil, err
		}
	}
	sort.Slice(join.Orphans, func(a, b int) bool {
		return plot.ComparePanelIDs(join.Orphans[a].Panel, join.Orphans[b].Panel) < 0
	})

	report := validate.Containment(merged)
	join.Structure = report

	i.log.Infow("integrated graph",
		"nodes", merged.NodeCount(),
		"edges", merged.EdgeCount(),
		"panels", len(panelIDs),
		"resolved", len(join.Resolved),
		"orphans", len(join.Orphans),
		"unplaced", len(report.Unplaced),
		"violations", len(report.Violations))

	result := &Result{Graph: merged, Join: join}
	if !report.HasViolations() {
		return result, nil
	}

	if in.Strict {
		return result, errors.Wrap(report.Err(), "integrate")
	}
	for _, v := range report.Violations {
		i.log.Warnw("structural violation", "kind", v.Kind, "node", v.Node, "detail", v.Detail)
	}
	return result, nil
}

// joinPanel resolves the panel graph's segment reference against the hierarchy
func (i *Integrator) joinPanel(merged, hierarchy *graph.Graph, panel string, pg *graph.Graph, join *JoinReport) error {
	if !merged.HasNode(panel) {
		// panel graphs loaded from elsewhere may omit the panel node itself
		if err := merged.AddNode(graph.Node{ID: panel, Type: graph.TypePanel, Label: panel}); err != nil {
			return err
		}
	}

	segments := pg.NodesOfType(graph.TypeEventSegment)
	if len(segments) == 0 {
		join.NoSegment = append(join.NoSegment, panel)
		return nil
	}

	for _, seg := range segments {
		if hierarchy.TypeOf(seg) != graph.TypeEventSegment {
			join.Orphans = append(join.Orphans, OrphanRef{Panel: panel, Segment: seg})
			i.log.Warnw("segment not in hierarchy; no containment edges added", "panel", panel, "segment", seg)
			continue
		}
		if err := merged.AddEdge(panel, seg, graph.RelInstantiates); err != nil {
			return errors.Wrapf(err, "join panel %s", panel)
		}
		join.Resolved[panel] = seg

		for _, event := range hierarchy.Successors(seg, graph.RelSubeventOf, graph.TypeEvent) {
			if err := merged.AddEdge(seg, event, graph.RelSubeventOf); err != nil {
				return errors.Wrapf(err, "join segment %s", seg)
			}
			for _, macro := range hierarchy.Successors(event, graph.RelSubeventOf, graph.TypeMacroEvent) {
				if err := merged.AddEdge(event, macro, graph.RelSubeventOf); err != nil {
					return errors.Wrapf(err, "join event %s", event)
				}
			}
		}
	}
	return nil
}

// IntegrateFiles loads a hierarchy graph, panel graphs and an optional
// sequence graph from node-link files and integrates them
func IntegrateFiles(ctx context.Context, hierarchyPath string, panelPaths map[string]string, sequencePath string, strict bool) (*Result, error) {
	hierarchy, err := graph.Load(hierarchyPath)
	if err != nil {
		return nil, err
	}
	var sequence *graph.Graph
	if sequencePath != "" {
		if sequence, err = graph.Load(sequencePath); err != nil {
			return nil, err
		}
	}
	panels := make(map[string]*graph.Graph, len(panelPaths))
	for id, path := range panelPaths {
		if panels[id], err = graph.Load(path); err != nil {
			return nil, err
		}
	}
	return Integrate(ctx, Inputs{Hierarchy: hierarchy, Panels: panels, Sequence: sequence, Strict: strict})
}
