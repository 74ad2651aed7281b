package builder

import (
	"fmt"
	"strings"

	"github.com/ppiankov/panelgraph/internal/graph"
	"github.com/ppiankov/panelgraph/internal/model"
	"github.com/ppiankov/panelgraph/internal/plot"
)

// Shared category nodes
const (
	CategorySceneObjects = "Scene_objects"
	CategoryCharacters   = "Characters"
)

// VisualHubID is the panel's visual hub node
func VisualHubID(panelID string) string { return "Panel_visual_" + panelID }

// TextualHubID is the panel's textual hub node
func TextualHubID(panelID string) string { return "Panel_textual_" + panelID }

// SceneID is the panel's scene node
func SceneID(panelID string) string { return "Scene_" + panelID }

// Triple is a decomposed action string
type Triple struct {
	Subject string
	Verb    string
	Object  string
}

// SplitAction decomposes "<subject> <verb> <object...>".
// Fewer than three whitespace-separated tokens yields ok=false.
func SplitAction(action string) (Triple, bool) {
	parts := strings.Fields(action)
	if len(parts) < 3 {
		return Triple{}, false
	}
	return Triple{
		Subject: parts[0],
		Verb:    parts[1],
		Object:  strings.Join(parts[2:], " "),
	}, true
}

// panelBuilder accumulates one panel graph; the first error sticks
type panelBuilder struct {
	g   *graph.Graph
	err error
}

func (b *panelBuilder) node(id string, typ graph.NodeType, label string, attrs map[string]string) {
	if b.err != nil {
		return
	}
	b.err = b.g.AddNode(graph.Node{ID: id, Type: typ, Label: label, Attrs: attrs})
}

func (b *panelBuilder) edge(src, tgt string, rel graph.Relation) {
	if b.err != nil {
		return
	}
	b.err = b.g.AddEdge(src, tgt, rel)
}

// BuildPanel builds the panel-content graph for one annotated panel.
// meta may be empty: missing metadata only means fewer nodes.
func (s *Session) BuildPanel(panelID string, ann model.Annotation, meta plot.Row) (*graph.Graph, error) {
	b := &panelBuilder{g: graph.New()}
	book := plot.BookOf(panelID)

	visual := VisualHubID(panelID)
	textual := TextualHubID(panelID)
	b.node(panelID, graph.TypePanel, panelID, nil)
	b.node(visual, graph.TypePanelVisual, "Panel Visual", nil)
	b.node(textual, graph.TypePanelTextual, "Panel Textual", nil)
	b.edge(panelID, visual, graph.RelHasVisual)
	b.edge(panelID, textual, graph.RelHasTextual)

	for i, enc := range ann.Visual.Encoders {
		if enc == "" {
			continue
		}
		id := fmt.Sprintf("encoder_%s_%d", panelID, i)
		b.node(id, graph.TypeEncoder, fmt.Sprintf("encoder_%d", i), map[string]string{"value": enc})
		b.edge(id, visual, graph.RelEncodes)
	}

	scene := SceneID(panelID)
	sceneLabel := meta.Get(plot.ColScene)
	if sceneLabel == "" {
		sceneLabel = "Scene " + panelID
	}
	b.node(scene, graph.TypeScene, sceneLabel, nil)
	b.edge(scene, visual, graph.RelAppearsIn)

	// scene objects, like characters, are keyed by name so panels share them
	for _, obj := range ann.Scene {
		if obj == "" {
			continue
		}
		id := s.CharacterID(book, obj)
		b.node(CategorySceneObjects, graph.TypeCategory, CategorySceneObjects, nil)
		b.node(id, graph.TypeSceneObj, obj, nil)
		b.edge(id, CategorySceneObjects, graph.RelIsA)
		b.edge(id, scene, graph.RelLocatedIn)
		vis := "Visual_" + id
		b.node(vis, graph.TypeVisual, "Visual of "+obj, nil)
		b.edge(vis, id, graph.RelVisualOf)
	}

	for _, name := range ann.Characters {
		if name == "" {
			continue
		}
		id := s.CharacterID(book, name)
		b.node(CategoryCharacters, graph.TypeCategory, CategoryCharacters, nil)
		b.node(id, graph.TypeCharacter, name, nil)
		b.edge(id, CategoryCharacters, graph.RelIsA)
		b.edge(id, scene, graph.RelLocatedIn)
		b.edge(visual, id, graph.RelHasCharacter)
		vis := "Visual_" + id
		b.node(vis, graph.TypeVisual, "Visual of "+name, nil)
		b.edge(vis, id, graph.RelVisualOf)
	}

	for i, action := range ann.Actions {
		if action == "" {
			continue
		}
		triple, ok := SplitAction(action)
		if !ok {
			s.stats.SkippedActions++
			s.log.Debugw("action needs subject, verb and object; skipped", "panel", panelID, "action", action)
			continue
		}
		id := fmt.Sprintf("Action_%s_%d", panelID, i)
		subject := s.CharacterID(book, triple.Subject)
		object := s.CharacterID(book, triple.Object)
		b.node(id, graph.TypeAction, triple.Verb, map[string]string{"text": action})
		b.node(subject, graph.TypeEntity, triple.Subject, nil)
		b.node(object, graph.TypeEntity, triple.Object, nil)
		b.edge(subject, id, graph.RelPerforms)
		b.edge(id, object, graph.RelTargets)
		b.edge(visual, id, graph.RelHasAction)
	}

	for j, line := range ann.Textual.Dialogues {
		dlg := fmt.Sprintf("Dialogue_%s_%d", panelID, j)
		b.node(dlg, graph.TypeDialogue, fmt.Sprintf("Dialogue %d", j), nil)
		b.edge(dlg, textual, graph.RelPartOf)
		if line == "" {
			continue
		}
		text := fmt.Sprintf("text_%s_%d", panelID, j)
		b.node(text, graph.TypeText, line, nil)
		b.edge(text, dlg, graph.RelContentOf)
	}

	if ann.Caption != "" {
		caption := fmt.Sprintf("Caption_%s_0", panelID)
		text := "text_caption_" + panelID
		b.node(caption, graph.TypeCaption, "Caption", nil)
		b.edge(caption, textual, graph.RelPartOf)
		b.node(text, graph.TypeText, ann.Caption, nil)
		b.edge(text, caption, graph.RelContentOf)
	}

	if seg := meta.Get(plot.ColPlot2ID); seg != "" {
		label := meta.Get(plot.ColPlot2)
		if label == "" {
			label = seg
		}
		b.node(seg, graph.TypeEventSegment, label, nil)
		b.edge(seg, scene, graph.RelDescribes)
	}

	if shot := meta.Get(plot.ColShot); shot != "" {
		id := "shot_" + panelID
		b.node(id, graph.TypeShot, shot, nil)
		b.edge(id, visual, graph.RelShotType)
	}

	if b.err != nil {
		return nil, b.err
	}
	s.stats.Panels++
	return b.g, nil
}
