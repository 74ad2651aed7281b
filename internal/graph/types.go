package graph

import (
	"github.com/ppiankov/panelgraph/internal/errors"
)

// NodeType classifies a node. The set is closed; ParseNodeType rejects anything else.
type NodeType string

const (
	TypeMacroEvent   NodeType = "macro_event"
	TypeEvent        NodeType = "event"
	TypeEventSegment NodeType = "event_segment"
	TypePanel        NodeType = "panel"
	TypePanelVisual  NodeType = "panel_visual"
	TypePanelTextual NodeType = "panel_textual"
	TypeScene        NodeType = "scene"
	TypeSceneObj     NodeType = "scene_obj"
	TypeCharacter    NodeType = "character"
	TypeVisual       NodeType = "visual"
	TypeAction       NodeType = "action"
	TypeDialogue     NodeType = "dialogue"
	TypeCaption      NodeType = "caption"
	TypeText         NodeType = "text"
	TypeEncoder      NodeType = "encoder"
	TypeShot         NodeType = "shot"

	// TypeCategory is a shared grouping node ("Characters", "Scene_objects")
	TypeCategory NodeType = "category"
	// TypeEntity is a raw action subject/object string with no declared role
	TypeEntity NodeType = "entity"
)

var nodeTypes = map[NodeType]bool{
	TypeMacroEvent: true, TypeEvent: true, TypeEventSegment: true, TypePanel: true,
	TypePanelVisual: true, TypePanelTextual: true, TypeScene: true, TypeSceneObj: true,
	TypeCharacter: true, TypeVisual: true, TypeAction: true, TypeDialogue: true,
	TypeCaption: true, TypeText: true, TypeEncoder: true, TypeShot: true,
	TypeCategory: true, TypeEntity: true,
}

// Valid reports whether t belongs to the closed set
func (t NodeType) Valid() bool {
	return nodeTypes[t]
}

// Placeholder reports whether t only stands in for a node some other builder may type concretely.
// A placeholder never overwrites a concrete type on merge.
func (t NodeType) Placeholder() bool {
	return t == TypeEntity || t == TypeCategory
}

// Level returns the containment depth of a hierarchy type (macro=0 .. panel=3), or -1
func (t NodeType) Level() int {
	switch t {
	case TypeMacroEvent:
		return 0
	case TypeEvent:
		return 1
	case TypeEventSegment:
		return 2
	case TypePanel:
		return 3
	}
	return -1
}

// ParseNodeType validates a type tag
func ParseNodeType(s string) (NodeType, error) {
	t := NodeType(s)
	if !t.Valid() {
		return "", errors.Wrapf(errors.ErrUnknownNodeType, "%q", s)
	}
	return t, nil
}

// Relation labels a directed edge. The set is closed; ParseRelation rejects anything else.
type Relation string

const (
	// panel content
	RelEncodes      Relation = "encodes"
	RelAppearsIn    Relation = "appears_in"
	RelIsA          Relation = "is_a"
	RelLocatedIn    Relation = "located_in"
	RelVisualOf     Relation = "visual_of"
	RelPerforms     Relation = "performs"
	RelTargets      Relation = "targets"
	RelPartOf       Relation = "part_of"
	RelContentOf    Relation = "content_of"
	RelDescribes    Relation = "describes"
	RelShotType     Relation = "shot_type"
	RelHasVisual    Relation = "has_visual"
	RelHasTextual   Relation = "has_textual"
	RelHasAction    Relation = "has_action"
	RelHasCharacter Relation = "has_character"

	// containment
	RelSubeventOf   Relation = "subevent_of"
	RelInstantiates Relation = "instantiates"

	// membership and ordering
	RelBelongsTo         Relation = "belongs_to"
	RelNext              Relation = "next"
	RelPrecedesReading   Relation = "precedes_reading"
	RelPrecedesStorytime Relation = "precedes_storytime"
)

var relations = map[Relation]bool{
	RelEncodes: true, RelAppearsIn: true, RelIsA: true, RelLocatedIn: true,
	RelVisualOf: true, RelPerforms: true, RelTargets: true, RelPartOf: true,
	RelContentOf: true, RelDescribes: true, RelShotType: true, RelHasVisual: true,
	RelHasTextual: true, RelHasAction: true, RelHasCharacter: true,
	RelSubeventOf: true, RelInstantiates: true,
	RelBelongsTo: true, RelNext: true, RelPrecedesReading: true, RelPrecedesStorytime: true,
}

// Valid reports whether r belongs to the closed set
func (r Relation) Valid() bool {
	return relations[r]
}

// Containment reports whether r is one of the tree edges (subevent_of, instantiates)
func (r Relation) Containment() bool {
	return r == RelSubeventOf || r == RelInstantiates
}

// Ordering reports whether r is a same-level ordering edge
func (r Relation) Ordering() bool {
	return r == RelPrecedesReading || r == RelPrecedesStorytime || r == RelNext
}

// ParseRelation validates a relation tag
func ParseRelation(s string) (Relation, error) {
	r := Relation(s)
	if !r.Valid() {
		return "", errors.Wrapf(errors.ErrUnknownRelation, "%q", s)
	}
	return r, nil
}
