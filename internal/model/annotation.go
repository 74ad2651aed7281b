package model

import "strings"

// Annotation is one panel's manual annotation as written by the annotation tool
type Annotation struct {
	Caption    string   `json:"caption"`
	Scene      []string `json:"scene"`      // Scene objects
	Characters []string `json:"characters"` // Raw character names
	Actions    []string `json:"actions"`    // "<subject> <verb> <object...>"
	Visual     Visual   `json:"visual"`
	Textual    Textual  `json:"textual"`
}

// Visual holds the image reference and visual encoder tags
type Visual struct {
	PanelImage string   `json:"panel_image,omitempty"`
	Encoders   []string `json:"encoders"`
}

// Textual holds the dialogue lines; empty lines are kept to preserve line count
type Textual struct {
	Dialogues []string `json:"dialogues"`
}

// AnnotationPage is the on-disk document for one page (<book>_<page>.json)
type AnnotationPage struct {
	Panels []Annotation `json:"panels"`
}

// Normalize trims whitespace left over from the annotation tool's comma splitting.
// Entries are trimmed in place, never dropped: positions feed node IDs.
func (a *Annotation) Normalize() {
	a.Caption = strings.TrimSpace(a.Caption)
	trimAll(a.Scene)
	trimAll(a.Characters)
	trimAll(a.Actions)
	trimAll(a.Visual.Encoders)
	trimAll(a.Textual.Dialogues)
}

func trimAll(values []string) {
	for i := range values {
		values[i] = strings.TrimSpace(values[i])
	}
}

// PanelAnnotation pairs an annotation with its panel ID (<book>_<page>_<index>)
type PanelAnnotation struct {
	PanelID    string
	Book       string
	Annotation Annotation
}
