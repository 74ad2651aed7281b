package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ppiankov/panelgraph/internal/errors"
)

// nodeLinkDoc is the persisted node-link document
type nodeLinkDoc struct {
	Directed   bool                   `json:"directed"`
	Multigraph bool                   `json:"multigraph"`
	Graph      map[string]interface{} `json:"graph"`
	Nodes      []json.RawMessage      `json:"nodes"`
	Links      []json.RawMessage      `json:"links,omitempty"`
	Edges      []json.RawMessage      `json:"edges,omitempty"`
}

// reserved node keys; everything else is an attribute
var reservedNodeKeys = map[string]bool{"id": true, "type": true, "label": true}

// MarshalJSON flattens attributes next to id/type/label
func (n Node) MarshalJSON() ([]byte, error) {
	m := make(map[string]string, len(n.Attrs)+3)
	for k, v := range n.Attrs {
		m[k] = v
	}
	m["id"] = n.ID
	m["type"] = string(n.Type)
	m["label"] = n.Label
	return json.Marshal(m)
}

// UnmarshalJSON reads a node, validating its type against the closed set.
// A node written without a type (networkx creates these implicitly for edge
// endpoints) is loaded as an entity placeholder.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Mark(errors.Wrap(err, "decode node"), errors.ErrMalformedInput)
	}

	id, ok := raw["id"]
	if !ok {
		return errors.Wrap(errors.ErrMalformedInput, "node without id")
	}
	n.ID = scalarString(id)

	n.Type = TypeEntity
	if t, ok := raw["type"]; ok && scalarString(t) != "" {
		parsed, err := ParseNodeType(scalarString(t))
		if err != nil {
			return errors.Wrapf(err, "node %q", n.ID)
		}
		n.Type = parsed
	}

	n.Label = n.ID
	if l, ok := raw["label"]; ok && l != nil {
		n.Label = scalarString(l)
	}

	n.Attrs = nil
	for k, v := range raw {
		if reservedNodeKeys[k] || v == nil {
			continue
		}
		if n.Attrs == nil {
			n.Attrs = make(map[string]string)
		}
		n.Attrs[k] = scalarString(v)
	}
	return nil
}

// MarshalJSON writes an edge as {"source","target","relation"}
func (e Edge) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Source   string `json:"source"`
		Target   string `json:"target"`
		Relation string `json:"relation"`
	}{e.Source, e.Target, string(e.Relation)})
}

// UnmarshalJSON reads an edge, accepting "relation" or "type" as the label key
func (e *Edge) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Mark(errors.Wrap(err, "decode edge"), errors.ErrMalformedInput)
	}
	src, okS := raw["source"]
	tgt, okT := raw["target"]
	if !okS || !okT {
		return errors.Wrap(errors.ErrMalformedInput, "edge without source/target")
	}
	e.Source = scalarString(src)
	e.Target = scalarString(tgt)

	label, ok := raw["relation"]
	if !ok {
		label, ok = raw["type"]
	}
	if !ok {
		return errors.Wrapf(errors.ErrMalformedInput, "edge %s -> %s without relation", e.Source, e.Target)
	}
	rel, err := ParseRelation(scalarString(label))
	if err != nil {
		return errors.Wrapf(err, "edge %s -> %s", e.Source, e.Target)
	}
	e.Relation = rel
	return nil
}

// Marshal encodes g as a node-link document
func Marshal(g *Graph, indent bool) ([]byte, error) {
	doc := struct {
		Directed   bool                   `json:"directed"`
		Multigraph bool                   `json:"multigraph"`
		Graph      map[string]interface{} `json:"graph"`
		Nodes      []Node                 `json:"nodes"`
		Links      []Edge                 `json:"links"`
	}{
		Directed:   true,
		Multigraph: true,
		Graph:      map[string]interface{}{},
		Nodes:      g.Nodes(),
		Links:      g.Edges(),
	}
	if doc.Links == nil {
		doc.Links = []Edge{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(doc); err != nil {
		return nil, errors.Wrap(err, "encode node-link")
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a node-link document. Edges may sit under "links" or "edges".
func Unmarshal(data []byte) (*Graph, error) {
	var doc nodeLinkDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode node-link"), errors.ErrMalformedInput)
	}

	g := New()
	for _, rawNode := range doc.Nodes {
		var n Node
		if err := json.Unmarshal(rawNode, &n); err != nil {
			return nil, err
		}
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}

	rawEdges := doc.Links
	if len(rawEdges) == 0 {
		rawEdges = doc.Edges
	}
	for _, rawEdge := range rawEdges {
		var e Edge
		if err := json.Unmarshal(rawEdge, &e); err != nil {
			return nil, err
		}
		if err := g.AddEdge(e.Source, e.Target, e.Relation); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Load reads a node-link JSON file
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrNotFound, "graph file %s", path)
		}
		return nil, errors.Wrapf(err, "read graph %s", path)
	}
	g, err := Unmarshal(data)
	if err != nil {
		return nil, errors.Wrapf(err, "load graph %s", path)
	}
	return g, nil
}

// Save writes g to path as node-link JSON, creating parent directories
func Save(g *Graph, path string, indent bool) error {
	data, err := Marshal(g, indent)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "create dir for %s", path)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "write graph %s", path)
	}
	return nil
}

// scalarString renders JSON scalars the way they would appear in a spreadsheet cell
func scalarString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
