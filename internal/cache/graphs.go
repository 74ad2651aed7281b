package cache

import (
	"encoding/json"
	"time"

	"github.com/ppiankov/panelgraph/internal/graph"
	"github.com/ppiankov/panelgraph/internal/model"
	"github.com/ppiankov/panelgraph/internal/plot"
)

// GraphCache memoizes panel-content graphs in node-link form
type GraphCache struct {
	c   Cache
	ttl time.Duration
}

// NewGraphCache wraps c; a nil c caches nothing
func NewGraphCache(c Cache, ttl time.Duration) *GraphCache {
	if c == nil {
		c = Nop{}
	}
	return &GraphCache{c: c, ttl: ttl}
}

// PanelKey identifies a panel-content graph by everything that shapes it
func PanelKey(panelID string, ann model.Annotation, meta plot.Row, scope string) string {
	annJSON, _ := json.Marshal(ann)
	// map keys marshal in sorted order, so equal rows give equal bytes
	metaJSON, _ := json.Marshal(meta)
	return Key("panel", panelID, string(annJSON), string(metaJSON), scope)
}

// Get returns the cached graph for key. A corrupt entry is a miss.
func (gc *GraphCache) Get(key string) (*graph.Graph, bool) {
	data, ok := gc.c.Get(key)
	if !ok {
		return nil, false
	}
	g, err := graph.Unmarshal(data)
	if err != nil {
		_ = gc.c.Delete(key)
		return nil, false
	}
	return g, true
}

// Put stores g under key
func (gc *GraphCache) Put(key string, g *graph.Graph) error {
	data, err := graph.Marshal(g, false)
	if err != nil {
		return err
	}
	return gc.c.Set(key, data, gc.ttl)
}
