// Package builder turns annotations and plot metadata into graphs.
//
// A Session scopes one build pass. Builders never share state across
// sessions, so several books can be built concurrently.
package builder

import (
	"github.com/ppiankov/panelgraph/internal/logger"
	"github.com/ppiankov/panelgraph/internal/model"
	"go.uber.org/zap"
)

// Options configures a Session
type Options struct {
	// CharacterScope is model.CharacterScopeGlobal (default) or model.CharacterScopeBook
	CharacterScope string
	// Logger defaults to the "builder" child of the global logger
	Logger *zap.SugaredLogger
}

// Stats counts what a session built and skipped
type Stats struct {
	Panels         int `json:"panels"`          // panel graphs built (the pipeline adds cache hits)
	SkippedActions int `json:"skipped_actions"` // action strings with fewer than 3 tokens
	SkippedRows    int `json:"skipped_rows"`    // metadata rows without a full containment chain
	SkippedOrders  int `json:"skipped_orders"`  // storytime overrides with a missing endpoint
}

// Session carries per-build context
type Session struct {
	scope string
	log   *zap.SugaredLogger
	stats Stats
}

// NewSession creates a build session
func NewSession(opts Options) *Session {
	scope := opts.CharacterScope
	if scope == "" {
		scope = model.CharacterScopeGlobal
	}
	log := opts.Logger
	if log == nil {
		log = logger.Named("builder")
	}
	return &Session{scope: scope, log: log}
}

// Scope returns the character identity scope
func (s *Session) Scope() string {
	return s.scope
}

// Stats returns the counters collected so far
func (s *Session) Stats() Stats {
	return s.stats
}

// CharacterID returns the node ID for a character or action participant.
// Global scope uses the raw name, so "Tom" in any panel of any book is one
// node. Book scope prefixes the book so same-named characters in different
// books stay apart.
func (s *Session) CharacterID(book, name string) string {
	if s.scope == model.CharacterScopeBook && book != "" {
		return book + "::" + name
	}
	return name
}
