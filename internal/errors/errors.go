// Package errors provides error handling for panelgraph.
//
// It re-exports github.com/cockroachdb/errors so every package wraps and
// inspects errors the same way, and defines the sentinel kinds callers
// match with Is:
//
//	if errors.Is(err, errors.ErrStructuralViolation) {
//	    // containment tree is broken, reasoning results would be incomplete
//	}
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is           = crdb.Is
	IsAny        = crdb.IsAny
	As           = crdb.As
	Unwrap       = crdb.Unwrap
	UnwrapAll    = crdb.UnwrapAll
	GetAllHints  = crdb.GetAllHints
	FlattenHints = crdb.FlattenHints
	Join         = crdb.Join
)

// Sentinel kinds. Wrap them to add context; Is still matches.
var (
	// ErrStructuralViolation means the containment tree
	// (panel -> segment -> event -> macro) is broken after integration.
	ErrStructuralViolation = New("structural violation")

	// ErrUnknownNodeType rejects a node type outside the closed set.
	ErrUnknownNodeType = New("unknown node type")

	// ErrUnknownRelation rejects an edge relation outside the closed set.
	ErrUnknownRelation = New("unknown relation")

	// ErrDanglingEdge means an edge endpoint was never declared as a node.
	ErrDanglingEdge = New("dangling edge")

	// ErrMalformedInput covers JSON/CSV documents with the wrong shape.
	ErrMalformedInput = New("malformed input")

	// ErrNotFound indicates a missing input file or directory.
	ErrNotFound = New("not found")
)

// IsStructuralViolation reports whether err is or wraps ErrStructuralViolation.
func IsStructuralViolation(err error) bool {
	return err != nil && Is(err, ErrStructuralViolation)
}

// IsMalformedInput reports whether err is or wraps ErrMalformedInput.
func IsMalformedInput(err error) bool {
	return err != nil && Is(err, ErrMalformedInput)
}
