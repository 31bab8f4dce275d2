// Package clammerr defines the tagged error type shared by the pricing engine.
//
// Every failure the engine can report is a package-level sentinel created with New,
// so callers match a specific failure with errors.Is and a whole category with
// errors.As and Kind.
package clammerr

import "errors"

// Kind classifies an engine error.
type Kind uint8

const (
	// Arithmetic covers division by zero, results too wide for their type and
	// signed overflow in liquidity or fee accounting.
	Arithmetic Kind = iota + 1
	// Bounds covers ticks, prices and liquidity outside their permitted domain.
	Bounds
	// Lifecycle covers operations attempted in the wrong pool or position state.
	Lifecycle
	// Internal signals broken bookkeeping. It is never caused by caller input alone.
	Internal
)

func (k Kind) String() string {
	switch k {
	case Arithmetic:
		return "arithmetic"
	case Bounds:
		return "bounds"
	case Lifecycle:
		return "lifecycle"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a single tagged engine failure.
type Error struct {
	Kind Kind
	msg  string
}

// New creates a sentinel error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

func (e *Error) Error() string {
	return e.msg
}

// KindOf returns the kind of the first tagged error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
