// Package errs defines the error taxonomy shared by the simulation core.
//
// Every subsystem wraps its failures in one of a small set of kinds so the
// boundary that finally handles the error can decide what to do with it
// without string matching: the simulation thread logs and drops script
// errors, treats protocol errors as a peer disconnect, and treats invariant
// violations as fatal.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for boundary handling.
type Kind int

const (
	KindUnknown Kind = iota
	KindIo
	KindParse
	KindNetwork
	KindProtocol
	KindScript
	KindNotFound
	KindInvariant
)

// String returns the canonical name of the kind.
func (k Kind) String() string {
	switch k {
	case KindIo:
		return "io"
	case KindParse:
		return "parse"
	case KindNetwork:
		return "network"
	case KindProtocol:
		return "protocol"
	case KindScript:
		return "script"
	case KindNotFound:
		return "not-found"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Error is a classified error, optionally wrapping a cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap exposes the cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error { return e.Err }

// New creates a classified error with a formatted message.
func New(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error. Returns nil if err is nil.
func Wrap(kind Kind, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, walking the wrap chain.
// Unclassified errors report KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether KindOf(err), the kind of the outermost classified
// error in the chain, equals the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
