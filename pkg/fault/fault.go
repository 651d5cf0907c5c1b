package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure according to how callers are expected to react.
type Kind int

const (
	// KindNotFound: a session/index was absent where presence is a precondition.
	KindNotFound Kind = iota
	// KindStorage: the index medium is unreadable or corrupt. Always fatal.
	KindStorage
	// KindPersistence: a history write failed. Surfaced as a warning after a
	// delivered answer, fatal before one.
	KindPersistence
	// KindGeneration: the upstream generation/reformulation service failed or
	// returned malformed output.
	KindGeneration
	// KindValidation: caller input is malformed (missing identifiers etc).
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindStorage:
		return "storage_fault"
	case KindPersistence:
		return "persistence_fault"
	case KindGeneration:
		return "generation_fault"
	case KindValidation:
		return "validation_fault"
	}
	return "unknown"
}

// Fault wraps an underlying error with its classification.
type Fault struct {
	Kind Kind
	Msg  string
	Err  error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Msg, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Msg)
}

func (f *Fault) Unwrap() error { return f.Err }

func New(kind Kind, msg string) error {
	return &Fault{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Fault{Kind: kind, Msg: msg, Err: err}
}

func NotFound(msg string) error           { return New(KindNotFound, msg) }
func Storage(msg string, err error) error { return Wrap(KindStorage, msg, err) }
func Persistence(msg string, err error) error {
	return Wrap(KindPersistence, msg, err)
}
func Generation(msg string, err error) error {
	return Wrap(KindGeneration, msg, err)
}
func Validation(msg string) error { return New(KindValidation, msg) }

// Is reports whether err (or anything it wraps) is a Fault of the given kind.
func Is(err error, kind Kind) bool {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind == kind
	}
	return false
}
