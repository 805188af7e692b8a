// Package telerr defines the closed error taxonomy surfaced by every core
// package. Callers use errors.Is against the Err* sentinels and errors.As
// against the structured types to recover machine-readable detail.
package telerr

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidObjectId = errors.New("invalid object id")
	ErrUnknownTypeTag  = errors.New("unknown type tag")
	ErrSerialization   = errors.New("serialization error")
	ErrIo              = errors.New("io error")
	ErrObjectNotFound  = errors.New("object not found")
	ErrRepositoryNotFound = errors.New("repository not found")
	ErrRepositoryExists   = errors.New("repository already exists")
	ErrStreamNotFound     = errors.New("stream not found")
	ErrStreamExists       = errors.New("stream already exists")
	ErrLockConflict       = errors.New("lock already held")
	ErrInvalidHead        = errors.New("invalid HEAD")
)

// AmbiguousPrefixError reports a hex prefix that resolves to more than one
// stored object.
type AmbiguousPrefixError struct {
	Prefix string
	Count  int
}

func (e *AmbiguousPrefixError) Error() string {
	return fmt.Sprintf("ambiguous prefix %q matches %d objects", e.Prefix, e.Count)
}

func (e *AmbiguousPrefixError) Is(target error) bool { return target == ErrObjectNotFound }

// IntegrityError reports that the bytes read back from the object database
// do not hash to the path they were read from.
type IntegrityError struct {
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity error: expected %s, got %s", e.Expected, e.Actual)
}

// InvalidStreamNameError reports a violation of the stream-name grammar.
type InvalidStreamNameError struct {
	Name   string
	Reason string
}

func (e *InvalidStreamNameError) Error() string {
	return fmt.Sprintf("invalid stream name %q: %s", e.Name, e.Reason)
}

// InvalidReferenceError reports that a typed cross-reference failed
// validation at creation time (the referenced object exists but carries the
// wrong type tag).
type InvalidReferenceError struct {
	Msg string
}

func (e *InvalidReferenceError) Error() string { return "invalid reference: " + e.Msg }

// Wrap annotates err with a call-site message while preserving errors.Is/As
// matching against the wrapped sentinel or structured type.
func Wrap(msg string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
