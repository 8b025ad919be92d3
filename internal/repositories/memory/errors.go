package memory

import (
	"errors"
	"fmt"
)

// ErrClosed is returned once the store has been closed.
var ErrClosed = errors.New("memory store: closed")

type failure uint8

const (
	failNotFound failure = iota + 1
	failConflict
	failUnavailable
)

// Error satisfies repositories.RepositoryError so services classify memory and Firestore
// failures the same way.
type Error struct {
	op   string
	err  error
	kind failure
}

func (e *Error) Error() string { return e.op + ": " + e.err.Error() }

func (e *Error) Unwrap() error { return e.err }

func (e *Error) IsNotFound() bool    { return e != nil && e.kind == failNotFound }
func (e *Error) IsConflict() bool    { return e != nil && e.kind == failConflict }
func (e *Error) IsUnavailable() bool { return e != nil && e.kind == failUnavailable }

func notFound(op, format string, args ...any) error {
	return &Error{op: op, err: fmt.Errorf(format, args...), kind: failNotFound}
}

func conflict(op, format string, args ...any) error {
	return &Error{op: op, err: fmt.Errorf(format, args...), kind: failConflict}
}

func unavailable(op string) error {
	return &Error{op: op, err: ErrClosed, kind: failUnavailable}
}
