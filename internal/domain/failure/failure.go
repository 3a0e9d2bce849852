// Package failure holds the closed error taxonomy shared by the gateway
// boundary and the orchestrator. Callers above the gateway never see raw
// gateway codes, only a Kind.
package failure

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// Fatal is the zero value so anything left unclassified aborts.
	Fatal Kind = iota
	Retryable
	BadInput
	Conflict
	NotFound
)

func (k Kind) String() string {
	switch k {
	case Retryable:
		return "retryable"
	case BadInput:
		return "bad_input"
	case Conflict:
		return "conflict"
	case NotFound:
		return "not_found"
	default:
		return "fatal"
	}
}

type Error struct {
	Kind    Kind
	Code    string
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Op != "" && e.Code != "":
		return fmt.Sprintf("%s: %s (%s)", e.Op, msg, e.Code)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, msg)
	case e.Code != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, failure.ErrConflict) style checks match on kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == "" && t.Op == "" && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Bare kind markers for errors.Is.
var (
	ErrFatal     = &Error{Kind: Fatal}
	ErrRetryable = &Error{Kind: Retryable}
	ErrBadInput  = &Error{Kind: BadInput}
	ErrConflict  = &Error{Kind: Conflict}
	ErrNotFound  = &Error{Kind: NotFound}
)

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain. Errors that
// were never classified are Fatal.
func KindOf(err error) Kind {
	if err == nil {
		return Fatal
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Fatal
}

func IsRetryable(err error) bool {
	return err != nil && KindOf(err) == Retryable
}

func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == NotFound
}
