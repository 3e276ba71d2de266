// Package gameerr is the error taxonomy shared by the game services.
package gameerr

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// Kind classifies a failure for callers.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindPrecondition
	KindConflict
	KindExpired
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPrecondition:
		return "precondition_failed"
	case KindConflict:
		return "conflict"
	case KindExpired:
		return "expired"
	case KindInvalid:
		return "invalid"
	default:
		return "internal"
	}
}

// Detail describes one unmet requirement with current vs required values.
type Detail struct {
	Clause   string `json:"clause"`
	Subject  string `json:"subject,omitempty"`
	Current  string `json:"current"`
	Required string `json:"required"`
	Message  string `json:"message"`
}

// Error is a classified game error.
type Error struct {
	Kind    Kind
	Msg     string
	Details []Detail
}

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return e.Msg
	}
	msgs := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		msgs = append(msgs, d.Message)
	}
	return e.Msg + ": " + strings.Join(msgs, "; ")
}

// Is matches the sentinel of the same kind, so errors.Is(err, ErrConflict) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Msg == "" && t.Kind == e.Kind
}

// Causes returns one error per detail, combined with multierr.
func (e *Error) Causes() error {
	var err error
	for _, d := range e.Details {
		err = multierr.Append(err, errors.New(d.Message))
	}
	return err
}

var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrPrecondition = &Error{Kind: KindPrecondition}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrExpired      = &Error{Kind: KindExpired}
	ErrInvalid      = &Error{Kind: KindInvalid}
)

func newf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error { return newf(KindNotFound, format, args...) }
func Conflict(format string, args ...any) *Error { return newf(KindConflict, format, args...) }
func Expired(format string, args ...any) *Error  { return newf(KindExpired, format, args...) }
func Invalid(format string, args ...any) *Error  { return newf(KindInvalid, format, args...) }

// Precondition reports an unmet precondition, optionally with the
// individual unmet clauses.
func Precondition(msg string, details ...Detail) *Error {
	return &Error{Kind: KindPrecondition, Msg: msg, Details: details}
}

// KindOf returns the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindInternal
}

// DetailsOf returns the unmet-clause details carried by err, if any.
func DetailsOf(err error) []Detail {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Details
	}
	return nil
}
