package core

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every *Error matches exactly one of them through errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrNotAuthorized = errors.New("not authorized")
	ErrForbidden     = errors.New("forbidden")
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("conflict")
)

// Error is a domain failure with a message safe to show to the caller.
type Error struct {
	Kind    error
	Message string
	Details []string
}

func (e *Error) Error() string {
	if len(e.Details) > 0 {
		return e.Message + ": " + strings.Join(e.Details, "; ")
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) error {
	return newError(ErrNotFound, format, args...)
}

func NotAuthorizedf(format string, args ...any) error {
	return newError(ErrNotAuthorized, format, args...)
}

func Forbiddenf(format string, args ...any) error {
	return newError(ErrForbidden, format, args...)
}

func Validationf(format string, args ...any) error {
	return newError(ErrValidation, format, args...)
}

func Conflictf(format string, args ...any) error {
	return newError(ErrConflict, format, args...)
}

// Message returns the caller-facing message of err and any details.
func Message(err error) (string, []string) {
	var de *Error
	if errors.As(err, &de) {
		return de.Message, de.Details
	}
	return err.Error(), nil
}

// Validation accumulates failed checks into a single validation error.
type Validation struct {
	problems []string
}

func (v *Validation) Check(ok bool, message string) {
	if !ok {
		v.problems = append(v.problems, message)
	}
}

func (v *Validation) Err() error {
	switch len(v.problems) {
	case 0:
		return nil
	case 1:
		return &Error{Kind: ErrValidation, Message: v.problems[0]}
	}
	return &Error{Kind: ErrValidation, Message: "Validation Error", Details: v.problems}
}
