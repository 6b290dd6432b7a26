package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an engine failure. Every error the engine returns to a
// caller carries exactly one kind; there are no partial successes.
type ErrorKind string

const (
	KindValidation        ErrorKind = "ValidationError"
	KindIllegalTransition ErrorKind = "IllegalTransition"
	KindPermissionDenied  ErrorKind = "PermissionDenied"
	KindNotFound          ErrorKind = "NotFound"
	KindRateLimited       ErrorKind = "RateLimited"
	KindConflict          ErrorKind = "Conflict"
)

type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func Errorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// KindOf returns the kind of err. Storage failures which were not classified
// by the engine count as Conflict, because they abort (and roll back) the
// operation that triggered them.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindConflict
}
