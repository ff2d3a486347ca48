package classify

import (
	"errors"
	"strings"
)

// Error is a classified failure carrying the message shown to the user.
type Error struct {
	Kind    Kind
	Message string
	Details []string
	Cause   error
}

func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Message: kind.Message(), Cause: cause}
}

// WithMessage overrides the default user message.
func WithMessage(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Validation builds a ValidationFailed error whose message lists the details.
func Validation(details []string, cause error) *Error {
	msg := MessageValidationFailed
	if len(details) > 0 {
		msg += ": " + strings.Join(details, "; ")
	}
	return &Error{Kind: KindValidationFailed, Message: msg, Details: details, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Kind.String() + ": " + e.Cause.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same kind, so errors.Is(err,
// classify.New(classify.KindAuthExpired, nil)) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of a classified error, or 0 when err is not one.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}
