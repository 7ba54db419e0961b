package collection

import (
	"errors"
)

// Kind classifies why a document was rejected.
type Kind string

// Rejection kinds.
const (
	KindInvalidJSON        Kind = "invalid_json"
	KindUnrecognizedSchema Kind = "unrecognized_schema"
)

// Sentinel errors matched by errors.Is against a *ParseError.
var (
	ErrInvalidJSON        = errors.New("invalid JSON")
	ErrUnrecognizedSchema = errors.New("unrecognized collection schema")
)

// ParseError reports a document that cannot be used as a collection.
type ParseError struct {
	Kind    Kind
	Source  string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	msg := e.Message
	if e.Source != "" {
		msg = e.Source + ": " + msg
	}
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel for the error's kind.
func (e *ParseError) Is(target error) bool {
	switch e.Kind {
	case KindInvalidJSON:
		return target == ErrInvalidJSON
	case KindUnrecognizedSchema:
		return target == ErrUnrecognizedSchema
	}
	return false
}

// KindOf returns the rejection kind of err, or "" if err is not a *ParseError.
func KindOf(err error) Kind {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
