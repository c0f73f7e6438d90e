package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures crossing the engine boundary.
type ErrorKind string

const (
	ErrConnection        ErrorKind = "CONNECTION_ERROR"
	ErrIntrospection     ErrorKind = "INTROSPECTION_ERROR"
	ErrQueryCompile      ErrorKind = "QUERY_COMPILE_ERROR"
	ErrExecution         ErrorKind = "EXECUTION_ERROR"
	ErrThresholdExceeded ErrorKind = "THRESHOLD_EXCEEDED"
	ErrInvalidProfile    ErrorKind = "INVALID_PROFILE"
	ErrNotConnected      ErrorKind = "NOT_CONNECTED"
)

// EngineError carries a kind, a vendor-agnostic message and the driver cause.
type EngineError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

// NewError builds an EngineError.
func NewError(kind ErrorKind, message string, cause error) *EngineError {
	return &EngineError{Kind: kind, Message: message, Cause: cause}
}

// IsKind reports whether err (or anything it wraps) is an EngineError of kind.
func IsKind(err error, kind ErrorKind) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first EngineError in err's chain, or "".
func KindOf(err error) ErrorKind {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ""
}
