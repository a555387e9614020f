// Package domainerrors provides code-carrying domain errors. Services return
// these so transport layers can translate failures into specific responses
// without string matching. Store layers return sentinel errors instead;
// services are responsible for the translation. Import as dErrors.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for callers.
type Code string

const (
	// CodeInvalidInput marks malformed input rejected before touching state.
	CodeInvalidInput Code = "invalid_input"
	// CodeBadRequest marks a structurally valid but unusable request.
	CodeBadRequest Code = "bad_request"
	// CodeUnauthorized marks a missing or invalid identity.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks an actor lacking the role for an operation.
	CodeForbidden Code = "forbidden"
	// CodeNotFound marks an absent entity or missing configuration data.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a state error: illegal transition, double
	// publication, locked evaluation.
	CodeConflict Code = "conflict"
	// CodeInvariantViolation marks data that breaks a domain invariant,
	// such as an ambiguous ranking tie.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeUnavailable marks a transient condition the caller may retry,
	// such as losing a concurrent regeneration race.
	CodeUnavailable Code = "unavailable"
	// CodeInternal marks unexpected infrastructure failures.
	CodeInternal Code = "internal"
)

// Error is a domain error with a classification code. The wrapped cause, if
// any, is preserved for errors.Is/As chains.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap annotates an underlying error with a domain code and message.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		de = nil
	}
	return false
}

// CodeOf returns the outermost domain code, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost domain message, or a generic one.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a domain code to an HTTP status for transport layers.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
