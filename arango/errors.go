package arango

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorCode is the kind of an Error
type ErrorCode string

const (
	// reconciliation could not fetch or decode the server metadata
	ErrCodeMetadataFetch ErrorCode = "METADATA_FETCH_FAILED"
	// a collection or graph was rejected locally (duplicate) or by the server
	ErrCodeCreation ErrorCode = "CREATION_FAILED"
	// a graph definition references unknown collections or a non edge collection
	ErrCodeValidation ErrorCode = "VALIDATION_FAILED"
	// a lookup missed even after a reconciliation
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// the server rejected a query during syntax validation
	ErrCodeQuerySyntax ErrorCode = "QUERY_SYNTAX"
	// an argument broke an api constraint, nothing was sent
	ErrCodeConstraint ErrorCode = "CONSTRAINT_VIOLATION"
	// running or paging a cursor failed
	ErrCodeQuery ErrorCode = "QUERY_FAILED"
)

// Sentinels for errors.Is, matched by code
var (
	ErrMetadataFetch = &Error{Code: ErrCodeMetadataFetch}
	ErrCreation      = &Error{Code: ErrCodeCreation}
	ErrValidation    = &Error{Code: ErrCodeValidation}
	ErrNotFound      = &Error{Code: ErrCodeNotFound}
	ErrQuerySyntax   = &Error{Code: ErrCodeQuerySyntax}
	ErrConstraint    = &Error{Code: ErrCodeConstraint}
	ErrQuery         = &Error{Code: ErrCodeQuery}
)

// Error is the structured error of every database operation.
// ServerMessage and Body keep what the server said, verbatim.
type Error struct {
	Code          ErrorCode
	Message       string
	ServerMessage string
	StatusCode    int
	Body          json.RawMessage
	Query         string
	Cause         error
}

// Error formats "[CODE] message: server message" or "[CODE] message: cause"
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.ServerMessage != "" {
		msg += ": " + e.ServerMessage
	} else if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func newError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func wrapError(code ErrorCode, cause error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// serverError builds an error out of a failed response, keeping the body
func serverError(code ErrorCode, r *reply, format string, args ...interface{}) *Error {
	return &Error{
		Code:          code,
		Message:       fmt.Sprintf(format, args...),
		ServerMessage: r.message(),
		StatusCode:    r.status,
		Body:          r.body,
	}
}

// IsNotFound reports whether err is a lookup miss
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
