// Package errors carries the typed error codes shared by services and the
// HTTP layer. Each code fixes the response status and whether its message
// and details may reach the client.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// exposure is a bit set of what a client may see besides the code.
type exposure uint8

const (
	showMessage exposure = 1 << iota
	showDetails
)

type policy struct {
	status   int
	fallback string
	exposure exposure
}

var policies = map[Code]policy{
	CodeValidation:    {http.StatusBadRequest, "validation failed", showMessage | showDetails},
	CodeUnauthorized:  {http.StatusUnauthorized, "authentication required", showMessage},
	CodeForbidden:     {http.StatusForbidden, "access denied", showMessage},
	CodeNotFound:      {http.StatusNotFound, "resource not found", showMessage},
	CodeConflict:      {http.StatusConflict, "conflict detected", showMessage},
	CodeStateConflict: {http.StatusUnprocessableEntity, "state transition disallowed", showMessage | showDetails},
	CodeIdempotency:   {http.StatusConflict, "idempotency key reused", showMessage | showDetails},
	CodeRateLimit:     {http.StatusTooManyRequests, "rate limit exceeded", showMessage},
	CodeInternal:      {http.StatusInternalServerError, "internal server error", 0},
	CodeDependency:    {http.StatusServiceUnavailable, "dependency unavailable", showDetails},
}

// policy falls back to CodeInternal for codes outside the table.
func (c Code) policy() policy {
	if p, ok := policies[c]; ok {
		return p
	}
	return policies[CodeInternal]
}

// Status is the HTTP status a response carrying c uses.
func (c Code) Status() int {
	return c.policy().status
}

// Error is the typed error returned by services.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap keeps err reachable through errors.Is/As. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	e := New(code, message)
	e.cause = err
	return e
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails attaches client-facing context. It mutates and returns e.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

// PublicMessage is the text a client may see for this error.
func (e *Error) PublicMessage() string {
	p := e.Code().policy()
	if msg := e.Message(); msg != "" && p.exposure&showMessage != 0 {
		return msg
	}
	return p.fallback
}

// PublicDetails is nil unless the code lets details through.
func (e *Error) PublicDetails() any {
	if e.Code().policy().exposure&showDetails == 0 {
		return nil
	}
	return e.Details()
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause == nil:
		return string(e.code) + ": " + e.message
	default:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

func IsCode(err error, code Code) bool {
	return As(err).codeIs(code)
}

func (e *Error) codeIs(code Code) bool {
	return e != nil && e.code == code
}

// HTTPStatus maps any error to a status; untyped errors are 500.
func HTTPStatus(err error) int {
	return As(err).Code().Status()
}
