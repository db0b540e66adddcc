package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Code classifies a structured Error. Every Code maps to exactly one HTTP status.
type Code string

const (
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeInvalidContentType Code = "INVALID_CONTENT_TYPE"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeInternal           Code = "INTERNAL_ERROR"
	CodeUnavailable        Code = "SERVICE_UNAVAILABLE"
)

var statusByCode = map[Code]int{
	CodeUnauthorized:       http.StatusUnauthorized,
	CodeForbidden:          http.StatusForbidden,
	CodeValidation:         http.StatusBadRequest,
	CodeInvalidContentType: http.StatusBadRequest,
	CodeNotFound:           http.StatusNotFound,
	CodeConflict:           http.StatusConflict,
	CodeRateLimited:        http.StatusTooManyRequests,
	CodeInternal:           http.StatusInternalServerError,
	CodeUnavailable:        http.StatusServiceUnavailable,
}

// StatusFor returns the HTTP status for code. Unknown codes map to 500.
func StatusFor(code Code) int {
	if s, ok := statusByCode[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// FieldError describes one violated field of a request.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (f FieldError) String() string {
	if f.Field == "" {
		return f.Reason
	}
	return f.Field + ": " + f.Reason
}

// Error is the structured error recognised by the route error normalizer.
type Error struct {
	Code    Code
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status mapped from the error code.
func (e *Error) Status() int { return StatusFor(e.Code) }

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func Unauthorized(msg string) *Error {
	if msg == "" {
		msg = "Unauthorized access"
	}
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// Forbidden builds the role gate failure naming the required roles.
func Forbidden(required []string) *Error {
	return &Error{
		Code:    CodeForbidden,
		Message: fmt.Sprintf("Access denied: requires one of roles [%s]", strings.Join(required, ", ")),
	}
}

func BadRequest(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validation builds a bad request error enumerating every violated field.
func Validation(prefix string, fields []FieldError) *Error {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.String())
	}
	msg := prefix
	if len(parts) > 0 {
		msg = prefix + ": " + strings.Join(parts, "; ")
	}
	return &Error{Code: CodeValidation, Message: msg, Fields: fields}
}

func InvalidContentType(got string) *Error {
	if got == "" {
		got = "none"
	}
	return &Error{
		Code:    CodeInvalidContentType,
		Message: fmt.Sprintf("Invalid content type: expected application/json, got %s", got),
	}
}

func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

func Internal(msg string, err error) *Error {
	if msg == "" {
		msg = "Internal server error"
	}
	return &Error{Code: CodeInternal, Message: msg, Err: err}
}

// Wrap attaches code and message to an underlying error.
func Wrap(code Code, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}
