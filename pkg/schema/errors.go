package schema

import (
	"errors"
	"fmt"

	"github.com/morabah/posalpro-app-sub013/pkg/domain"
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Key    string // Field name
	Reason string // Human-readable reason for failure
	Value  any    // The value that failed validation
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("field %q: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("field %q: %s (got %T)", e.Key, e.Reason, e.Value)
}

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}

// FieldErrors flattens a validation error into field/reason pairs.
// Errors that carry no field information become a single entry with an empty field.
func FieldErrors(err error) []domain.FieldError {
	if err == nil {
		return nil
	}
	list := ValidationErrors(err)
	if list == nil {
		list = []error{err}
	}
	out := make([]domain.FieldError, 0, len(list))
	for _, e := range list {
		var ve *ValidationError
		if errors.As(e, &ve) {
			out = append(out, domain.FieldError{Field: ve.Key, Reason: ve.Reason})
			continue
		}
		out = append(out, domain.FieldError{Reason: e.Error()})
	}
	return out
}
