package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morabah/posalpro-app-sub013/pkg/domain"
)

func TestValidate_Success(t *testing.T) {
	s := Schema{
		"name":  NonEmptyString(),
		"limit": Optional(PositiveInt()),
		"tags":  Slice(String()),
	}

	err := s.Validate(map[string]any{
		"name": "Q3 bid",
		"tags": []any{"gov", "rfp"},
	})
	assert.NoError(t, err)
}

func TestValidate_ReportsEveryFieldInOrder(t *testing.T) {
	s := Schema{
		"name":   NonEmptyString(),
		"budget": Float(),
		"limit":  Optional(PositiveInt()),
	}

	err := s.Validate(map[string]any{
		"name":  "",
		"limit": float64(-1),
	})
	require.Error(t, err)

	want := []domain.FieldError{
		{Field: "budget", Reason: "required"},
		{Field: "limit", Reason: "must be a positive integer, got -1"},
		{Field: "name", Reason: "must not be empty"},
	}
	if diff := cmp.Diff(want, FieldErrors(err)); diff != "" {
		t.Errorf("FieldErrors mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_EmptySchemaAcceptsAnything(t *testing.T) {
	assert.NoError(t, Validate(nil, map[string]any{"x": 1}))
	assert.NoError(t, Schema{}.Validate(nil))
}

func TestValidate_OptionalNullIsAccepted(t *testing.T) {
	s := Schema{"limit": Optional(Int())}
	assert.NoError(t, s.Validate(map[string]any{"limit": nil}))
}

func TestValidateFields(t *testing.T) {
	s := Schema{"name": String(), "limit": Int()}

	err := ValidateFields(s, map[string]any{"name": 3}, "name", "missing")
	require.Error(t, err)

	got := FieldErrors(err)
	require.Len(t, got, 2)
	assert.Equal(t, "name", got[0].Field)
	assert.Equal(t, domain.FieldError{Field: "missing", Reason: "not defined in schema"}, got[1])

	assert.NoError(t, ValidateFields(s, nil))
}

func TestFieldErrors_PlainError(t *testing.T) {
	got := FieldErrors(assert.AnError)
	assert.Equal(t, []domain.FieldError{{Reason: assert.AnError.Error()}}, got)
	assert.Nil(t, FieldErrors(nil))
}

func TestAggregateError_Message(t *testing.T) {
	err := &AggregateError{Errors: []error{
		&ValidationError{Key: "a", Reason: "required"},
		&ValidationError{Key: "b", Reason: "bad", Value: 3},
	}}
	assert.Contains(t, err.Error(), "2 validation errors")
	assert.Contains(t, err.Error(), `field "b": bad (got int)`)
}
