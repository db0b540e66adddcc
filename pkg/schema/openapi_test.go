package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const proposalSchemaYAML = `
type: object
required: [name]
properties:
  name:
    type: string
    minLength: 1
  budget:
    type: number
    minimum: 0
`

func TestOpenAPI_Valid(t *testing.T) {
	v, err := ParseOpenAPI([]byte(proposalSchemaYAML))
	require.NoError(t, err)

	assert.NoError(t, v.Validate(map[string]any{"name": "Bid", "budget": 10.0}))
}

func TestOpenAPI_CollectsEveryViolation(t *testing.T) {
	v, err := ParseOpenAPI([]byte(proposalSchemaYAML))
	require.NoError(t, err)

	err = v.Validate(map[string]any{"budget": -1.0})
	require.Error(t, err)

	fields := FieldErrors(err)
	require.Len(t, fields, 2)
	assert.Equal(t, "budget", fields[0].Field)
	assert.Equal(t, "name", fields[1].Field)
	for _, f := range fields {
		assert.NotEmpty(t, f.Reason)
	}
}

func TestOpenAPI_JSONInput(t *testing.T) {
	v, err := ParseOpenAPI([]byte(`{"type":"object","properties":{"n":{"type":"integer"}}}`))
	require.NoError(t, err)
	require.NotNil(t, v.Schema())

	err = v.Validate(map[string]any{"n": "x"})
	require.Error(t, err)
	assert.Equal(t, "n", FieldErrors(err)[0].Field)
}

func TestParseOpenAPI_Malformed(t *testing.T) {
	_, err := ParseOpenAPI([]byte("type: [unterminated"))
	assert.Error(t, err)
}
