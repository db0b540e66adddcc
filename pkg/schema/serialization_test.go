package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSchema_YAML(t *testing.T) {
	var s Schema
	err := yaml.Unmarshal([]byte("name: non_empty_string\nlimit: positive_int?\n"), &s)
	require.NoError(t, err)

	assert.Equal(t, "non_empty_string", s["name"].Name())
	assert.Equal(t, "positive_int?", s["limit"].Name())

	out, err := yaml.Marshal(s)
	require.NoError(t, err)

	var back Schema
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, "positive_int?", back["limit"].Name())
}

func TestSchema_YAMLRejectsNonStringType(t *testing.T) {
	var s Schema
	assert.Error(t, yaml.Unmarshal([]byte("limit: 3\n"), &s))
}

func TestSchema_JSONRoundTrip(t *testing.T) {
	in := Schema{"tags": Slice(String()), "limit": Optional(Int())}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tags":"[string]","limit":"int?"}`, string(data))

	var out Schema
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "int?", out["limit"].Name())

	require.NoError(t, json.Unmarshal([]byte("null"), &out))
	assert.Nil(t, out)
}
