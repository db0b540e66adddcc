package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// OpenAPI validates data against an OpenAPI 3 schema object.
type OpenAPI struct {
	schema *openapi3.Schema
}

// NewOpenAPI wraps an already built schema.
func NewOpenAPI(s *openapi3.Schema) *OpenAPI {
	return &OpenAPI{schema: s}
}

// ParseOpenAPI reads a schema object written as JSON or YAML.
func ParseOpenAPI(data []byte) (*OpenAPI, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("openapi schema: %w", err)
	}
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi schema: %w", err)
	}
	var s openapi3.Schema
	if err := json.Unmarshal(asJSON, &s); err != nil {
		return nil, fmt.Errorf("openapi schema: %w", err)
	}
	return &OpenAPI{schema: &s}, nil
}

// Schema returns the underlying schema object.
func (o *OpenAPI) Schema() *openapi3.Schema { return o.schema }

// Validate implements Validator. Every violation is reported, keyed by the
// dotted JSON pointer of the offending property.
func (o *OpenAPI) Validate(data map[string]any) error {
	err := o.schema.VisitJSON(data, openapi3.MultiErrors())
	if err == nil {
		return nil
	}

	var errs []error
	flattenOpenAPI(err, &errs)
	sort.SliceStable(errs, func(i, j int) bool {
		return errs[i].(*ValidationError).Key < errs[j].(*ValidationError).Key
	})
	return &AggregateError{Errors: errs}
}

func flattenOpenAPI(err error, out *[]error) {
	switch e := err.(type) {
	case openapi3.MultiError:
		for _, inner := range e {
			flattenOpenAPI(inner, out)
		}
	case *openapi3.SchemaError:
		*out = append(*out, &ValidationError{
			Key:    strings.Join(e.JSONPointer(), "."),
			Reason: e.Reason,
		})
	default:
		*out = append(*out, &ValidationError{Reason: err.Error()})
	}
}
