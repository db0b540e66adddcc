// Package schema validates request query parameters and JSON bodies.
//
// It defines a small type system with built-in types (string, int, float, bool),
// slices, optional fields and custom validators. Schemas map field names to types
// and report every violated field in one pass, so a bad request can name all of
// its problems at once.
//
// Basic usage:
//
//	s := schema.Schema{
//	    "name":  schema.NonEmptyString(),
//	    "limit": schema.Optional(schema.PositiveInt()),
//	    "tags":  schema.Slice(schema.String()),
//	}
//
//	if err := s.Validate(data); err != nil {
//	    for _, f := range schema.FieldErrors(err) {
//	        // f.Field, f.Reason
//	    }
//	}
//
// Schemas can be parsed from type strings, which is how route files declare them:
//
//	s, err := schema.ParseTypeMap(map[string]string{
//	    "limit": "positive_int?",
//	    "tags":  "[string]",
//	})
//
// Query strings carry no types, so ParseQuery coerces raw values into the declared
// scalar types before validation.
//
// Besides Schema, two other Validator implementations are provided: OpenAPI, backed
// by an OpenAPI 3 schema object, and Struct, which decodes into a Go struct and
// applies `validate` struct tags.
package schema
