package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Type defines the contract for field validation.
// Implementations determine how values are validated against a type.
type Type interface {
	// Name returns the human-readable name of the type (e.g., "string", "int").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
}

// StringParser is implemented by types that can coerce a raw query-string value.
type StringParser interface {
	ParseString(raw string) (any, error)
}

// --- Built-in Type Implementations ---

// StringType validates string values.
type StringType struct{}

func (t *StringType) Name() string { return "string" }

func (t *StringType) Validate(value any) error {
	_, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

func (t *StringType) ParseString(raw string) (any, error) { return raw, nil }

// IntType validates integer values.
type IntType struct{}

func (t *IntType) Name() string { return "int" }

func (t *IntType) Validate(value any) error {
	_, err := toInt64(value)
	return err
}

func (t *IntType) ParseString(raw string) (any, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("expected int, got %q", raw)
	}
	return n, nil
}

// FloatType validates floating-point values.
type FloatType struct{}

func (t *FloatType) Name() string { return "float" }

func (t *FloatType) Validate(value any) error {
	switch v := value.(type) {
	case float32, float64, int, int8, int16, int32, int64:
		return nil
	case json.Number:
		if _, err := v.Float64(); err != nil {
			return fmt.Errorf("expected float, got %q", v.String())
		}
		return nil
	default:
		return fmt.Errorf("expected float, got %T", value)
	}
}

func (t *FloatType) ParseString(raw string) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, fmt.Errorf("expected float, got %q", raw)
	}
	return f, nil
}

// BoolType validates boolean values.
type BoolType struct{}

func (t *BoolType) Name() string { return "bool" }

func (t *BoolType) Validate(value any) error {
	_, ok := value.(bool)
	if !ok {
		return fmt.Errorf("expected bool, got %T", value)
	}
	return nil
}

func (t *BoolType) ParseString(raw string) (any, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("expected bool, got %q", raw)
	}
	return b, nil
}

// SliceType validates slices of a specific element type.
type SliceType struct {
	elemType Type
}

func (t *SliceType) Name() string {
	return fmt.Sprintf("[%s]", t.elemType.Name())
}

func (t *SliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected slice, got %T", value)
	}

	// Validate each element
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i).Interface()
		if err := t.elemType.Validate(elem); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// Elem returns the element type.
func (t *SliceType) Elem() Type { return t.elemType }

// OptionalType allows a field to be absent or null.
type OptionalType struct {
	inner Type
}

func (t *OptionalType) Name() string { return t.inner.Name() + "?" }

func (t *OptionalType) Validate(value any) error {
	if value == nil {
		return nil
	}
	return t.inner.Validate(value)
}

// Inner returns the wrapped type.
func (t *OptionalType) Inner() Type { return t.inner }

// CustomType applies a user-defined validation function.
type CustomType struct {
	name     string
	validate func(any) error
	parse    func(string) (any, error)
}

func (t *CustomType) Name() string { return t.name }

func (t *CustomType) Validate(value any) error {
	return t.validate(value)
}

// ParseString delegates to the base type the custom type was derived from.
// Custom types built with Custom keep query values as strings.
func (t *CustomType) ParseString(raw string) (any, error) {
	if t.parse == nil {
		return raw, nil
	}
	return t.parse(raw)
}

// --- Factory Functions ---

// String creates a string type validator.
func String() Type { return &StringType{} }

// Int creates an integer type validator.
func Int() Type { return &IntType{} }

// Float creates a float type validator.
func Float() Type { return &FloatType{} }

// Bool creates a boolean type validator.
func Bool() Type { return &BoolType{} }

// Slice creates a slice type validator for elements of the given type.
func Slice(elemType Type) Type {
	return &SliceType{elemType: elemType}
}

// Optional marks a field as not required.
func Optional(t Type) Type {
	if o, ok := t.(*OptionalType); ok {
		return o
	}
	return &OptionalType{inner: t}
}

// Custom creates a custom type validator with a user-defined function.
func Custom(name string, validate func(any) error) Type {
	return &CustomType{name: name, validate: validate}
}

// PositiveInt accepts integers greater than zero.
func PositiveInt() Type {
	return IntRange("positive_int", 1, math.MaxInt64)
}

// IntRange accepts integers within [min, max]. name is reported by Name().
func IntRange(name string, min, max int64) Type {
	base := &IntType{}
	return &CustomType{
		name:  name,
		parse: base.ParseString,
		validate: func(v any) error {
			n, err := toInt64(v)
			if err != nil {
				return err
			}
			switch {
			case min == 1 && max == math.MaxInt64 && n < 1:
				return fmt.Errorf("must be a positive integer, got %d", n)
			case n < min:
				return fmt.Errorf("must be >= %d, got %d", min, n)
			case n > max:
				return fmt.Errorf("must be <= %d, got %d", max, n)
			}
			return nil
		},
	}
}

// NonEmptyString accepts strings with at least one non-space character.
func NonEmptyString() Type {
	return &CustomType{
		name:  "non_empty_string",
		parse: (&StringType{}).ParseString,
		validate: func(v any) error {
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("expected string, got %T", v)
			}
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("must not be empty")
			}
			return nil
		},
	}
}

// OneOf accepts one of the listed string values.
func OneOf(values ...string) Type {
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}
	return &CustomType{
		name:  "enum(" + strings.Join(values, "|") + ")",
		parse: (&StringType{}).ParseString,
		validate: func(v any) error {
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("expected string, got %T", v)
			}
			if _, ok := allowed[s]; !ok {
				return fmt.Errorf("must be one of [%s]", strings.Join(values, ", "))
			}
			return nil
		},
	}
}

// Whole floats are accepted as integers when they fit in an int64.
// 2^63 itself is out of range since float64(math.MaxInt64) rounds up to it.
const twoTo63 = float64(1 << 63)

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("expected int, got %q", n.String())
		}
		return floatToInt64(f)
	case float64:
		return floatToInt64(n)
	default:
		return 0, fmt.Errorf("expected int, got %T", v)
	}
}

func floatToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("expected int, got float (not a whole number)")
	}
	if f < -twoTo63 || f >= twoTo63 {
		return 0, fmt.Errorf("expected int, got %v (out of range)", f)
	}
	return int64(f), nil
}

// ParseType converts a string type name to a Type.
// Supports "string", "int", "float", "bool", "positive_int", "non_empty_string",
// slices such as "[string]", and a trailing "?" for optional fields.
func ParseType(typeStr string) (Type, error) {
	typeStr = strings.TrimSpace(typeStr)

	if strings.HasSuffix(typeStr, "?") {
		inner, err := ParseType(strings.TrimSuffix(typeStr, "?"))
		if err != nil {
			return nil, err
		}
		return Optional(inner), nil
	}

	// Handle slice types: [string], [int], etc.
	if len(typeStr) > 2 && typeStr[0] == '[' && typeStr[len(typeStr)-1] == ']' {
		elemTypeStr := typeStr[1 : len(typeStr)-1]
		elemType, err := ParseType(elemTypeStr)
		if err != nil {
			return nil, err
		}
		return Slice(elemType), nil
	}

	// Handle built-in types
	switch typeStr {
	case "string":
		return String(), nil
	case "int":
		return Int(), nil
	case "float":
		return Float(), nil
	case "bool":
		return Bool(), nil
	case "positive_int":
		return PositiveInt(), nil
	case "non_empty_string":
		return NonEmptyString(), nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", typeStr)
	}
}

// ParseTypeMap converts a map of field names to type strings into a Schema.
// Example: {"name": "non_empty_string", "limit": "positive_int?"}
func ParseTypeMap(typeMap map[string]string) (Schema, error) {
	result := make(Schema)
	for key, typeStr := range typeMap {
		t, err := ParseType(typeStr)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		result[key] = t
	}
	return result, nil
}
