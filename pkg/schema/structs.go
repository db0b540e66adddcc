package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/mitchellh/mapstructure"
)

// Decode copies decoded request data into out, matching fields by their json tags.
func Decode(data map[string]any, out any) error {
	return decode(data, out, true)
}

func decode(data map[string]any, out any, weak bool) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: weak,
		DecodeHook:       numberHook,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}

// numberHook converts json.Number to the kind of the target field, so 1e2
// lands in an int field the same way the Int type accepts it.
func numberHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	n, ok := data.(json.Number)
	if !ok {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return toInt64(n)
	case reflect.Float32, reflect.Float64:
		return n.Float64()
	default:
		return data, nil
	}
}

// Struct validates data by decoding it into T and applying `validate` tags.
// Decoding is strict: a string never satisfies a numeric field.
type Struct[T any] struct {
	validate *validator.Validate
}

// NewStruct creates a struct-tag validator for T.
func NewStruct[T any]() *Struct[T] {
	v := validator.New()
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return &Struct[T]{validate: v}
}

// Validate implements Validator.
func (s *Struct[T]) Validate(data map[string]any) error {
	_, err := s.Decode(data)
	return err
}

// Decode converts data into T and runs the struct validation rules.
func (s *Struct[T]) Decode(data map[string]any) (T, error) {
	var out T
	if err := decode(data, &out, false); err != nil {
		return out, decodeErrors(err)
	}
	if reflect.Indirect(reflect.ValueOf(out)).Kind() != reflect.Struct {
		return out, nil
	}

	err := s.validate.Struct(out)
	if err == nil {
		return out, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return out, err
	}
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, &ValidationError{
			Key:    fe.Field(),
			Reason: describeRule(fe),
			Value:  fe.Value(),
		})
	}
	sort.SliceStable(errs, func(i, j int) bool {
		return errs[i].(*ValidationError).Key < errs[j].(*ValidationError).Key
	})
	return out, &AggregateError{Errors: errs}
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "notblank":
		return "must not be empty"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of [" + fe.Param() + "]"
	default:
		return fmt.Sprintf("failed %q rule", fe.Tag())
	}
}

func decodeErrors(err error) error {
	var merr *mapstructure.Error
	if !errors.As(err, &merr) {
		return &AggregateError{Errors: []error{&ValidationError{Reason: err.Error()}}}
	}
	errs := make([]error, 0, len(merr.Errors))
	for _, msg := range merr.Errors {
		errs = append(errs, &ValidationError{Key: fieldFromDecodeMessage(msg), Reason: msg})
	}
	return &AggregateError{Errors: errs}
}

// mapstructure names the field in the first quoted segment, as in
// "'budget' expected type 'float64'" or "cannot parse 'budget' as float".
func fieldFromDecodeMessage(msg string) string {
	start := strings.Index(msg, "'")
	if start < 0 {
		return ""
	}
	end := strings.Index(msg[start+1:], "'")
	if end < 0 {
		return ""
	}
	return msg[start+1 : start+1+end]
}
