// Package validate implements the schema-driven path/query/body
// validation spec.md §4.6 describes, over go-playground/validator/v10.
//
// Unlike a schema library that operates on raw JSON, path and query
// parameters arrive as strings (or string slices); CheckPath and
// CheckQuery first decode those into a destination struct's fields by
// matching struct tags, then run the decoded struct through the
// validator, so a route's declared shape is a single Go struct with
// both decoding and validation tags — the same two-step the teacher's
// middleware takes for JWT claims (decode, then enforce).
package validate

import (
	"fmt"
	"reflect"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/wikihost/engine/senderror"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Default returns the process-wide validator instance, built once on
// first use (mirrors eventbus.Default()'s lazy-singleton pattern).
func Default() *validator.Validate {
	once.Do(func() { instance = validator.New(validator.WithRequiredStructEnabled()) })
	return instance
}

// fieldError is one entry of a rendered validation error tree.
type fieldError struct {
	Field string `json:"field"`
	Tag   string `json:"rule"`
	Value string `json:"value,omitempty"`
}

// CheckPath decodes pathParams into dest by matching each field's
// `path:"name"` tag, then validates dest. On failure it returns a
// BAD_REQUEST SendError (400) carrying the rendered error tree
// (spec.md §4.6 checkPath).
func CheckPath(pathParams map[string]string, dest any) error {
	if err := decodeSingle(pathParams, dest, "path"); err != nil {
		return senderror.BadRequest(err.Error())
	}
	return validateStruct(dest)
}

// CheckQuery decodes queryParams into dest by matching each field's
// `query:"name"` tag (single-valued fields take the first value;
// []string fields take every value), then validates dest (spec.md §4.6
// checkQuery).
func CheckQuery(queryParams map[string][]string, dest any) error {
	if err := decodeMulti(queryParams, dest, "query"); err != nil {
		return senderror.BadRequest(err.Error())
	}
	return validateStruct(dest)
}

func validateStruct(dest any) error {
	if err := Default().Struct(dest); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return senderror.BadRequest(err.Error())
		}
		details := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, fieldError{
				Field: fe.Field(),
				Tag:   fe.Tag(),
				Value: fmt.Sprintf("%v", fe.Value()),
			})
		}
		return senderror.BadRequest(details)
	}
	return nil
}

func decodeSingle(values map[string]string, dest any, tagName string) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("validate: dest must be a pointer to a struct")
	}
	rv = rv.Elem()
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		name := field.Tag.Get(tagName)
		if name == "" || name == "-" {
			continue
		}
		raw, ok := values[name]
		if !ok || !rv.Field(i).CanSet() {
			continue
		}
		if err := setScalar(rv.Field(i), raw); err != nil {
			return fmt.Errorf("validate: field %s: %w", field.Name, err)
		}
	}
	return nil
}

func decodeMulti(values map[string][]string, dest any, tagName string) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("validate: dest must be a pointer to a struct")
	}
	rv = rv.Elem()
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		name := field.Tag.Get(tagName)
		if name == "" || name == "-" {
			continue
		}
		raw, ok := values[name]
		if !ok || len(raw) == 0 || !rv.Field(i).CanSet() {
			continue
		}

		fv := rv.Field(i)
		if fv.Kind() == reflect.Slice && fv.Type().Elem().Kind() == reflect.String {
			fv.Set(reflect.ValueOf(append([]string(nil), raw...)))
			continue
		}
		if err := setScalar(fv, raw[0]); err != nil {
			return fmt.Errorf("validate: field %s: %w", field.Name, err)
		}
	}
	return nil
}

func setScalar(fv reflect.Value, raw string) error {
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return err
		}
		fv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		fv.SetFloat(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	default:
		return fmt.Errorf("unsupported kind %s", fv.Kind())
	}
	return nil
}
