package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const invalidValueMessage = "Invalid value"

// tagMessages are the fallback messages for validator tags. A %s verb is
// filled with the tag parameter.
var tagMessages = map[string]string{
	"required": "This field is required",
	"email":    "Invalid email format",
	"oneof":    "Must be one of: %s",
	"min":      "Must be at least %s characters",
	"max":      "Must not exceed %s characters",
	"len":      "Must be exactly %s characters",
	"eq":       "Must equal %s",
	"url":      "Invalid URL format",
}

func describeFieldError(fieldError validator.FieldError) string {
	template, ok := tagMessages[fieldError.Tag()]
	if !ok {
		return invalidValueMessage
	}
	if !strings.Contains(template, "%s") {
		return template
	}

	return fmt.Sprintf(template, fieldError.Param())
}

// FieldErrors maps a form field name to every message raised against it.
type FieldErrors map[string][]string

func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

func (fe FieldErrors) HasErrors() bool {
	return len(fe) > 0
}

// FieldMessages overrides validator messages per field and tag. The "*" tag
// matches any tag for that field.
type FieldMessages map[string]map[string]string

func (fm FieldMessages) lookup(field, tag string) (string, bool) {
	byTag, ok := fm[field]
	if !ok {
		return "", false
	}
	if msg, ok := byTag[tag]; ok {
		return msg, true
	}
	msg, ok := byTag["*"]
	return msg, ok
}

// jsonFieldName resolves the name a client used for a struct field.
func jsonFieldName(model any, structField string) string {
	t := reflect.TypeOf(model)
	if t == nil {
		return structField
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return structField
	}

	field, found := t.FieldByName(structField)
	if !found {
		return structField
	}

	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return structField
	}
	return name
}

// FormatFieldErrors groups validator errors by JSON field name, preferring the
// override messages when one is registered for the field. JSON type errors
// are reported against the offending field.
func FormatFieldErrors(err error, model any, overrides FieldMessages) FieldErrors {
	fieldErrors := FieldErrors{}
	if err == nil {
		return fieldErrors
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		fieldErrors.Add(typeErr.Field, fmt.Sprintf("Expected %s, got %s", typeErr.Type, typeErr.Value))
		return fieldErrors
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fieldErrors
	}

	for _, fieldError := range validationErrors {
		field := jsonFieldName(model, fieldError.Field())

		message, found := overrides.lookup(field, fieldError.Tag())
		if !found {
			message = describeFieldError(fieldError)
		}
		fieldErrors.Add(field, message)
	}

	return fieldErrors
}
