// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for decoding and validating JSON request
// bodies and query parameters.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

var nonBlank = regexp.MustCompile(`\S`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their JSON name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return nonBlank.MatchString(fl.Field().String())
	})
	return v
}

// DecodeJSON reads a JSON body of at most 1 MiB into dst and validates it.
// An empty body decodes as {}.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return decodeError(err)
	}
	return validateStruct(dst)
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return core.NewValidationError(typeErr.Field, "has the wrong type")
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return core.NewValidationError("", "request body too large")
	}
	return core.NewValidationError("", "invalid JSON body")
}

// validateStruct runs the validate tags and reports the first failure.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return core.NewValidationError("", err.Error())
	}
	e := errs[0]
	return core.NewValidationError(e.Field(), fieldErrorToString(e))
}

func fieldErrorToString(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "email":
		return "must be a valid email"
	case "oneof":
		return "must be one of " + e.Param()
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", e.Param())
		}
		return "must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", e.Param())
		}
		return "must be at most " + e.Param()
	default:
		return "is invalid"
	}
}

// ParseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates, which
// are read as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

// parseOptionalDate parses s when it is non-nil.
func parseOptionalDate(field string, s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := ParseDate(*s)
	if err != nil {
		return nil, core.NewValidationError(field, "must be an RFC 3339 timestamp or YYYY-MM-DD date")
	}
	return &t, nil
}

// NullableDate tells an absent JSON field apart from an explicit null.
type NullableDate struct {
	Set   bool
	Value *string
}

func (n *NullableDate) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// QueryInt reads a positive integer query parameter, falling back to def.
func QueryInt(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// QueryKind reads the optional "type" filter.
func QueryKind(r *http.Request) (core.Kind, error) {
	v := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("type")))
	if v == "" {
		return "", nil
	}
	k := core.Kind(v)
	if !k.Valid() {
		return "", &core.ValidationError{Field: "type", Err: core.ErrInvalidKind}
	}
	return k, nil
}
