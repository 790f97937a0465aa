// Package validation wraps go-playground/validator so request DTOs can be
// checked declaratively and failures reported as a flat field -> message
// map, the shape clients receive under "errors" in a 422 response.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Errors maps a JSON field name to a human readable message.
type Errors map[string]string

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for f, m := range e {
		parts = append(parts, f+": "+m)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records msg for field unless the field already has a message.
func (e Errors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

// Empty reports whether no errors were recorded.
func (e Errors) Empty() bool { return len(e) == 0 }

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonName)
		_ = v.RegisterValidation("phone", isPhone)
		validate = v
	})
	return validate
}

// Struct validates s (a struct or pointer to struct).  It returns nil when
// s is valid, so callers can write `if errs := validation.Struct(&req); errs != nil`.
//
// Messages can be overridden per rule with a `msg` tag, for example
// `msg:"required=Title is required;min=Too short"`.  Without an override a
// message is built from the `label` tag, or the humanised JSON name.
func Struct(s any) Errors {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Errors{"_": err.Error()}
	}

	meta := fieldMeta(reflect.TypeOf(s))
	out := Errors{}
	for _, fe := range verrs {
		m := meta[fe.StructField()]
		if msg, ok := m.overrides[fe.Tag()]; ok {
			out.Add(fe.Field(), msg)
			continue
		}
		out.Add(fe.Field(), defaultMessage(fe, m.label))
	}
	return out
}

// TrimStrings trims surrounding whitespace from every exported string and
// *string field of the struct ptr points to.
func TrimStrings(ptr any) {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return
	}
	v = v.Elem()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if !f.CanSet() {
			continue
		}
		switch {
		case f.Kind() == reflect.String:
			f.SetString(strings.TrimSpace(f.String()))
		case f.Kind() == reflect.Pointer && !f.IsNil() && f.Elem().Kind() == reflect.String:
			f.Elem().SetString(strings.TrimSpace(f.Elem().String()))
		}
	}
}

func defaultMessage(fe validator.FieldError, label string) string {
	if label == "" {
		label = humanize(fe.Field())
	}
	switch fe.Tag() {
	case "required", "required_without":
		return label + " is required"
	case "email":
		return "Invalid email format"
	case "phone":
		return "Invalid phone number"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", label, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", label, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", label, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", label, fe.Param())
	case "eqfield":
		return label + " confirmation does not match"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "datetime":
		return label + " must be a date in YYYY-MM-DD format"
	}
	return label + " is invalid"
}

// isPhone accepts values with 10 to 15 digits once punctuation and spaces
// are stripped.  Empty values pass; pair with required when needed.
func isPhone(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 10 && digits <= 15
}

func jsonName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

func humanize(field string) string {
	s := strings.ReplaceAll(field, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type meta struct {
	label     string
	overrides map[string]string
}

var metaCache sync.Map // reflect.Type -> map[string]meta

func fieldMeta(t reflect.Type) map[string]meta {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := metaCache.Load(t); ok {
		return cached.(map[string]meta)
	}
	out := map[string]meta{}
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			m := meta{label: f.Tag.Get("label"), overrides: map[string]string{}}
			if raw := f.Tag.Get("msg"); raw != "" {
				for _, pair := range strings.Split(raw, ";") {
					if k, v, ok := strings.Cut(pair, "="); ok {
						m.overrides[strings.TrimSpace(k)] = strings.TrimSpace(v)
					}
				}
			}
			out[f.Name] = m
		}
	}
	metaCache.Store(t, out)
	return out
}
