// Package validation provides the request validator shared by handlers and
// upstream adapters.
package validation

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/dhawalhost/manageusers/pkg/apperr"
)

// New returns a validator that reports JSON field names and knows the
// "notblank" rule.
func New() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

var shared = New()

// Struct validates s and returns a Validation error naming the first failing
// field.
func Struct(s any) error {
	if err := shared.Struct(s); err != nil {
		return apperr.FromValidator(err)
	}
	return nil
}
