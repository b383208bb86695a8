package config

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	hosterrors "github.com/mrgeneko/LiveSPICE/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

// validatorInstance configures and returns the shared validator.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
			if name == "" || name == "-" {
				return field.Name
			}
			return name
		})

		_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
			f := fl.Field().Float()
			return !math.IsNaN(f) && !math.IsInf(f, 0)
		})

		_ = v.RegisterValidation("param_name", func(fl validator.FieldLevel) bool {
			name := fl.Field().String()
			return strings.TrimSpace(name) != "" && !strings.ContainsAny(name, "=\x00")
		})

		validateInst = v
	})

	return validateInst
}

// GetValidator returns the shared validator for use outside the package.
func GetValidator() *validator.Validate {
	return validatorInstance()
}

// ValidateSession checks a fully merged session.
func ValidateSession(s *Session) error {
	if s == nil {
		return hosterrors.NewValidationError("session", "session is nil", nil)
	}
	if err := validatorInstance().Struct(s); err != nil {
		return convertValidationError(err)
	}
	if s.Input == s.Output {
		return hosterrors.NewValidationError("output", "output must differ from input", nil)
	}
	return nil
}

// convertValidationError turns the first validator failure into a
// ValidationError named after the YAML key.
func convertValidationError(err error) error {
	if ves, ok := err.(validator.ValidationErrors); ok && len(ves) > 0 {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		if ve.Param() != "" {
			msg = fmt.Sprintf("%s failed validation for tag '%s=%s'", field, ve.Tag(), ve.Param())
		}
		return hosterrors.NewValidationError(field, msg, err)
	}
	return hosterrors.NewValidationError("session", err.Error(), err)
}

func yamlishFieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}
