// Package validate wraps go-playground/validator and turns its errors into field maps.
package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/MrJamesThe3rd/garage/internal/apperr"
)

type Validator struct {
	v *validator.Validate
}

// New returns a validator that reports fields by their json names.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		if name == "" {
			return f.Name
		}

		return name
	})

	return &Validator{v: v}
}

func (val *Validator) Struct(s any) error {
	return val.v.Struct(s)
}

// Fields validates s and returns one message per failing field, keyed by its path
// below the top-level struct (e.g. "insurance.deductible"). Non-validation errors
// are returned as err.
func (val *Validator) Fields(s any) (apperr.FieldErrors, error) {
	err := val.v.Struct(s)
	if err == nil {
		return nil, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}

	fields := make(apperr.FieldErrors, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = message(fe)
	}

	return fields, nil
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}

	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "numeric":
		return "must be a number"
	case "oneof":
		return "must be one of " + fe.Param()
	case "uuid":
		return "must be a UUID"
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}
