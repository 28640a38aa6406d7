package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goevery/gateway/internal/ierr"
)

// RequestValidator checks the `validate` tags of inbound request params.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return &RequestValidator{
		validate: validate,
	}
}

func (v *RequestValidator) Validate(req any) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fieldErr := validationErrors[0]

		return ierr.New(ierr.ErrorCodeInvalidArgument,
			fmt.Errorf("invalid %s: failed on %s", fieldErr.Field(), fieldErr.Tag()))
	}

	return ierr.New(ierr.ErrorCodeInvalidArgument, err)
}
