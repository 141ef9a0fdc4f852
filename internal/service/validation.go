package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields under their wire names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct returns a KindValidation error listing every failing field, or nil.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return newError(KindInternal, "validate input", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return validationError(fields)
}

func fieldMessage(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", f)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must not be empty", f)
		}
		return fmt.Sprintf("%s must be at least %s", f, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", f, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", f, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", f, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", f, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", f)
	}
}

// merge folds extra field errors into err, which may be nil.
func merge(err error, extra map[string]string) error {
	if len(extra) == 0 {
		return err
	}
	if err == nil {
		return validationError(extra)
	}
	se, ok := AsError(err)
	if !ok || se.Kind != KindValidation {
		return err
	}
	for k, v := range extra {
		if _, exists := se.Fields[k]; !exists {
			se.Fields[k] = v
		}
	}
	return se
}
