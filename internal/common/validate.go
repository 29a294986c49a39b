package common

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared struct validator. Field names in errors use json tags.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		validate = v
	})
	return validate
}

// ValidateStruct validates v and converts failures into a VALIDATION_ERROR
// carrying one message per field.
func ValidateStruct(v any, messages map[string]string) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if msg, ok := messages[field]; ok {
			fields[field] = msg
			continue
		}
		fields[field] = defaultMessage(fe)
	}
	return ValidationError("Por favor completa todos los campos", fields)
}

// ValidationError builds the canonical validation failure.
func ValidationError(message string, fields map[string]string) *AppError {
	return &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"fields": fields},
	}
}

func defaultMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Este campo es obligatorio"
	case "email":
		return "Email inválido"
	case "oneof":
		return "Valor no permitido"
	case "min", "gte":
		return "Valor demasiado bajo"
	case "max", "lte":
		return "Valor demasiado alto"
	default:
		return "Valor inválido"
	}
}
