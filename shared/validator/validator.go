package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"glow/shared/failure"

	val "github.com/go-playground/validator/v10"
)

var validate *val.Validate

func init() {
	validate = val.New(val.WithRequiredStructEnabled())
}

// Validate decodes a JSON request body into target and runs struct validation
// on it. Any failure is reported as a bad-request error with a field-level
// message, so no state change can follow malformed input.
func Validate(body io.Reader, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		return failure.BadRequestFromString(fmt.Sprintf("invalid request body: %v", err)) //nolint:wrapcheck
	}

	if err := validate.Struct(target); err != nil {
		var validationErrors val.ValidationErrors
		if errors.As(err, &validationErrors) {
			messages := make([]string, 0, len(validationErrors))
			for _, fieldErr := range validationErrors {
				messages = append(messages, describe(fieldErr))
			}

			return failure.BadRequestFromString(strings.Join(messages, "; ")) //nolint:wrapcheck
		}

		return failure.BadRequestFromString(err.Error()) //nolint:wrapcheck
	}

	return nil
}

func describe(fieldErr val.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", fieldErr.Field())
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s", fieldErr.Field(), fieldErr.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s", fieldErr.Field(), fieldErr.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", fieldErr.Field(), fieldErr.Param())
	case "gt":
		return fmt.Sprintf("field '%s' must be greater than %s", fieldErr.Field(), fieldErr.Param())
	default:
		return fmt.Sprintf("field '%s' failed validation '%s'", fieldErr.Field(), fieldErr.Tag())
	}
}
