package protocol

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the `validate` tags of a payload. Non-struct values pass.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return nil
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) {
		parts := make([]string, 0, len(fields))
		for _, fe := range fields {
			parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("protocol: invalid payload: %s", strings.Join(parts, ", "))
	}
	return fmt.Errorf("protocol: invalid payload: %w", err)
}
