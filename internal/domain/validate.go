package domain

import (
	"github.com/go-playground/validator/v10"
)

// validatorInstance is a package-level validator instance.
// Using a single instance is more efficient as it caches struct information.
var validatorInstance = validator.New()

// Validate runs validation checks on any struct with `validate` tags and
// wraps failures in ErrValidation so callers can use errors.Is.
func Validate(v any) error {
	if err := validatorInstance.Struct(v); err != nil {
		return wrapValidation(err)
	}
	return nil
}

func wrapValidation(err error) error {
	return validationError{cause: err}
}

type validationError struct {
	cause error
}

func (e validationError) Error() string { return "invalid input: " + e.cause.Error() }
func (e validationError) Unwrap() error { return ErrValidation }
