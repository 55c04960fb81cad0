// Package apperr holds the error kinds shared by the storefront services.
package apperr

import "errors"

// ValidationError is raised before any store call when user input is unusable.
// Message is shown to the user as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func Validation(message string) error {
	return &ValidationError{Message: message}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// ValidationMessage returns the user-facing message of a ValidationError, or "".
func ValidationMessage(err error) string {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Message
	}
	return ""
}

// TryAgain is the generic message shown for store failures.
const TryAgain = "Something went wrong. Please try again."
