// Package apperr holds error types shared by services and HTTP handlers.
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError reports a missing or malformed request field. It is
// user-correctable and always raised before any remote call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return e.Message
}

// Required builds the ValidationError for an absent field.
func Required(field string) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf("%s is required", field)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
