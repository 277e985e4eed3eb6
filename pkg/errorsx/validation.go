package errorsx

import "errors"

// ValidationError marks malformed or missing input. It is the only error
// class that aborts a request before the pipeline runs; everything else
// degrades the response instead of failing it.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Invalid builds a ValidationError for a named input field.
func Invalid(field, message string) error {
	return ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
