package services

import "errors"

// Errors returned by the matching services. Callers match them with
// errors.Is; everything else is a storage failure.
var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrInvalidOperation       = errors.New("invalid operation")
	ErrNotFound               = errors.New("not found")
	ErrValidation             = errors.New("validation failed")
)
