package service

import "errors"

// Sentinel errors returned by the services. Callers match them with errors.Is;
// the wrapped message carries the detail.
var (
	ErrValidation             = errors.New("validation error")
	ErrNotFound               = errors.New("not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
)
