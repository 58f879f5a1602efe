package domain

import "errors"

// Sentinel errors shared by use cases and repositories.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalid           = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
)
