package domain

import "errors"

// Sentinel errors shared by repositories, services and the HTTP layer.
// Wrap with fmt.Errorf("...: %w", err) and test with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthenticated   = errors.New("not signed in")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrForbidden         = errors.New("forbidden")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyClaimed    = errors.New("request already claimed")
	ErrConflict          = errors.New("conflict")
)
