package domain

import "github.com/pkg/errors"

// Error taxonomy shared by the store, the schedulers, and the generator.
// Callers classify wrapped errors with errors.Is.
var (
	// ErrNotFound means a referenced item or review does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a unique constraint was violated.
	ErrConflict = errors.New("conflict")
	// ErrInvalid means an argument is outside its contract.
	ErrInvalid = errors.New("invalid argument")
	// ErrIntegrity means a referential or check constraint broke.
	ErrIntegrity = errors.New("integrity violation")
	// ErrBackend wraps any other persistence failure.
	ErrBackend = errors.New("backend failure")
	// ErrUnavailable means the MCQ generator could not assemble four
	// unique options from the catalog.
	ErrUnavailable = errors.New("unavailable")
)
