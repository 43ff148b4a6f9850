package errors

import "errors"

// Common error types used across the liveflow library

var (
	// ErrClosed indicates that an operation was attempted on a closed resource
	ErrClosed = errors.New("resource is closed")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidFilter indicates a malformed registry filter expression
	ErrInvalidFilter = errors.New("invalid filter syntax")

	// ErrInvalidTransition indicates an illegal lifecycle state transition
	ErrInvalidTransition = errors.New("invalid lifecycle transition")

	// ErrNotFound indicates that a registry entry does not exist
	ErrNotFound = errors.New("entry not found")
)

// IsFatal returns true if the error indicates a configuration problem that
// retrying cannot resolve
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) || errors.Is(err, ErrInvalidFilter)
}
