// Package apperror defines the sentinel errors shared by the store, service and
// HTTP layers. Callers wrap them with fmt.Errorf("...: %w") and match with errors.Is.
package apperror

import "errors"

var (
	// ErrValidation marks missing or malformed input.
	ErrValidation = errors.New("validation error")
	// ErrNotAuthenticated marks a missing, invalid or expired credential, or one
	// that no longer resolves to a user.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNotFound marks a referenced record that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a uniqueness violation (duplicate username or email).
	ErrConflict = errors.New("conflict")
	// ErrStore marks a failure of the underlying persistence layer.
	ErrStore = errors.New("store error")
)
