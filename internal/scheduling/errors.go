package scheduling

import "errors"

var (
	ErrNotFound = errors.New("appointment not found")
	// ErrForbidden means the requester is neither the assigned doctor nor
	// the patient (or, for status changes, not the assigned doctor).
	ErrForbidden = errors.New("not authorized for this appointment")
	// ErrStaleRevision means another writer mutated the appointment after
	// the caller read it.
	ErrStaleRevision = errors.New("appointment was modified concurrently")
)

// ValidationError carries a field-specific message suitable for a 400
// response body.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
