package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for the conditions handlers translate into HTTP statuses.
// Services wrap these with fmt.Errorf("%w: ...") to add detail.
var (
	// ErrNotFound: the requested entity does not exist (or is soft-deleted).
	ErrNotFound = errors.New("not found")
	// ErrForbidden: the acting principal is not allowed to touch the entity.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict: the entity is not in a state that permits the operation.
	// Callers are expected to refresh and retry manually; nothing retries
	// automatically.
	ErrConflict = errors.New("state conflict")
)

// ValidationError carries field-level detail for malformed input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("validation failed: %s", strings.Join(names, ", "))
}

// NewValidationError builds a ValidationError from field/message pairs.
func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
