// Task 3.1: API error definitions
package api

import "errors"

var (
	// ErrMissingSubject is returned when no authenticated subject is in context.
	ErrMissingSubject = errors.New("missing subject in context")
)
