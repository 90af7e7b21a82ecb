package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates rejected input.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden indicates the actor lacks the required ability.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthenticated indicates no user is bound to the request.
	ErrUnauthenticated = errors.New("unauthenticated")
)
