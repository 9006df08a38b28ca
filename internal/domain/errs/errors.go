package errs

import "errors"

var (
	// ErrNotFound is returned when a resource is not found or lies outside the caller's scope
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists is returned when a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput is returned when input data is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized is returned when access is not authorized
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when an action is forbidden
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited is returned when the caller exceeded the write budget
	ErrRateLimited = errors.New("rate limited")

	// ErrPolicyRejected is returned when content is refused by the abuse policy
	ErrPolicyRejected = errors.New("rejected by content policy")
)
