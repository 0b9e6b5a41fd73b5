package services

import (
	"errors"

	"pantry/internal/places"
)

// ValidationError reports a malformed or missing input. Its message is safe
// to return to clients.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(msg string) error {
	return &ValidationError{Message: msg}
}

var (
	// ErrInvalidCredentials is returned for any failed local sign-in.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is returned for bad or expired session tokens and for
	// tokens whose user no longer exists.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidIdentityToken is returned when a federated token fails verification.
	ErrInvalidIdentityToken = errors.New("invalid identity token")
	// ErrEmailExists is returned when signing up with a registered email.
	ErrEmailExists = errors.New("email already exists")
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUpstream is returned when the places API or the identity provider
	// fails.
	ErrUpstream = places.ErrUpstream
)

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
