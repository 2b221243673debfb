// Package auth is the identity source: local accounts, signed session
// tokens and the process-wide Session that carries the signed-in user.
package auth

import (
	"errors"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrWeakPassword is returned for passwords shorter than MinPasswordLength.
	ErrWeakPassword = errors.New("password too short")
	// ErrInvalidEmail is returned for an email without an @.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrInvalidToken is returned for a token that fails validation.
	ErrInvalidToken = errors.New("invalid session token")
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// Identity is the authenticated user. A nil *Identity means anonymous.
type Identity struct {
	ID       string
	Email    string
	Metadata map[string]string
}

// DisplayName returns the display_name metadata, falling back to the email.
func (i *Identity) DisplayName() string {
	if i == nil {
		return ""
	}
	if name := i.Metadata["display_name"]; name != "" {
		return name
	}
	return i.Email
}
