package shared

import "errors"

var (
	// ErrInvalidCredentials indicates a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionMissing is returned when a request carries no session.
	ErrSessionMissing = errors.New("session missing")
	// ErrCSRFTokenMissing occurs when no CSRF token was submitted.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when the submitted token is wrong.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
	// ErrTokenInvalid is returned for bearer tokens that fail validation.
	ErrTokenInvalid = errors.New("invalid token")
)
