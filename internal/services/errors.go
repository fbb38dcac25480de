package services

import "errors"

var (
	// ErrInvalidCredentials covers both an unknown login and a wrong password
	// so responses never reveal which check failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailNotVerified means the credentials were correct but the account
	// has not proven ownership of its email address yet.
	ErrEmailNotVerified = errors.New("email not verified")

	// ErrInvalidOrExpired is the uniform failure for single-use tokens:
	// unknown, tampered, already consumed, or past expiry.
	ErrInvalidOrExpired = errors.New("invalid or expired token")

	// ErrInvalidToken is returned by session-token verification on any
	// signature, shape, or expiry problem.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrRelinkRequired means a stored channel credential can no longer be
	// decrypted (for example after the master key changed) and the user must
	// link the channel again.
	ErrRelinkRequired = errors.New("stored credential unusable, re-link required")
)
