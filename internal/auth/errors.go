package auth

import "errors"

var (
	// ErrUserNotFound means the credential store has no matching user.
	ErrUserNotFound = errors.New("auth: user not found")
	// ErrInvalidCredentials means the presented password does not match.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrInvalidToken covers every token failure: malformed, bad signature,
	// expired, wrong type or unsupported schema version.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrEmailTaken means another user already has the address.
	ErrEmailTaken = errors.New("auth: email already registered")
	// ErrMissingSecret means no signing secret was configured.
	ErrMissingSecret = errors.New("auth: signing secret is not configured")
)
