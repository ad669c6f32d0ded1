package auth

import "errors"

var (
	// ErrInvalidLogin is returned for both an unknown username and a wrong
	// password. The single message is deliberate: callers and clients must
	// not be able to enumerate which usernames exist.
	ErrInvalidLogin = errors.New("invalid username or password")

	ErrMissingFields = errors.New("username and password are required")
)
