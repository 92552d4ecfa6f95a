package auth

import "errors"

var (
	// ErrTokenInvalid indicates a malformed token or bad signature.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrTokenExpired indicates the token's expiry has passed.
	ErrTokenExpired = errors.New("token expired")

	// ErrUserNotFound indicates a valid token whose subject has no account.
	ErrUserNotFound = errors.New("user not found for token subject")
)
