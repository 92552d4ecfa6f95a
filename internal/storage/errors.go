package storage

import "errors"

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrModelNotFound is returned when no car model matches the lookup.
	ErrModelNotFound = errors.New("car model not found")
)
