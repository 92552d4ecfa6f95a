package hub

import "errors"

var (
	// ErrProtocolViolation indicates a session opened with a frame that does
	// not satisfy the handshake contract.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrUnknownRole indicates a microcontroller declared a role outside the
	// supported set.
	ErrUnknownRole = errors.New("unknown microcontroller role")
)
