package domain

import "errors"

var (
	// ErrElementNotFound is returned when a page element lookup yields nothing.
	ErrElementNotFound = errors.New("page element not found")
	// ErrUnknownElement indicates an element kind with no lookup descriptor.
	ErrUnknownElement = errors.New("unknown page element")
	// ErrNotConnected is returned when the chat transport has no live connection.
	ErrNotConnected = errors.New("chat transport not connected")
	// ErrResultNotFound indicates no recorded results exist for a quiz.
	ErrResultNotFound = errors.New("quiz result not found")
)
