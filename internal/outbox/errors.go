package outbox

import "errors"

// Domain errors for the outbox package.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrMessageNotFound is returned when a message ID does not exist.
	ErrMessageNotFound = errors.New("outbox: message not found")

	// ErrInvalidEvent is returned when an event envelope is missing required fields.
	ErrInvalidEvent = errors.New("outbox: invalid event")
)
