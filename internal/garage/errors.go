package garage

import "errors"

// Domain errors for the garage package.
var (
	// ErrCommandFailed is returned when an outbound command cannot reach the device.
	ErrCommandFailed = errors.New("garage: command failed")

	// ErrInvalidTarget is returned when a target door state is not OPEN or CLOSED.
	ErrInvalidTarget = errors.New("garage: invalid target door state")

	// ErrInvalidValue is returned when a pushed value cannot be parsed for its characteristic.
	ErrInvalidValue = errors.New("garage: invalid characteristic value")

	// ErrUnknownCharacteristic is returned for characteristic names outside the whitelist.
	ErrUnknownCharacteristic = errors.New("garage: unknown characteristic")

	// ErrListenerNotStarted is returned when closing a listener that never started.
	ErrListenerNotStarted = errors.New("garage: listener not started")

	// ErrListenerStarted is returned when Start is called twice.
	ErrListenerStarted = errors.New("garage: listener already started")
)
