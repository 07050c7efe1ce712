package homekit

import "errors"

var (
	// ErrInvalidPin is returned when the pairing pin is not eight digits.
	ErrInvalidPin = errors.New("homekit: pin must be eight digits")

	// ErrTransportFailed is returned when the HAP transport cannot be created.
	ErrTransportFailed = errors.New("homekit: transport failed")
)
