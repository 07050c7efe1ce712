package bridge

import "errors"

var (
	// ErrMQTTRequired is returned by NewBridge without an MQTT client.
	ErrMQTTRequired = errors.New("bridge: mqtt client is required")

	// ErrAccessoryRequired is returned by NewBridge without an accessory.
	ErrAccessoryRequired = errors.New("bridge: accessory is required")

	// ErrInvalidCommand is returned for a command payload that cannot be applied.
	ErrInvalidCommand = errors.New("bridge: invalid command")
)
