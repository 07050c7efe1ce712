package history

import "errors"

var (
	// ErrAccessoryRequired is returned when a query or record has no accessory id.
	ErrAccessoryRequired = errors.New("history: accessory id is required")

	// ErrInvalidRetention is returned by Prune for a non-positive duration.
	ErrInvalidRetention = errors.New("history: olderThan must be positive")
)
