package history

import (
	"time"

	"github.com/nerrad567/gray-logic-garage/internal/garage"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Event is one recorded slot change.
type Event struct {
	ID             string          `json:"id"`
	AccessoryID    string          `json:"accessory_id"`
	Characteristic string          `json:"characteristic"`
	Value          int             `json:"value"`
	Source         string          `json:"source"`
	Snapshot       garage.Snapshot `json:"snapshot"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Command is one recorded outbound command.
type Command struct {
	ID          string    `json:"id"`
	CommandID   string    `json:"command_id"`
	AccessoryID string    `json:"accessory_id"`
	Target      int       `json:"target"`
	Method      string    `json:"method"`
	URL         string    `json:"url"`
	Success     bool      `json:"success"`
	StatusCode  int       `json:"status_code"`
	Error       string    `json:"error,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
}

// Filter narrows a history query.
type Filter struct {
	// AccessoryID is required.
	AccessoryID string

	// Characteristic restricts events to one slot. ListCommands ignores it.
	Characteristic string

	// Limit caps the result (default 50, max 200).
	Limit int
}

func (f Filter) limit() int {
	switch {
	case f.Limit <= 0:
		return defaultLimit
	case f.Limit > maxLimit:
		return maxLimit
	default:
		return f.Limit
	}
}
