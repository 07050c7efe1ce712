package bridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-garage/internal/garage"
)

// StateMessage is published retained on garage/state/{accessory_id}.
type StateMessage struct {
	AccessoryID string          `json:"accessory_id"`
	Timestamp   time.Time       `json:"timestamp"`
	State       garage.Snapshot `json:"state"`

	// Characteristic, Value and Source describe the change that triggered
	// the message. Empty on the snapshot published at start.
	Characteristic string `json:"characteristic,omitempty"`
	Value          *int   `json:"value,omitempty"`
	Source         string `json:"source,omitempty"`
}

// CommandMessage is received on garage/command/{accessory_id}.
type CommandMessage struct {
	// ID correlates the command with its acknowledgement.
	ID string `json:"id"`

	// TargetDoorState is 0 (open) or 1 (closed).
	TargetDoorState *int `json:"target_door_state"`

	// Source identifies the sender. Defaults to "mqtt".
	Source string `json:"source,omitempty"`
}

// AckStatus is the outcome of a command.
type AckStatus string

const (
	// AckAccepted indicates the device was reached.
	AckAccepted AckStatus = "accepted"

	// AckFailed indicates the command was rejected or the device was unreachable.
	AckFailed AckStatus = "failed"
)

// AckMessage is published on garage/ack/{accessory_id}.
type AckMessage struct {
	CommandID   string    `json:"command_id"`
	AccessoryID string    `json:"accessory_id"`
	Timestamp   time.Time `json:"timestamp"`
	Status      AckStatus `json:"status"`
	Error       string    `json:"error,omitempty"`
}

// ParseCommand decodes and validates a command payload.
func ParseCommand(payload []byte) (CommandMessage, error) {
	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return cmd, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	if cmd.TargetDoorState == nil {
		return cmd, fmt.Errorf("%w: target_door_state is required", ErrInvalidCommand)
	}
	if !garage.DoorState(*cmd.TargetDoorState).ValidTarget() {
		return cmd, fmt.Errorf("%w: target_door_state must be 0 or 1, got %d", ErrInvalidCommand, *cmd.TargetDoorState)
	}
	return cmd, nil
}

func (c CommandMessage) source() garage.Source {
	if c.Source == "" {
		return garage.SourceMQTT
	}
	return garage.Source(c.Source)
}
