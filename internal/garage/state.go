package garage

import (
	"fmt"
	"time"
)

// DoorState is a HomeKit door position code.
type DoorState int

// HomeKit door state codes. The target slot only takes DoorOpen or DoorClosed.
const (
	DoorOpen    DoorState = 0
	DoorClosed  DoorState = 1
	DoorOpening DoorState = 2
	DoorClosing DoorState = 3
	DoorStopped DoorState = 4
)

// String returns the lower-case name of the state.
func (s DoorState) String() string {
	switch s {
	case DoorOpen:
		return "open"
	case DoorClosed:
		return "closed"
	case DoorOpening:
		return "opening"
	case DoorClosing:
		return "closing"
	case DoorStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ValidCurrent reports whether s is a legal CurrentDoorState value.
func (s DoorState) ValidCurrent() bool {
	return s >= DoorOpen && s <= DoorStopped
}

// ValidTarget reports whether s is a legal TargetDoorState value.
func (s DoorState) ValidTarget() bool {
	return s == DoorOpen || s == DoorClosed
}

// Characteristic names a door slot as it appears in push paths.
type Characteristic string

// Recognised characteristics.
const (
	CharTargetDoorState     Characteristic = "targetDoorState"
	CharCurrentDoorState    Characteristic = "currentDoorState"
	CharObstructionDetected Characteristic = "obstructionDetected"
)

// Valid reports whether c is one of the recognised characteristics.
func (c Characteristic) Valid() bool {
	switch c {
	case CharTargetDoorState, CharCurrentDoorState, CharObstructionDetected:
		return true
	}
	return false
}

// Source identifies what caused a slot change or command.
type Source string

// Change sources.
const (
	SourceInit     Source = "init"
	SourcePush     Source = "push"
	SourceCommand  Source = "command"
	SourceAutoLock Source = "autolock"
	SourceAPI      Source = "api"
	SourceMQTT     Source = "mqtt"
)

// Snapshot is the full accessory state at a point in time.
type Snapshot struct {
	CurrentDoorState    DoorState `json:"current_door_state"`
	TargetDoorState     DoorState `json:"target_door_state"`
	ObstructionDetected bool      `json:"obstruction_detected"`
	AutoLockPending     bool      `json:"auto_lock_pending"`
}

// StateChange describes one slot update.
type StateChange struct {
	AccessoryID    string         `json:"accessory_id"`
	Characteristic Characteristic `json:"characteristic"`
	Value          int            `json:"value"`
	Source         Source         `json:"source"`
	Timestamp      time.Time      `json:"timestamp"`
	State          Snapshot       `json:"state"`
}

// CommandResult describes one outbound command attempt.
type CommandResult struct {
	ID          string        `json:"id"`
	AccessoryID string        `json:"accessory_id"`
	Target      DoorState     `json:"target"`
	URL         string        `json:"url"`
	Method      string        `json:"method"`
	Success     bool          `json:"success"`
	StatusCode  int           `json:"status_code,omitempty"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
	Source      Source        `json:"source"`
	Timestamp   time.Time     `json:"timestamp"`
}

// parseDigit converts a single-character push value to an int.
func parseDigit(value string) (int, error) {
	if len(value) != 1 || value[0] < '0' || value[0] > '9' {
		return 0, fmt.Errorf("%w: %q is not a single digit", ErrInvalidValue, value)
	}
	return int(value[0] - '0'), nil
}
