package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementDoorState   = "door_state"
	MeasurementDoorCommand = "door_command"
)

// WriteDoorState records a characteristic value change.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
//	client.WriteDoorState("garage-main", "currentDoorState", 1, "push")
func (c *Client) WriteDoorState(accessoryID, characteristic string, value int, source string) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(doorStatePoint(accessoryID, characteristic, value, source, time.Now()))
}

// WriteCommand records the outcome of an outbound door command.
func (c *Client) WriteCommand(accessoryID string, target int, success bool, duration time.Duration, source string) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(commandPoint(accessoryID, target, success, duration, source, time.Now()))
}

func doorStatePoint(accessoryID, characteristic string, value int, source string, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementDoorState,
		map[string]string{
			"accessory_id":   accessoryID,
			"characteristic": characteristic,
			"source":         source,
		},
		map[string]any{
			"value": value,
		},
		ts,
	)
}

func commandPoint(accessoryID string, target int, success bool, duration time.Duration, source string, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementDoorCommand,
		map[string]string{
			"accessory_id": accessoryID,
			"source":       source,
		},
		map[string]any{
			"target":      target,
			"success":     success,
			"duration_ms": duration.Milliseconds(),
		},
		ts,
	)
}
