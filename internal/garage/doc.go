// Package garage relays a HomeKit-style garage door opener to a device
// that speaks plain HTTP.
//
// State flows both ways:
//
//	host ──SetTargetDoorState──► CommandClient ──GET {apiroute}/setTargetDoorState/{v}──► device
//	device ──GET /{any}/{characteristic}/{v}──► Listener ──Dispatch──► DoorCharacteristics
//
// # Slots
//
// The three slots (TargetDoorState, CurrentDoorState, ObstructionDetected)
// are held by an injected DoorCharacteristics. MemoryCharacteristics is
// the in-process implementation; internal/homekit provides one backed by
// a HAP accessory.
//
// # Auto-lock
//
// With auto-lock enabled, a target of OPEN (0), whether pushed by the
// device or commanded by the host, schedules a re-lock that commands
// CLOSED (1) after the configured delay. A new OPEN replaces the pending
// timer; a CLOSED target cancels it.
//
// # Observers
//
// Every slot change and every outbound command is fanned out to registered
// StateObserver and CommandObserver values (history, MQTT mirror,
// telemetry, WebSocket stream).
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple goroutines.
// When the push and command paths race on the same slot, the last write wins.
package garage
