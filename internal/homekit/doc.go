// Package homekit exposes a garage.Accessory as a HomeKit garage door
// opener using github.com/brutella/hc.
//
// Characteristics implements garage.DoorCharacteristics on top of an hc
// GarageDoorOpener service. Controller writes to TargetDoorState are routed
// to the accessory set handler; when the device command fails the
// characteristic is reverted to the last confirmed value so paired
// controllers never show a target the door did not accept.
//
// Publish runs the HAP IP transport until the context is cancelled.
//
// Usage:
//
//	chars := homekit.NewCharacteristics("Garage", logger)
//	acc := garage.NewAccessory(garage.Options{Config: cfg, Characteristics: chars})
//	acc.Services()
//	err := homekit.Publish(ctx, homekit.Config{Pin: "03145154"}, chars, logger)
package homekit
