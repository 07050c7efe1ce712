package garage

import "fmt"

// Dispatch applies a device push to the matching slot.
//
// Unknown characteristics and unparseable values are logged and ignored.
// A pushed OPEN target arms the auto-lock when enabled; a pushed CLOSED
// target disarms it.
func (a *Accessory) Dispatch(characteristic, value string) {
	if err := a.applyPush(characteristic, value); err != nil {
		a.logger.Warn("push ignored", "characteristic", characteristic, "value", value, "error", err)
	}
}

// applyPush validates and applies one push. Rejections wrap
// ErrUnknownCharacteristic or ErrInvalidValue.
func (a *Accessory) applyPush(characteristic, value string) error {
	c := Characteristic(characteristic)
	if !c.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCharacteristic, characteristic)
	}

	n, err := parseDigit(value)
	if err != nil {
		return err
	}

	switch c {
	case CharCurrentDoorState:
		state := DoorState(n)
		if !state.ValidCurrent() {
			return fmt.Errorf("%w: current door state %d out of range", ErrInvalidValue, n)
		}
		a.chars.UpdateCurrentDoorState(state)

	case CharTargetDoorState:
		state := DoorState(n)
		if !state.ValidTarget() {
			return fmt.Errorf("%w: target door state %d out of range", ErrInvalidValue, n)
		}
		a.chars.UpdateTargetDoorState(state)
		a.afterTarget(state)

	case CharObstructionDetected:
		a.chars.UpdateObstructionDetected(n != 0)
		n = min(n, 1)
	}

	a.logger.Debug("characteristic updated from device", "characteristic", characteristic, "value", n)
	a.notifyState(c, n, SourcePush)
	return nil
}
