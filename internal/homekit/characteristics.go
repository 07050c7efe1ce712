package homekit

import (
	"context"
	"sync"
	"time"

	"github.com/brutella/hc/accessory"
	"github.com/brutella/hc/service"

	"github.com/nerrad567/gray-logic-garage/internal/garage"
)

// remoteSetTimeout bounds one controller write, including the device command.
const remoteSetTimeout = 30 * time.Second

// Logger is the structured logger used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Characteristics is a garage.DoorCharacteristics backed by an hc
// GarageDoorOpener service.
type Characteristics struct {
	acc  *accessory.Accessory
	door *service.GarageDoorOpener

	logger Logger

	// mu guards the hc characteristic values and the fields below.
	mu        sync.Mutex
	confirmed garage.DoorState
	onSet     garage.SetHandler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ garage.DoorCharacteristics = (*Characteristics)(nil)

// NewCharacteristics creates the hc accessory with a garage door opener
// service. name is the initial display name; PublishInformation replaces it.
func NewCharacteristics(name string, logger Logger) *Characteristics {
	if logger == nil {
		logger = noopLogger{}
	}

	acc := accessory.New(accessory.Info{Name: name}, accessory.TypeGarageDoorOpener)
	door := service.NewGarageDoorOpener()
	acc.AddService(door.Service)

	c := &Characteristics{
		acc:       acc,
		door:      door,
		logger:    logger,
		confirmed: garage.DoorClosed,
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	door.TargetDoorState.OnValueRemoteUpdate(c.remoteTarget)
	return c
}

// Accessory returns the hc accessory for the IP transport.
func (c *Characteristics) Accessory() *accessory.Accessory {
	return c.acc
}

func (c *Characteristics) CurrentDoorState() garage.DoorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return garage.DoorState(c.door.CurrentDoorState.GetValue())
}

func (c *Characteristics) TargetDoorState() garage.DoorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return garage.DoorState(c.door.TargetDoorState.GetValue())
}

func (c *Characteristics) ObstructionDetected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.door.ObstructionDetected.GetValue()
}

func (c *Characteristics) UpdateCurrentDoorState(v garage.DoorState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.door.CurrentDoorState.SetValue(int(v))
}

// UpdateTargetDoorState sets the slot and records v as confirmed.
func (c *Characteristics) UpdateTargetDoorState(v garage.DoorState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirmed = v
	c.door.TargetDoorState.SetValue(int(v))
}

func (c *Characteristics) UpdateObstructionDetected(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.door.ObstructionDetected.SetValue(v)
}

// PublishInformation writes the accessory information service.
// Empty fields keep the hc defaults.
func (c *Characteristics) PublishInformation(info garage.Info) {
	c.mu.Lock()
	defer c.mu.Unlock()

	set := func(value string, apply func(string)) {
		if value != "" {
			apply(value)
		}
	}
	set(info.Name, c.acc.Info.Name.SetValue)
	set(info.Manufacturer, c.acc.Info.Manufacturer.SetValue)
	set(info.Model, c.acc.Info.Model.SetValue)
	set(info.SerialNumber, c.acc.Info.SerialNumber.SetValue)
	set(info.FirmwareRevision, c.acc.Info.FirmwareRevision.SetValue)
}

func (c *Characteristics) OnTargetDoorStateSet(h garage.SetHandler) {
	c.mu.Lock()
	c.onSet = h
	c.mu.Unlock()
}

func (c *Characteristics) OnIdentify(fn func()) {
	c.acc.OnIdentify(fn)
}

// Close cancels in-flight controller writes and waits for them.
func (c *Characteristics) Close() {
	c.cancel()
	c.wg.Wait()
}

// remoteTarget handles a controller write. hc has already stored the new
// value; the device command runs off the HAP goroutine and a failure
// restores the last confirmed target.
func (c *Characteristics) remoteTarget(value int) {
	c.mu.Lock()
	h := c.onSet
	previous := c.confirmed
	c.mu.Unlock()

	target := garage.DoorState(value)
	if h == nil {
		c.logger.Warn("homekit write ignored, no set handler", "value", value)
		return
	}

	if c.ctx.Err() != nil {
		return
	}
	c.logger.Debug("homekit target door state write", "value", value)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(c.ctx, remoteSetTimeout)
		defer cancel()

		if err := h(ctx, target); err != nil {
			c.logger.Warn("reverting target door state",
				"value", value,
				"confirmed", int(previous),
				"error", err,
			)
			c.revert()
		}
	}()
}

// revert restores the last confirmed target. A write that succeeded
// meanwhile has already moved confirmed forward.
func (c *Characteristics) revert() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.door.TargetDoorState.SetValue(int(c.confirmed))
}
