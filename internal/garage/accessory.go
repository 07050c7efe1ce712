package garage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger is the structured logger used by this package.
// Compatible with logging.Logger.
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

// Options configures NewAccessory.
type Options struct {
	Config Config

	// Characteristics is the host store. Defaults to MemoryCharacteristics.
	Characteristics DoorCharacteristics

	// Client overrides the command client built from Config.
	Client *CommandClient

	// Logger is optional structured logger.
	Logger Logger
}

// Accessory is a garage door opener relayed to an HTTP device.
//
// Slots live in the injected DoorCharacteristics and change only through
// Dispatch (device push), SetTargetDoorState (host command), the auto-lock
// timer and the Services bootstrap.
type Accessory struct {
	cfg      Config
	chars    DoorCharacteristics
	client   *CommandClient
	autoLock *AutoLock
	logger   Logger
	obs      observers

	servicesOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAccessory creates an accessory. Services must be called before the
// host exposes it.
func NewAccessory(opts Options) *Accessory {
	cfg := opts.Config.withDefaults()

	a := &Accessory{
		cfg:    cfg,
		chars:  opts.Characteristics,
		client: opts.Client,
		logger: opts.Logger,
	}
	if a.chars == nil {
		a.chars = NewMemoryCharacteristics()
	}
	if a.client == nil {
		a.client = NewCommandClient(cfg)
	}
	if a.logger == nil {
		a.logger = noopLogger{}
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	if cfg.AutoLock {
		a.autoLock = NewAutoLock(cfg.AutoLockDelay, a.relock)
	}

	return a
}

// ID returns the accessory identifier.
func (a *Accessory) ID() string {
	return a.cfg.ID
}

// Config returns the effective configuration.
func (a *Accessory) Config() Config {
	return a.cfg
}

// Characteristics returns the injected characteristic store.
func (a *Accessory) Characteristics() DoorCharacteristics {
	return a.chars
}

// AddObserver registers a StateObserver.
func (a *Accessory) AddObserver(obs StateObserver) {
	a.obs.addState(obs)
}

// AddCommandObserver registers a CommandObserver.
func (a *Accessory) AddCommandObserver(obs CommandObserver) {
	a.obs.addCommand(obs)
}

// Identify is invoked by the host for diagnostics.
func (a *Accessory) Identify() {
	a.logger.Info("identify requested", "accessory", a.cfg.Name)
}

// Info returns the metadata published to the host.
func (a *Accessory) Info() Info {
	return Info{
		Name:             a.cfg.Name,
		Manufacturer:     a.cfg.Manufacturer,
		Model:            a.cfg.Model,
		SerialNumber:     a.cfg.SerialNumber,
		FirmwareRevision: a.cfg.FirmwareRevision,
	}
}

// State returns a snapshot of every slot.
func (a *Accessory) State() Snapshot {
	s := Snapshot{
		CurrentDoorState:    a.chars.CurrentDoorState(),
		TargetDoorState:     a.chars.TargetDoorState(),
		ObstructionDetected: a.chars.ObstructionDetected(),
	}
	if a.autoLock != nil {
		s.AutoLockPending = a.autoLock.Pending()
	}
	return s
}

// AutoLockPending reports whether a re-lock is scheduled.
func (a *Accessory) AutoLockPending() bool {
	return a.autoLock != nil && a.autoLock.Pending()
}

// SetTargetDoorState commands the device and, once it answers, updates
// the target slot.
//
// A transport failure leaves the slot untouched and is returned wrapping
// ErrCommandFailed. Commanding OPEN arms the auto-lock when enabled;
// commanding CLOSED disarms it.
func (a *Accessory) SetTargetDoorState(ctx context.Context, value DoorState, source Source) error {
	if !value.ValidTarget() {
		return ErrInvalidTarget
	}

	commandID := "cmd-" + uuid.NewString()[:8]
	a.logger.Info("setting target door state",
		"command_id", commandID,
		"value", int(value),
		"source", source,
	)

	resp, err := a.client.Send(ctx, value)
	a.notifyCommand(commandID, value, source, resp, err)

	if err != nil {
		a.logger.Warn("error setting target door state",
			"command_id", commandID,
			"value", int(value),
			"error", err,
		)
		return err
	}

	if !resp.Delivered() {
		a.logger.Warn("device answered with non-success status",
			"command_id", commandID,
			"status", resp.StatusCode,
			"url", resp.URL,
		)
	}

	a.logger.Info("target door state set",
		"command_id", commandID,
		"value", int(value),
		"duration_ms", resp.Duration.Milliseconds(),
	)

	a.chars.UpdateTargetDoorState(value)
	a.afterTarget(value)
	a.notifyState(CharTargetDoorState, int(value), source)

	return nil
}

// SetTargetDoorStateAsync runs SetTargetDoorState on a goroutine and calls
// callback exactly once with its result.
func (a *Accessory) SetTargetDoorStateAsync(ctx context.Context, value DoorState, source Source, callback func(error)) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		err := a.SetTargetDoorState(ctx, value, source)
		if callback != nil {
			callback(err)
		}
	}()
}

// Services runs the one-time bootstrap and returns the service descriptors.
//
// The first call sets current and target to CLOSED with no obstruction,
// publishes the metadata, and wires the set and identify handlers.
func (a *Accessory) Services() []ServiceDescriptor {
	a.servicesOnce.Do(func() {
		a.chars.UpdateCurrentDoorState(DoorClosed)
		a.chars.UpdateTargetDoorState(DoorClosed)
		a.chars.UpdateObstructionDetected(false)
		a.notifyState(CharCurrentDoorState, int(DoorClosed), SourceInit)
		a.notifyState(CharTargetDoorState, int(DoorClosed), SourceInit)
		a.notifyState(CharObstructionDetected, 0, SourceInit)

		a.chars.PublishInformation(a.Info())
		a.chars.OnTargetDoorStateSet(func(ctx context.Context, v DoorState) error {
			return a.SetTargetDoorState(ctx, v, SourceCommand)
		})
		a.chars.OnIdentify(a.Identify)
	})

	return a.describe()
}

// Close cancels an in-flight auto-lock command, stops the timer and waits
// for async commands to finish.
func (a *Accessory) Close() error {
	a.cancel()
	if a.autoLock != nil {
		a.autoLock.Stop()
	}
	a.wg.Wait()
	return nil
}

// relock is the auto-lock fire function.
func (a *Accessory) relock() {
	a.logger.Info("auto-lock firing", "delay", a.cfg.AutoLockDelay.String())
	if err := a.SetTargetDoorState(a.ctx, DoorClosed, SourceAutoLock); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		a.logger.Warn("auto-lock command failed", "error", err)
		return
	}
	a.logger.Info("auto-lock secured door")
}

// afterTarget arms or disarms the auto-lock for a new target value.
func (a *Accessory) afterTarget(value DoorState) {
	if a.autoLock == nil {
		return
	}
	switch value {
	case DoorOpen:
		if a.autoLock.Schedule() {
			a.logger.Debug("auto-lock scheduled", "delay", a.cfg.AutoLockDelay.String())
		}
	case DoorClosed:
		if a.autoLock.Cancel() {
			a.logger.Debug("auto-lock cancelled")
		}
	}
}

func (a *Accessory) notifyState(c Characteristic, value int, source Source) {
	change := StateChange{
		AccessoryID:    a.cfg.ID,
		Characteristic: c,
		Value:          value,
		Source:         source,
		Timestamp:      time.Now().UTC(),
		State:          a.State(),
	}
	for _, obs := range a.obs.stateSnapshot() {
		a.safely("state observer", func() { obs.OnStateChange(change) })
	}
}

func (a *Accessory) notifyCommand(id string, target DoorState, source Source, resp *CommandResponse, err error) {
	result := CommandResult{
		ID:          id,
		AccessoryID: a.cfg.ID,
		Target:      target,
		URL:         a.client.URL(target),
		Method:      a.client.Method(),
		Success:     err == nil,
		Source:      source,
		Timestamp:   time.Now().UTC(),
	}
	if resp != nil {
		result.StatusCode = resp.StatusCode
		result.Duration = resp.Duration
	}
	if err != nil {
		result.Error = err.Error()
	}
	for _, obs := range a.obs.commandSnapshot() {
		a.safely("command observer", func() { obs.OnCommand(result) })
	}
}

func (a *Accessory) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error(what+" panic recovered", "panic", r)
		}
	}()
	fn()
}
