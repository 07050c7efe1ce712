package garage

import (
	"context"
	"sync"
)

// Info is the accessory metadata published to the host.
type Info struct {
	Name             string `json:"name"`
	Manufacturer     string `json:"manufacturer"`
	Model            string `json:"model"`
	SerialNumber     string `json:"serial_number"`
	FirmwareRevision string `json:"firmware_revision"`
}

// SetHandler is invoked when the host writes TargetDoorState.
// A non-nil error marks the write as failed.
type SetHandler func(ctx context.Context, value DoorState) error

// DoorCharacteristics is the host-side characteristic store.
//
// Update methods change a slot and notify paired controllers without
// raising a set event. Implementations must be safe for concurrent use.
type DoorCharacteristics interface {
	CurrentDoorState() DoorState
	TargetDoorState() DoorState
	ObstructionDetected() bool

	UpdateCurrentDoorState(DoorState)
	UpdateTargetDoorState(DoorState)
	UpdateObstructionDetected(bool)

	PublishInformation(Info)
	OnTargetDoorStateSet(SetHandler)
	OnIdentify(func())
}

// MemoryCharacteristics is an in-process DoorCharacteristics.
//
// It backs headless runs and tests. Write simulates a controller setting
// the target state.
type MemoryCharacteristics struct {
	mu          sync.RWMutex
	current     DoorState
	target      DoorState
	obstruction bool
	info        Info
	onSet       SetHandler
	onIdentify  func()
}

// NewMemoryCharacteristics returns a store with every slot at its zero value.
func NewMemoryCharacteristics() *MemoryCharacteristics {
	return &MemoryCharacteristics{}
}

func (m *MemoryCharacteristics) CurrentDoorState() DoorState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *MemoryCharacteristics) TargetDoorState() DoorState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.target
}

func (m *MemoryCharacteristics) ObstructionDetected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.obstruction
}

func (m *MemoryCharacteristics) UpdateCurrentDoorState(v DoorState) {
	m.mu.Lock()
	m.current = v
	m.mu.Unlock()
}

func (m *MemoryCharacteristics) UpdateTargetDoorState(v DoorState) {
	m.mu.Lock()
	m.target = v
	m.mu.Unlock()
}

func (m *MemoryCharacteristics) UpdateObstructionDetected(v bool) {
	m.mu.Lock()
	m.obstruction = v
	m.mu.Unlock()
}

func (m *MemoryCharacteristics) PublishInformation(info Info) {
	m.mu.Lock()
	m.info = info
	m.mu.Unlock()
}

// Information returns the last published metadata.
func (m *MemoryCharacteristics) Information() Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.info
}

func (m *MemoryCharacteristics) OnTargetDoorStateSet(h SetHandler) {
	m.mu.Lock()
	m.onSet = h
	m.mu.Unlock()
}

func (m *MemoryCharacteristics) OnIdentify(fn func()) {
	m.mu.Lock()
	m.onIdentify = fn
	m.mu.Unlock()
}

// Write simulates a controller write of TargetDoorState. The slot itself
// only changes if the set handler accepts the value and updates it.
func (m *MemoryCharacteristics) Write(ctx context.Context, v DoorState) error {
	m.mu.RLock()
	h := m.onSet
	m.mu.RUnlock()

	if h == nil {
		return nil
	}
	return h(ctx, v)
}

// Identify simulates a controller identify request.
func (m *MemoryCharacteristics) Identify() {
	m.mu.RLock()
	fn := m.onIdentify
	m.mu.RUnlock()

	if fn != nil {
		fn()
	}
}
