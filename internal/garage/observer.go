package garage

import "sync"

// StateObserver receives every slot change.
//
// Observers run synchronously on the goroutine that changed the slot and
// must not block. Panics are recovered and logged.
type StateObserver interface {
	OnStateChange(change StateChange)
}

// CommandObserver receives the result of every outbound command.
type CommandObserver interface {
	OnCommand(result CommandResult)
}

// StateObserverFunc adapts a function to StateObserver.
type StateObserverFunc func(StateChange)

func (f StateObserverFunc) OnStateChange(change StateChange) { f(change) }

// CommandObserverFunc adapts a function to CommandObserver.
type CommandObserverFunc func(CommandResult)

func (f CommandObserverFunc) OnCommand(result CommandResult) { f(result) }

type observers struct {
	mu       sync.RWMutex
	state    []StateObserver
	commands []CommandObserver
}

func (o *observers) addState(obs StateObserver) {
	o.mu.Lock()
	o.state = append(o.state, obs)
	o.mu.Unlock()
}

func (o *observers) addCommand(obs CommandObserver) {
	o.mu.Lock()
	o.commands = append(o.commands, obs)
	o.mu.Unlock()
}

func (o *observers) stateSnapshot() []StateObserver {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]StateObserver(nil), o.state...)
}

func (o *observers) commandSnapshot() []CommandObserver {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]CommandObserver(nil), o.commands...)
}
