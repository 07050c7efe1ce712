package garage

import (
	"sync"
	"time"
)

// AutoLock re-secures the door a fixed delay after it is opened.
//
// At most one timer is pending. Schedule replaces a pending timer rather
// than adding a second one, so a burst of open events produces one re-lock.
type AutoLock struct {
	delay time.Duration
	fire  func()

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	stopped bool

	firing sync.WaitGroup
}

// NewAutoLock returns an AutoLock that calls fire once delay has elapsed
// after the most recent Schedule.
func NewAutoLock(delay time.Duration, fire func()) *AutoLock {
	return &AutoLock{delay: delay, fire: fire}
}

// Delay returns the configured delay.
func (a *AutoLock) Delay() time.Duration {
	return a.delay
}

// Schedule starts the timer, replacing any pending one.
// Returns false after Stop.
func (a *AutoLock) Schedule() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return false
	}
	if a.timer != nil {
		a.timer.Stop()
	}

	// A replaced timer whose callback already started sees a stale
	// generation and returns without firing.
	a.gen++
	gen := a.gen
	a.timer = time.AfterFunc(a.delay, func() { a.expire(gen) })
	return true
}

// Cancel drops the pending timer. Returns true if one was pending.
func (a *AutoLock) Cancel() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancelLocked()
}

// Stop cancels the pending timer, refuses further scheduling and waits
// for a fire that is already running.
func (a *AutoLock) Stop() {
	a.mu.Lock()
	a.stopped = true
	a.cancelLocked()
	a.mu.Unlock()

	a.firing.Wait()
}

// Pending reports whether a re-lock is scheduled.
func (a *AutoLock) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timer != nil
}

func (a *AutoLock) cancelLocked() bool {
	if a.timer == nil {
		return false
	}
	a.timer.Stop()
	a.timer = nil
	a.gen++
	return true
}

func (a *AutoLock) expire(gen uint64) {
	a.mu.Lock()
	if a.stopped || gen != a.gen {
		a.mu.Unlock()
		return
	}
	a.timer = nil
	a.firing.Add(1)
	a.mu.Unlock()

	defer a.firing.Done()
	a.fire()
}
