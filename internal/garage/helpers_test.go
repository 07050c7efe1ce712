package garage

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// deviceRequest is one request received by fakeDevice.
type deviceRequest struct {
	Method   string
	Path     string
	User     string
	Password string
	HasAuth  bool
	At       time.Time
}

// fakeDevice is an httptest stand-in for the garage controller.
type fakeDevice struct {
	mu       sync.Mutex
	requests []deviceRequest
	status   int
	delay    time.Duration
	srv      *httptest.Server
	notify   chan deviceRequest
}

func newFakeDevice(t *testing.T) *fakeDevice {
	t.Helper()
	d := &fakeDevice{status: http.StatusOK, notify: make(chan deviceRequest, 16)}
	d.srv = httptest.NewServer(http.HandlerFunc(d.serve))
	t.Cleanup(d.srv.Close)
	return d
}

func (d *fakeDevice) serve(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	req := deviceRequest{
		Method:   r.Method,
		Path:     r.URL.Path,
		User:     user,
		Password: pass,
		HasAuth:  ok,
		At:       time.Now(),
	}

	d.mu.Lock()
	d.requests = append(d.requests, req)
	status, delay := d.status, d.delay
	d.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	w.WriteHeader(status)

	select {
	case d.notify <- req:
	default:
	}
}

func (d *fakeDevice) URL() string {
	return d.srv.URL
}

func (d *fakeDevice) setStatus(status int) {
	d.mu.Lock()
	d.status = status
	d.mu.Unlock()
}

func (d *fakeDevice) Requests() []deviceRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]deviceRequest(nil), d.requests...)
}

// waitRequest blocks until the device receives a request or the timeout passes.
func (d *fakeDevice) waitRequest(t *testing.T, timeout time.Duration) deviceRequest {
	t.Helper()
	select {
	case req := <-d.notify:
		return req
	case <-time.After(timeout):
		t.Fatalf("device received no request within %v", timeout)
		return deviceRequest{}
	}
}

// deadRoute returns a URL nobody listens on.
func deadRoute(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

// recorder collects observer events.
type recorder struct {
	mu       sync.Mutex
	changes  []StateChange
	commands []CommandResult
}

func (r *recorder) OnStateChange(c StateChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) OnCommand(c CommandResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, c)
}

func (r *recorder) Changes() []StateChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StateChange(nil), r.changes...)
}

func (r *recorder) Commands() []CommandResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CommandResult(nil), r.commands...)
}

// newTestAccessory builds a bootstrapped accessory with a recorder attached.
func newTestAccessory(t *testing.T, cfg Config) (*Accessory, *MemoryCharacteristics, *recorder) {
	t.Helper()
	if cfg.Name == "" {
		cfg.Name = "Test Garage"
	}

	chars := NewMemoryCharacteristics()
	acc := NewAccessory(Options{Config: cfg, Characteristics: chars})
	rec := &recorder{}
	acc.AddObserver(rec)
	acc.AddCommandObserver(rec)
	acc.Services()
	t.Cleanup(func() { acc.Close() }) //nolint:errcheck // Test cleanup

	return acc, chars, rec
}

// eventually polls cond until it holds or timeout elapses.
func eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

// captureLogger records log messages by level.
type captureLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *captureLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, level+":"+msg)
}

func (l *captureLogger) Debug(msg string, _ ...any) { l.log("debug", msg) }
func (l *captureLogger) Info(msg string, _ ...any)  { l.log("info", msg) }
func (l *captureLogger) Warn(msg string, _ ...any)  { l.log("warn", msg) }
func (l *captureLogger) Error(msg string, _ ...any) { l.log("error", msg) }

func (l *captureLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e == level+":"+msg {
			return true
		}
	}
	return false
}
