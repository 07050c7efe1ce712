package garage

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Push listener responses.
const (
	ResponseHandling = "Handling request"
	ResponseInvalid  = "Invalid request"
)

const (
	pushSegments        = 3
	listenerReadTimeout = 10 * time.Second
	shutdownTimeout     = 5 * time.Second
)

// Dispatcher receives validated pushes.
type Dispatcher interface {
	Dispatch(characteristic, value string)
}

// Listener is the HTTP server through which the device pushes state.
//
// Accepted paths have exactly three segments, /{any}/{characteristic}/{value},
// with a recognised characteristic and a one-character value. Every
// request is answered 200 text/plain.
type Listener struct {
	port       int
	dispatcher Dispatcher
	logger     Logger

	mu     sync.Mutex
	server *http.Server
	addr   net.Addr
}

// NewListener creates a listener for port. Port 0 picks a free port.
func NewListener(port int, dispatcher Dispatcher, logger Logger) *Listener {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Listener{port: port, dispatcher: dispatcher, logger: logger}
}

// Handler returns the routed push handler.
func (l *Listener) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(pushRequestID)
	r.Use(l.recovery)
	r.HandleFunc("/*", l.handlePush)
	return r
}

// Start binds the port and serves in the background. Bind errors are
// returned synchronously. The server shuts down when ctx is cancelled.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.server != nil {
		return ErrListenerStarted
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", l.port))
	if err != nil {
		return fmt.Errorf("binding push listener: %w", err)
	}

	srv := &http.Server{
		Handler:           l.Handler(),
		ReadHeaderTimeout: listenerReadTimeout,
	}
	l.server = srv
	l.addr = ln.Addr()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.logger.Error("push listener stopped", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		l.Close() //nolint:errcheck // Already closed is fine
	}()

	l.logger.Info("listen server", "address", localIPv4(), "port", tcpPort(l.addr))
	return nil
}

// Addr returns the bound address, or nil before Start.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.addr
}

// Close shuts the server down gracefully.
func (l *Listener) Close() error {
	l.mu.Lock()
	srv := l.server
	l.server = nil
	l.mu.Unlock()

	if srv == nil {
		return ErrListenerNotStarted
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		l.logger.Warn("push listener shutdown", "error", err)
		return fmt.Errorf("shutting down push listener: %w", err)
	}
	return nil
}

func (l *Listener) handlePush(w http.ResponseWriter, r *http.Request) {
	requestID, _ := r.Context().Value(ctxKeyRequestID).(string) //nolint:errcheck // Set by pushRequestID
	characteristic, value, ok := parsePushPath(r.URL.Path)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	if !ok {
		l.logger.Warn("invalid push request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"request_id", requestID,
		)
		_, _ = w.Write([]byte(ResponseInvalid)) //nolint:errcheck // Client may be gone
		return
	}

	l.logger.Info("push request",
		"characteristic", characteristic,
		"value", value,
		"remote", r.RemoteAddr,
		"request_id", requestID,
	)

	// Answer before dispatching so the device is never held up by
	// slot updates or observers.
	_, _ = w.Write([]byte(ResponseHandling)) //nolint:errcheck // Client may be gone
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	l.dispatcher.Dispatch(characteristic, value)
}

// parsePushPath splits /{prefix}/{characteristic}/{value}. The leading
// slash is not a segment.
func parsePushPath(path string) (characteristic, value string, ok bool) {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(segments) != pushSegments {
		return "", "", false
	}

	characteristic, value = segments[1], segments[2]
	if !Characteristic(characteristic).Valid() || len(value) != 1 {
		return "", "", false
	}
	return characteristic, value, true
}

type contextKey string

const ctxKeyRequestID contextKey = "request_id"

func pushRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (l *Listener) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				l.logger.Error("panic recovered in push handler", "error", err, "path", r.URL.Path)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// localIPv4 returns the first non-loopback IPv4 address, or "0.0.0.0".
func localIPv4() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "0.0.0.0"
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "0.0.0.0"
}

func tcpPort(addr net.Addr) int {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}
