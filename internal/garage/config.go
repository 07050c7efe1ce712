package garage

import (
	"strings"
	"time"
	"unicode"
)

// Config is the immutable accessory configuration.
type Config struct {
	// ID identifies the accessory on MQTT topics and in history.
	// Derived from Name when empty.
	ID string

	Name     string
	APIRoute string
	Port     int

	AutoLock      bool
	AutoLockDelay time.Duration

	Manufacturer     string
	Model            string
	SerialNumber     string
	FirmwareRevision string

	Username string
	Password string

	Timeout    time.Duration
	HTTPMethod string
}

// Defaults applied by withDefaults.
const (
	DefaultPort          = 2000
	DefaultAutoLockDelay = 10 * time.Second
	DefaultTimeout       = 3 * time.Second
	DefaultHTTPMethod    = "GET"
)

// BasicAuth returns the credentials to attach to outbound requests.
// ok is false unless both username and password are set.
func (c Config) BasicAuth() (username, password string, ok bool) {
	if c.Username == "" || c.Password == "" {
		return "", "", false
	}
	return c.Username, c.Password, true
}

func (c Config) withDefaults() Config {
	if c.ID == "" {
		c.ID = Slug(c.Name)
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.AutoLockDelay <= 0 {
		c.AutoLockDelay = DefaultAutoLockDelay
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.HTTPMethod == "" {
		c.HTTPMethod = DefaultHTTPMethod
	}
	c.HTTPMethod = strings.ToUpper(c.HTTPMethod)
	c.APIRoute = strings.TrimRight(c.APIRoute, "/")
	return c
}

// Slug converts an accessory name to a topic-safe identifier,
// e.g. "Garage Door (Main)" becomes "garage-door-main".
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "garage"
	}
	return slug
}
