package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the garage bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Accessory AccessoryConfig `yaml:"accessory"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	HomeKit   HomeKitConfig   `yaml:"homekit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AccessoryConfig describes the garage door accessory and the device it relays to.
//
// Key names follow the established plugin configuration so existing
// configurations can be copied across unchanged.
type AccessoryConfig struct {
	// Name is the accessory name shown to controllers. Required.
	Name string `yaml:"name"`

	// APIRoute is the base URL of the device HTTP API. Required.
	// Commands are sent to {apiroute}/setTargetDoorState/{value}.
	APIRoute string `yaml:"apiroute"`

	// Port is the push listener port. Default: 2000
	Port int `yaml:"port"`

	// AutoLock re-closes the door AutoLockDelay seconds after it is opened.
	AutoLock bool `yaml:"autoLock"`

	// AutoLockDelay is the auto-lock delay in seconds and may be fractional.
	// Zero selects the default. Default: 10
	AutoLockDelay float64 `yaml:"autoLockDelay"`

	Manufacturer string `yaml:"manufacturer"`
	Serial       string `yaml:"serial"`
	Model        string `yaml:"model"`
	Firmware     string `yaml:"firmware"`

	// Username and Password enable HTTP basic auth on outbound commands.
	// Both must be set; a lone value is ignored.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Timeout is the outbound request timeout in milliseconds. Default: 3000
	Timeout int `yaml:"timeout"`

	// HTTPMethod is the outbound request method. Default: GET
	HTTPMethod string `yaml:"http_method"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// RetentionDays is how long door history is kept. 0 keeps it forever.
	RetentionDays int `yaml:"retention_days"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains status API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket stream settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// HomeKitConfig contains HomeKit Accessory Protocol settings.
type HomeKitConfig struct {
	Enabled bool `yaml:"enabled"`

	// Pin is the 8-digit setup code entered on the controller.
	Pin string `yaml:"pin"`

	// StoragePath holds pairing keys between restarts.
	StoragePath string `yaml:"storage_path"`

	// Port is the HAP server port. Empty picks a random port.
	Port string `yaml:"port"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GARAGE_SECTION_KEY
// For example: GARAGE_ACCESSORY_APIROUTE, GARAGE_MQTT_HOST
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

const defaultAutoLockDelay = 10 * time.Second

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Accessory: AccessoryConfig{
			Port:          2000,
			AutoLock:      false,
			AutoLockDelay: 10,
			Manufacturer:  "Gray Logic",
			Model:         "garagebridge",
			Timeout:       3000,
			HTTPMethod:    "GET",
		},
		Database: DatabaseConfig{
			Path:          "./data/garage.db",
			WALMode:       true,
			BusyTimeout:   5,
			RetentionDays: 90,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "garagebridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		HomeKit: HomeKitConfig{
			StoragePath: "./data/homekit",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Accessory
	if v := os.Getenv("GARAGE_ACCESSORY_APIROUTE"); v != "" {
		cfg.Accessory.APIRoute = v
	}
	if v := os.Getenv("GARAGE_ACCESSORY_USERNAME"); v != "" {
		cfg.Accessory.Username = v
	}
	if v := os.Getenv("GARAGE_ACCESSORY_PASSWORD"); v != "" {
		cfg.Accessory.Password = v
	}

	// Database
	if v := os.Getenv("GARAGE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GARAGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GARAGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GARAGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("GARAGE_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("GARAGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// HomeKit
	if v := os.Getenv("GARAGE_HOMEKIT_PIN"); v != "" {
		cfg.HomeKit.Pin = v
	}
}

// allowedMethods lists the HTTP methods accepted for outbound commands.
var allowedMethods = map[string]bool{
	"GET":    true,
	"POST":   true,
	"PUT":    true,
	"PATCH":  true,
	"DELETE": true,
}

// homeKitPinLength is the number of digits in a HomeKit setup code.
const homeKitPinLength = 8

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	// Accessory validation
	if c.Accessory.Name == "" {
		errs = append(errs, "accessory.name is required")
	}
	if c.Accessory.APIRoute == "" {
		errs = append(errs, "accessory.apiroute is required")
	} else if u, err := url.Parse(c.Accessory.APIRoute); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, "accessory.apiroute must be an http or https URL")
	}
	if c.Accessory.Port < 1 || c.Accessory.Port > 65535 {
		errs = append(errs, "accessory.port must be between 1 and 65535")
	}
	if c.Accessory.AutoLockDelay < 0 {
		errs = append(errs, "accessory.autoLockDelay must not be negative")
	}
	if c.Accessory.Timeout <= 0 {
		errs = append(errs, "accessory.timeout must be positive")
	}
	if !allowedMethods[strings.ToUpper(c.Accessory.HTTPMethod)] {
		errs = append(errs, "accessory.http_method must be one of GET, POST, PUT, PATCH, DELETE")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Database.RetentionDays < 0 {
		errs = append(errs, "database.retention_days must not be negative")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.Enabled && c.API.Port == c.Accessory.Port {
		errs = append(errs, "api.port must differ from accessory.port")
	}

	// HomeKit validation
	if c.HomeKit.Enabled {
		if len(c.HomeKit.Pin) != homeKitPinLength || strings.Trim(c.HomeKit.Pin, "0123456789") != "" {
			errs = append(errs, "homekit.pin must be 8 digits (set GARAGE_HOMEKIT_PIN environment variable)")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ApplyBuildDefaults fills serial and firmware from the build version when unset.
func (a *AccessoryConfig) ApplyBuildDefaults(version string) {
	if a.Serial == "" {
		a.Serial = version
	}
	if a.Firmware == "" {
		a.Firmware = version
	}
}

// HasPartialAuth reports whether exactly one of username and password is set.
// Such a configuration attaches no credentials.
func (a *AccessoryConfig) HasPartialAuth() bool {
	return (a.Username == "") != (a.Password == "")
}

// GetAutoLockDelay returns the auto-lock delay as a Duration. Zero yields
// the 10 second default.
func (a *AccessoryConfig) GetAutoLockDelay() time.Duration {
	if a.AutoLockDelay == 0 {
		return defaultAutoLockDelay
	}
	return time.Duration(a.AutoLockDelay * float64(time.Second))
}

// GetTimeout returns the outbound request timeout as a Duration.
func (a *AccessoryConfig) GetTimeout() time.Duration {
	return time.Duration(a.Timeout) * time.Millisecond
}

// GetRetention returns the history retention period, or 0 to keep everything.
func (d *DatabaseConfig) GetRetention() time.Duration {
	return time.Duration(d.RetentionDays) * 24 * time.Hour
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
