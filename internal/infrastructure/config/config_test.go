package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
accessory:
  name: "Garage"
  apiroute: "http://192.168.1.50"
  port: 2100
  autoLock: true
  autoLockDelay: 30
  username: "admin"
  password: "secret"
  timeout: 5000
  http_method: "POST"
database:
  path: "/tmp/garage.db"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Accessory.Name != "Garage" {
		t.Errorf("Accessory.Name = %q, want %q", cfg.Accessory.Name, "Garage")
	}
	if cfg.Accessory.Port != 2100 {
		t.Errorf("Accessory.Port = %d, want 2100", cfg.Accessory.Port)
	}
	if !cfg.Accessory.AutoLock {
		t.Error("Accessory.AutoLock = false, want true")
	}
	if cfg.Accessory.GetAutoLockDelay() != 30*time.Second {
		t.Errorf("GetAutoLockDelay() = %v, want 30s", cfg.Accessory.GetAutoLockDelay())
	}
	if cfg.Accessory.GetTimeout() != 5*time.Second {
		t.Errorf("GetTimeout() = %v, want 5s", cfg.Accessory.GetTimeout())
	}
	if cfg.Accessory.HTTPMethod != "POST" {
		t.Errorf("HTTPMethod = %q, want POST", cfg.Accessory.HTTPMethod)
	}
}

func TestLoad_Defaults(t *testing.T) {
	configPath := writeConfig(t, `
accessory:
  name: "Garage"
  apiroute: "http://door.local"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"port", cfg.Accessory.Port, 2000},
		{"autoLock", cfg.Accessory.AutoLock, false},
		{"autoLockDelay", cfg.Accessory.AutoLockDelay, 10.0},
		{"timeout", cfg.Accessory.Timeout, 3000},
		{"http_method", cfg.Accessory.HTTPMethod, "GET"},
		{"manufacturer", cfg.Accessory.Manufacturer, "Gray Logic"},
		{"model", cfg.Accessory.Model, "garagebridge"},
		{"mqtt enabled", cfg.MQTT.Enabled, false},
		{"api enabled", cfg.API.Enabled, false},
		{"homekit enabled", cfg.HomeKit.Enabled, false},
		{"retention days", cfg.Database.RetentionDays, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoad_AutoLockDelay(t *testing.T) {
	tests := []struct {
		name  string
		delay string
		want  time.Duration
	}{
		{"fractional", "0.5", 500 * time.Millisecond},
		{"whole", "2", 2 * time.Second},
		{"explicit zero uses default", "0", 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeConfig(t, `
accessory:
  name: "Garage"
  apiroute: "http://door.local"
  autoLockDelay: `+tt.delay+`
`)

			cfg, err := Load(configPath)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if got := cfg.Accessory.GetAutoLockDelay(); got != tt.want {
				t.Errorf("GetAutoLockDelay() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	configPath := writeConfig(t, `
accessory:
  name: "Garage"
  apiroute: "http://door.local"
`)

	t.Setenv("GARAGE_ACCESSORY_APIROUTE", "https://override.local:8443")
	t.Setenv("GARAGE_ACCESSORY_USERNAME", "envuser")
	t.Setenv("GARAGE_ACCESSORY_PASSWORD", "envpass")
	t.Setenv("GARAGE_DATABASE_PATH", "/tmp/override.db")
	t.Setenv("GARAGE_MQTT_HOST", "broker.local")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Accessory.APIRoute != "https://override.local:8443" {
		t.Errorf("APIRoute = %q, want override", cfg.Accessory.APIRoute)
	}
	if cfg.Accessory.Username != "envuser" || cfg.Accessory.Password != "envpass" {
		t.Errorf("credentials not overridden: %q/%q", cfg.Accessory.Username, cfg.Accessory.Password)
	}
	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("Database.Path = %q, want override", cfg.Database.Path)
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want broker.local", cfg.MQTT.Broker.Host)
	}
}

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Accessory.Name = "Garage"
	cfg.Accessory.APIRoute = "http://192.168.1.50"
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "missing name",
			mutate:  func(c *Config) { c.Accessory.Name = "" },
			wantErr: "accessory.name is required",
		},
		{
			name:    "missing apiroute",
			mutate:  func(c *Config) { c.Accessory.APIRoute = "" },
			wantErr: "accessory.apiroute is required",
		},
		{
			name:    "apiroute without scheme",
			mutate:  func(c *Config) { c.Accessory.APIRoute = "192.168.1.50" },
			wantErr: "http or https URL",
		},
		{
			name:    "port too high",
			mutate:  func(c *Config) { c.Accessory.Port = 70000 },
			wantErr: "accessory.port",
		},
		{
			name:    "negative auto-lock delay",
			mutate:  func(c *Config) { c.Accessory.AutoLockDelay = -1 },
			wantErr: "autoLockDelay",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Accessory.Timeout = 0 },
			wantErr: "accessory.timeout",
		},
		{
			name:    "unsupported method",
			mutate:  func(c *Config) { c.Accessory.HTTPMethod = "TRACE" },
			wantErr: "http_method",
		},
		{
			name:   "lower-case method accepted",
			mutate: func(c *Config) { c.Accessory.HTTPMethod = "post" },
		},
		{
			name:    "negative retention",
			mutate:  func(c *Config) { c.Database.RetentionDays = -1 },
			wantErr: "database.retention_days",
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name: "api port collides with listener",
			mutate: func(c *Config) {
				c.API.Enabled = true
				c.API.Port = c.Accessory.Port
			},
			wantErr: "api.port must differ",
		},
		{
			name: "homekit pin too short",
			mutate: func(c *Config) {
				c.HomeKit.Enabled = true
				c.HomeKit.Pin = "1234"
			},
			wantErr: "homekit.pin",
		},
		{
			name: "homekit pin ok",
			mutate: func(c *Config) {
				c.HomeKit.Enabled = true
				c.HomeKit.Pin = "03145154"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestAccessoryConfig_ApplyBuildDefaults(t *testing.T) {
	a := AccessoryConfig{Serial: "SN-1"}
	a.ApplyBuildDefaults("1.2.3")

	if a.Serial != "SN-1" {
		t.Errorf("Serial = %q, want existing value kept", a.Serial)
	}
	if a.Firmware != "1.2.3" {
		t.Errorf("Firmware = %q, want 1.2.3", a.Firmware)
	}
}

func TestAccessoryConfig_HasPartialAuth(t *testing.T) {
	tests := []struct {
		user, pass string
		want       bool
	}{
		{"", "", false},
		{"u", "p", false},
		{"u", "", true},
		{"", "p", true},
	}
	for _, tt := range tests {
		a := AccessoryConfig{Username: tt.user, Password: tt.pass}
		if got := a.HasPartialAuth(); got != tt.want {
			t.Errorf("HasPartialAuth(%q, %q) = %v, want %v", tt.user, tt.pass, got, tt.want)
		}
	}
}
