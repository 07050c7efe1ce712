// Gray Logic Garage Bridge
//
// This is the main entry point for the garage door bridge. It relays a
// garage door opener accessory to an HTTP device controller:
//   - Device pushes arrive on the push listener (accessory.port)
//   - Target changes are sent to {apiroute}/setTargetDoorState/{value}
//   - State is optionally exposed over HomeKit, MQTT and a status API
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	_ "github.com/nerrad567/gray-logic-garage/migrations"

	"github.com/nerrad567/gray-logic-garage/internal/api"
	"github.com/nerrad567/gray-logic-garage/internal/bridge"
	"github.com/nerrad567/gray-logic-garage/internal/garage"
	"github.com/nerrad567/gray-logic-garage/internal/history"
	"github.com/nerrad567/gray-logic-garage/internal/homekit"
	"github.com/nerrad567/gray-logic-garage/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-garage/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-garage/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-garage/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-garage/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

const (
	// Default configuration file path
	defaultConfigPath = "configs/config.yaml"

	// pruneInterval is how often door history older than the retention
	// period is deleted.
	pruneInterval = time.Hour
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on a clean shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting garage bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	cfg.Accessory.ApplyBuildDefaults(version)
	if cfg.Accessory.HasPartialAuth() {
		log.Warn("accessory username and password must both be set; sending commands without credentials")
	}

	// Open database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	repo := history.NewRepository(db.DB, log)

	// Characteristic store: HomeKit when enabled, in-memory otherwise
	var (
		chars   garage.DoorCharacteristics
		hkChars *homekit.Characteristics
	)
	if cfg.HomeKit.Enabled {
		hkChars = homekit.NewCharacteristics(cfg.Accessory.Name, log.With("component", "homekit"))
		chars = hkChars
	} else {
		chars = garage.NewMemoryCharacteristics()
		log.Info("HomeKit disabled")
	}

	acc := garage.NewAccessory(garage.Options{
		Config:          accessoryConfig(cfg.Accessory),
		Characteristics: chars,
		Logger:          log.With("accessory", cfg.Accessory.Name),
	})
	defer func() {
		log.Info("stopping accessory")
		if closeErr := acc.Close(); closeErr != nil {
			log.Error("error stopping accessory", "error", closeErr)
		}
	}()
	acc.AddObserver(repo)
	acc.AddCommandObserver(repo)

	checks := map[string]api.HealthChecker{"database": db}

	// Connect to InfluxDB (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		t := telemetry{writer: influxClient}
		acc.AddObserver(t)
		acc.AddCommandObserver(t)
		checks["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	// Connect to MQTT broker (optional)
	var mirror *bridge.Bridge
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(ctx, cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mirror, err = bridge.NewBridge(bridge.Options{
			MQTT:      mqttClient,
			Accessory: acc,
			QoS:       byte(cfg.MQTT.QoS),
			Logger:    log.With("component", "mqtt-bridge"),
		})
		if err != nil {
			return fmt.Errorf("creating MQTT bridge: %w", err)
		}
		defer func() {
			log.Info("stopping MQTT bridge")
			mirror.Stop()
		}()
		acc.AddObserver(mirror)
		mqttClient.SetOnConnect(mirror.PublishState)
		checks["mqtt"] = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	// Status API (optional)
	if cfg.API.Enabled {
		srv, apiErr := api.New(api.Deps{
			Config:    cfg.API,
			WS:        cfg.WebSocket,
			Logger:    log,
			Accessory: acc,
			History:   repo,
			Checks:    checks,
			Version:   version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		acc.AddObserver(srv)
		if startErr := srv.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error stopping API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("status API disabled")
	}

	// Bootstrap the accessory once every observer is attached
	services := acc.Services()
	log.Info("accessory ready",
		"id", acc.ID(),
		"services", len(services),
		"auto_lock", cfg.Accessory.AutoLock,
	)

	if mirror != nil {
		if startErr := mirror.Start(ctx); startErr != nil {
			return fmt.Errorf("starting MQTT bridge: %w", startErr)
		}
	}

	listener := garage.NewListener(cfg.Accessory.Port, acc, log.With("component", "listener"))
	if startErr := listener.Start(ctx); startErr != nil {
		return fmt.Errorf("starting push listener: %w", startErr)
	}
	defer func() {
		if closeErr := listener.Close(); closeErr != nil && !errors.Is(closeErr, garage.ErrListenerNotStarted) {
			log.Error("error stopping push listener", "error", closeErr)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	if hkChars != nil {
		g.Go(func() error {
			log.Info("publishing HomeKit accessory", "port", cfg.HomeKit.Port)
			return homekit.Publish(gctx, homekit.Config{
				Pin:         cfg.HomeKit.Pin,
				StoragePath: cfg.HomeKit.StoragePath,
				Port:        cfg.HomeKit.Port,
			}, hkChars, log.With("component", "homekit"))
		})
	}

	if retention := cfg.Database.GetRetention(); retention > 0 {
		g.Go(func() error {
			pruneHistory(gctx, repo, retention, log)
			return nil
		})
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	if waitErr := g.Wait(); waitErr != nil {
		return fmt.Errorf("running garage bridge: %w", waitErr)
	}

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// listener, API, MQTT bridge, MQTT, InfluxDB, accessory, database.

	log.Info("garage bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GARAGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GARAGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// accessoryConfig converts the YAML accessory section to the garage
// package configuration.
func accessoryConfig(c config.AccessoryConfig) garage.Config {
	return garage.Config{
		Name:             c.Name,
		APIRoute:         c.APIRoute,
		Port:             c.Port,
		AutoLock:         c.AutoLock,
		AutoLockDelay:    c.GetAutoLockDelay(),
		Manufacturer:     c.Manufacturer,
		Model:            c.Model,
		SerialNumber:     c.Serial,
		FirmwareRevision: c.Firmware,
		Username:         c.Username,
		Password:         c.Password,
		Timeout:          c.GetTimeout(),
		HTTPMethod:       c.HTTPMethod,
	}
}

// pruneHistory deletes expired door history now and then every
// pruneInterval until ctx is cancelled.
func pruneHistory(ctx context.Context, repo *history.Repository, retention time.Duration, log *logging.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		removed, err := repo.Prune(ctx, retention)
		switch {
		case err != nil && ctx.Err() == nil:
			log.Warn("pruning door history failed", "error", err)
		case removed > 0:
			log.Info("pruned door history", "rows", removed, "retention", retention.String())
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// telemetryWriter is the part of influxdb.Client used for door telemetry.
type telemetryWriter interface {
	WriteDoorState(accessoryID, characteristic string, value int, source string)
	WriteCommand(accessoryID string, target int, success bool, duration time.Duration, source string)
}

// telemetry adapts the InfluxDB client to the accessory observers.
type telemetry struct {
	writer telemetryWriter
}

// OnStateChange implements garage.StateObserver.
func (t telemetry) OnStateChange(c garage.StateChange) {
	t.writer.WriteDoorState(c.AccessoryID, string(c.Characteristic), c.Value, string(c.Source))
}

// OnCommand implements garage.CommandObserver.
func (t telemetry) OnCommand(r garage.CommandResult) {
	t.writer.WriteCommand(r.AccessoryID, int(r.Target), r.Success, r.Duration, string(r.Source))
}
