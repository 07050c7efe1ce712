package homekit

import (
	"context"
	"fmt"

	"github.com/brutella/hc"
)

// Config holds the HAP transport settings.
type Config struct {
	// Pin is the eight digit pairing code.
	Pin string

	// StoragePath is where pairing keys are persisted.
	StoragePath string

	// Port is the HAP TCP port. Empty picks a random port.
	Port string
}

// Validate checks the pairing pin.
func (c Config) Validate() error {
	if len(c.Pin) != 8 {
		return ErrInvalidPin
	}
	for _, r := range c.Pin {
		if r < '0' || r > '9' {
			return ErrInvalidPin
		}
	}
	return nil
}

// Publish serves the accessory over the HAP IP transport and blocks until
// ctx is cancelled.
func Publish(ctx context.Context, cfg Config, chars *Characteristics, logger Logger) error {
	if logger == nil {
		logger = noopLogger{}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	t, err := hc.NewIPTransport(hc.Config{
		Pin:         cfg.Pin,
		StoragePath: cfg.StoragePath,
		Port:        cfg.Port,
	}, chars.Accessory())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransportFailed, err)
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		logger.Info("stopping homekit transport")
		<-t.Stop()
	}()

	logger.Info("homekit transport starting",
		"name", chars.Accessory().Info.Name.GetValue(),
		"storage_path", cfg.StoragePath,
		"port", cfg.Port,
	)
	t.Start()

	<-stopped
	chars.Close()
	return nil
}
