package homekit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-garage/internal/garage"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestCharacteristics_Slots(t *testing.T) {
	c := NewCharacteristics("Garage", nil)
	defer c.Close()

	c.UpdateCurrentDoorState(garage.DoorOpening)
	c.UpdateTargetDoorState(garage.DoorOpen)
	c.UpdateObstructionDetected(true)

	if got := c.CurrentDoorState(); got != garage.DoorOpening {
		t.Errorf("CurrentDoorState() = %v, want opening", got)
	}
	if got := c.TargetDoorState(); got != garage.DoorOpen {
		t.Errorf("TargetDoorState() = %v, want open", got)
	}
	if !c.ObstructionDetected() {
		t.Error("ObstructionDetected() = false, want true")
	}
}

func TestCharacteristics_PublishInformation(t *testing.T) {
	c := NewCharacteristics("Initial", nil)
	defer c.Close()

	c.PublishInformation(garage.Info{
		Name:             "Garage",
		Manufacturer:     "Gray Logic",
		Model:            "garagebridge",
		SerialNumber:     "SN-1",
		FirmwareRevision: "1.0.0",
	})

	info := c.Accessory().Info
	tests := []struct {
		field string
		got   string
		want  string
	}{
		{"name", info.Name.GetValue(), "Garage"},
		{"manufacturer", info.Manufacturer.GetValue(), "Gray Logic"},
		{"model", info.Model.GetValue(), "garagebridge"},
		{"serial", info.SerialNumber.GetValue(), "SN-1"},
		{"firmware", info.FirmwareRevision.GetValue(), "1.0.0"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.field, tt.got, tt.want)
		}
	}
}

func TestCharacteristics_RemoteWriteSuccess(t *testing.T) {
	c := NewCharacteristics("Garage", nil)
	defer c.Close()
	c.UpdateTargetDoorState(garage.DoorClosed)

	var mu sync.Mutex
	var got []garage.DoorState
	c.OnTargetDoorStateSet(func(_ context.Context, v garage.DoorState) error {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
		c.UpdateTargetDoorState(v)
		return nil
	})

	c.door.TargetDoorState.SetValue(int(garage.DoorOpen))
	c.remoteTarget(int(garage.DoorOpen))
	c.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != garage.DoorOpen {
		t.Fatalf("handler calls = %v, want [open]", got)
	}
	if c.TargetDoorState() != garage.DoorOpen {
		t.Errorf("TargetDoorState() = %v, want open", c.TargetDoorState())
	}
}

func TestCharacteristics_RemoteWriteFailureReverts(t *testing.T) {
	c := NewCharacteristics("Garage", nil)
	defer c.Close()
	c.UpdateTargetDoorState(garage.DoorClosed)

	c.OnTargetDoorStateSet(func(context.Context, garage.DoorState) error {
		return garage.ErrCommandFailed
	})

	// hc stores the controller value before the callback runs.
	c.door.TargetDoorState.SetValue(int(garage.DoorOpen))
	c.remoteTarget(int(garage.DoorOpen))

	waitFor(t, func() bool { return c.TargetDoorState() == garage.DoorClosed },
		"target not reverted after failed command")
}

func TestCharacteristics_RemoteWriteWithoutHandler(t *testing.T) {
	c := NewCharacteristics("Garage", nil)
	defer c.Close()

	c.remoteTarget(int(garage.DoorOpen))
}

func TestCharacteristics_CloseCancelsInFlight(t *testing.T) {
	c := NewCharacteristics("Garage", nil)

	errc := make(chan error, 1)
	c.OnTargetDoorStateSet(func(ctx context.Context, _ garage.DoorState) error {
		<-ctx.Done()
		errc <- ctx.Err()
		return ctx.Err()
	})

	c.remoteTarget(int(garage.DoorOpen))
	c.Close()

	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("handler ctx error = %v, want context.Canceled", err)
	}
}

func TestAccessoryIntegration(t *testing.T) {
	c := NewCharacteristics("Garage", nil)
	acc := garage.NewAccessory(garage.Options{
		Config:          garage.Config{Name: "Garage", APIRoute: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond},
		Characteristics: c,
	})
	defer acc.Close() //nolint:errcheck // Test cleanup
	defer c.Close()

	acc.Services()

	if c.CurrentDoorState() != garage.DoorClosed || c.TargetDoorState() != garage.DoorClosed {
		t.Fatalf("bootstrap state = %+v", acc.State())
	}

	// The device is unreachable, so the write must be reverted.
	c.door.TargetDoorState.SetValue(int(garage.DoorOpen))
	c.remoteTarget(int(garage.DoorOpen))

	waitFor(t, func() bool { return c.TargetDoorState() == garage.DoorClosed },
		"failed controller write not reverted")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		pin     string
		wantErr bool
	}{
		{"03145154", false},
		{"1234", true},
		{"1234567a", true},
		{"", true},
		{"123456789", true},
	}
	for _, tt := range tests {
		err := Config{Pin: tt.pin}.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%q) error = %v, wantErr %v", tt.pin, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidPin) {
			t.Errorf("Validate(%q) error = %v, want ErrInvalidPin", tt.pin, err)
		}
	}
}
