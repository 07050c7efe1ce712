package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-garage/internal/garage"
	"github.com/nerrad567/gray-logic-garage/internal/infrastructure/mqtt"
)

// commandTimeout bounds one MQTT-initiated device command.
const commandTimeout = 30 * time.Second

// MQTTClient is the interface for MQTT operations.
// Satisfied by *mqtt.Client.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// Accessory is the part of garage.Accessory the bridge drives.
type Accessory interface {
	ID() string
	State() garage.Snapshot
	SetTargetDoorState(ctx context.Context, value garage.DoorState, source garage.Source) error
}

// Logger is the structured logger used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures NewBridge.
type Options struct {
	MQTT      MQTTClient
	Accessory Accessory
	QoS       byte
	Logger    Logger
}

// Bridge publishes accessory state to MQTT and applies MQTT commands.
type Bridge struct {
	mqtt   MQTTClient
	acc    Accessory
	qos    byte
	logger Logger
	topics mqtt.Topics

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

var _ garage.StateObserver = (*Bridge)(nil)

// NewBridge creates a bridge. Start must be called to accept commands.
func NewBridge(opts Options) (*Bridge, error) {
	if opts.MQTT == nil {
		return nil, ErrMQTTRequired
	}
	if opts.Accessory == nil {
		return nil, ErrAccessoryRequired
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}

	b := &Bridge{
		mqtt:   opts.MQTT,
		acc:    opts.Accessory,
		qos:    opts.QoS,
		logger: opts.Logger,
	}
	b.ctx, b.cancel = context.WithCancel(context.Background())
	return b, nil
}

// Start subscribes to the command topic and publishes the current state.
func (b *Bridge) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}

	topic := b.topics.Command(b.acc.ID())
	if err := b.mqtt.Subscribe(topic, b.qos, b.handleCommand); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logger.Info("subscribed to commands", "topic", topic)

	b.PublishState()
	return nil
}

// Stop waits for in-flight commands. Safe to call more than once.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.cancel()
		b.wg.Wait()
		b.logger.Info("bridge stopped")
	})
}

// PublishState publishes the full snapshot. Used at start and after a
// broker reconnect.
func (b *Bridge) PublishState() {
	b.publishState(StateMessage{
		AccessoryID: b.acc.ID(),
		Timestamp:   time.Now().UTC(),
		State:       b.acc.State(),
	})
}

// OnStateChange publishes a retained state message for c.
func (b *Bridge) OnStateChange(c garage.StateChange) {
	value := c.Value
	b.publishState(StateMessage{
		AccessoryID:    c.AccessoryID,
		Timestamp:      c.Timestamp,
		State:          c.State,
		Characteristic: string(c.Characteristic),
		Value:          &value,
		Source:         string(c.Source),
	})
}

func (b *Bridge) publishState(msg StateMessage) {
	if !b.mqtt.IsConnected() {
		b.logger.Debug("skipping state publish, mqtt disconnected", "accessory_id", msg.AccessoryID)
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("failed to marshal state", "error", err)
		return
	}
	if err := b.mqtt.Publish(b.topics.State(msg.AccessoryID), payload, b.qos, true); err != nil {
		b.logger.Warn("failed to publish state", "accessory_id", msg.AccessoryID, "error", err)
	}
}

// handleCommand validates a command and applies it off the MQTT callback
// goroutine.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	cmd, err := ParseCommand(payload)
	if err != nil {
		b.publishAck(cmd.ID, AckFailed, err)
		return err
	}
	if cmd.ID == "" {
		cmd.ID = "mqtt-" + uuid.NewString()[:8]
	}

	b.logger.Info("received command",
		"command_id", cmd.ID,
		"topic", topic,
		"target_door_state", *cmd.TargetDoorState,
		"source", cmd.source(),
	)

	if b.ctx.Err() != nil {
		b.publishAck(cmd.ID, AckFailed, errors.New("bridge stopped"))
		return nil
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.executeCommand(cmd)
	}()
	return nil
}

func (b *Bridge) executeCommand(cmd CommandMessage) {
	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	target := garage.DoorState(*cmd.TargetDoorState)
	if err := b.acc.SetTargetDoorState(ctx, target, cmd.source()); err != nil {
		b.publishAck(cmd.ID, AckFailed, err)
		return
	}
	b.publishAck(cmd.ID, AckAccepted, nil)
}

func (b *Bridge) publishAck(commandID string, status AckStatus, cause error) {
	ack := AckMessage{
		CommandID:   commandID,
		AccessoryID: b.acc.ID(),
		Timestamp:   time.Now().UTC(),
		Status:      status,
	}
	if cause != nil {
		ack.Error = cause.Error()
	}

	payload, err := json.Marshal(ack)
	if err != nil {
		b.logger.Error("failed to marshal ack", "error", err)
		return
	}
	if err := b.mqtt.Publish(b.topics.Ack(ack.AccessoryID), payload, b.qos, false); err != nil {
		b.logger.Warn("failed to publish ack", "command_id", commandID, "error", err)
	}
}
