// Package mqtt provides MQTT client connectivity for the garage bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions restored after reconnect
//   - Last Will and Testament (LWT) for offline detection
//
// # Topics
//
//	garage/state/{accessory_id}    retained door state snapshot
//	garage/command/{accessory_id}  target door state commands
//	garage/ack/{accessory_id}      command acknowledgements
//	garage/system/status           bridge online/offline (retained, LWT)
//
// # Usage
//
//	client, err := mqtt.Connect(ctx, cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Publish(mqtt.Topics{}.State("garage-main"), payload, 1, true)
package mqtt
