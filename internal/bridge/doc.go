// Package bridge mirrors a garage accessory onto MQTT.
//
// Every slot change is published as a retained JSON message on
// garage/state/{accessory_id}. Commands arriving on
// garage/command/{accessory_id} are applied through the same path as a
// HomeKit write and acknowledged on garage/ack/{accessory_id}.
//
// Message flow:
//
//	accessory ──StateChange──▶ Bridge ──retained──▶ garage/state/{id}
//	garage/command/{id} ──▶ Bridge ──SetTargetDoorState──▶ device
//	                              └──ack──▶ garage/ack/{id}
//
// Thread Safety: all methods are safe for concurrent use.
package bridge
