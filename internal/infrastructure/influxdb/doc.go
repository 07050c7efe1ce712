// Package influxdb records door telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Writes go through
// the non-blocking batched WriteAPI so a slow or unreachable server never
// delays door operations; asynchronous failures surface through SetOnError.
//
// # Measurements
//
//	door_state    tags: accessory_id, characteristic, source  fields: value
//	door_command  tags: accessory_id, source                  fields: target, success, duration_ms
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//
//	client.WriteDoorState("garage-main", "targetDoorState", 0, "push")
package influxdb
