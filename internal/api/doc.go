// Package api implements the local status API and WebSocket stream for the
// garage bridge.
//
// This package provides:
//   - REST endpoints for accessory metadata, door state and local commands
//   - Door history queries backed by the SQLite history repository
//   - WebSocket hub broadcasting door.state_changed events
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The server runs on its own port, separate from the device push listener.
// PUT /api/v1/state/target drives the accessory through the same path as a
// HomeKit write, so auto-lock and history behave identically.
//
// # Graceful Degradation
//
// History and component health checks are optional. Without a history
// store the history endpoints answer 503; everything else keeps working.
package api
