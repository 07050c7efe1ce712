// Package history records door slot changes and outbound commands in SQLite.
//
// Repository implements garage.StateObserver and garage.CommandObserver so
// it can be attached directly to an accessory. Rows are written with an
// RFC3339 UTC created_at and a uuid primary key. The tables are created by
// the embedded migrations in the migrations package.
//
// History is a local audit trail; it keeps working when InfluxDB is
// unavailable. Old rows are removed with Prune.
package history
