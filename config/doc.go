// Package config handles application configuration loading and validation.
//
// Configuration is loaded from config.yml, overridden by environment variables
// (a .env file is honoured when present) and validated using struct tags.
// Regions describe the static GTFS bundles to merge, feeds describe the
// GTFS-Realtime endpoints polled for vehicles and trip updates.
package config
