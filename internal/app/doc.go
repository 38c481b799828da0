// Package app owns the application lifecycle: load configuration, register
// the plugin set, build and validate the measurement pipeline (schema, slots,
// tasks), and drive a run. Configuration errors are fatal and surface at
// construction; once an App exists its pipeline is frozen.
package app
