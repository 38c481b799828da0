// Package config defines the format-agnostic representation of a measurement
// pipeline configuration, and the interfaces a format-specific loader must
// implement. Keeping the model here lets the rest of the application stay
// independent of the concrete configuration syntax.
package config
