package config

import (
	"context"

	"github.com/hashicorp/hcl/v2"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads configuration from the given paths, translates it into the
	// format-agnostic model, and returns a matching Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter is the interface for format-specific data binding. It bridges
// raw plugin option bodies and the Go config structs plugins declare.
type Converter interface {
	// DecodeBody decodes a raw plugin option body into a target Go struct.
	// Options absent from the body leave the struct's defaults untouched.
	DecodeBody(ctx context.Context, body hcl.Body, target any) error
}
