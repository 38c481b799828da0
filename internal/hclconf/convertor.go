package hclconf

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/vk/starmeasgo/internal/ctxlog"
)

// Converter is the HCL-specific implementation of the config.Converter
// interface.
type Converter struct{}

// NewConverter creates a new HCL converter.
func NewConverter() *Converter {
	return &Converter{}
}

// DecodeBody populates a plugin config struct from its raw HCL body. Fields
// use `hcl:"...,optional"` tags; attributes absent from the body leave the
// struct's pre-set defaults in place.
func (c *Converter) DecodeBody(ctx context.Context, body hcl.Body, target any) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Decoding plugin option body.", "target_type", fmt.Sprintf("%T", target))

	if body == nil {
		return nil
	}
	if diags := gohcl.DecodeBody(body, nil, target); diags.HasErrors() {
		return fmt.Errorf("failed to decode plugin options: %w", diags)
	}
	return nil
}
