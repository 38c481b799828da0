package plugin

import (
	"errors"
	"fmt"
)

// Sentinel errors for registry misuse, raised only during pipeline setup.
var (
	ErrDuplicatePlugin = errors.New("plugin name already registered")
	ErrUnknownPlugin   = errors.New("plugin not registered")
)

// FlagBitUndefined marks a MeasurementError that carries no plugin-specific
// sub-flag.
const FlagBitUndefined = -1

// MeasurementError is an expected, recoverable per-object failure: "this
// object could not be measured by this algorithm for this well-defined
// reason". The scheduler converts it into a call to the plugin's Fail
// handler and moves on to the next plugin.
type MeasurementError struct {
	Msg     string
	FlagBit int
}

// NewMeasurementError creates a recoverable failure tied to a flag bit in
// the failing plugin's own flag definitions.
func NewMeasurementError(msg string, flagBit int) *MeasurementError {
	return &MeasurementError{Msg: msg, FlagBit: flagBit}
}

func (e *MeasurementError) Error() string { return e.Msg }

// FatalError is a structural precondition violation, such as measuring with
// no PSF model attached at all. It is still caught per plugin per record,
// so the catalog is never aborted, but it is reported loudly because it
// usually signals misconfiguration rather than a property of the object.
type FatalError struct {
	Msg string
}

// NewFatalError creates a fatal error with fmt-style formatting.
func NewFatalError(format string, args ...any) *FatalError {
	return &FatalError{Msg: fmt.Sprintf(format, args...)}
}

func (e *FatalError) Error() string { return e.Msg }
