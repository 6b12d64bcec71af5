package grid

import (
	"errors"
	"fmt"
)

// Domain errors for grid construction and frame data.
var (
	// ErrConfiguration indicates invalid or mismatched canvas/grid dimensions.
	ErrConfiguration = errors.New("grid: invalid configuration")

	// ErrMalformedDatum indicates a cell, sphere or border entry that cannot be drawn.
	ErrMalformedDatum = errors.New("grid: malformed datum")

	// ErrOutOfRange indicates a cell index outside [0,Cols) x [0,Rows).
	ErrOutOfRange = errors.New("grid: cell out of range")
)

// ConfigError wraps ErrConfiguration with the offending field.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s=%v: %s", ErrConfiguration, e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

// DatumError describes a single skipped element of a snapshot. It always
// matches ErrMalformedDatum and additionally matches Cause when set.
type DatumError struct {
	Kind   string // "cell", "sphere", "label" or "border"
	Layer  string
	Index  int
	Reason string
	Cause  error
}

func (e *DatumError) Error() string {
	if e.Layer != "" {
		return fmt.Sprintf("%s: %s[%d] in layer %q: %s", ErrMalformedDatum, e.Kind, e.Index, e.Layer, e.Reason)
	}
	return fmt.Sprintf("%s: %s[%d]: %s", ErrMalformedDatum, e.Kind, e.Index, e.Reason)
}

func (e *DatumError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrMalformedDatum}
	}
	return []error{ErrMalformedDatum, e.Cause}
}
