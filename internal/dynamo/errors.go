package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for the balancing loop.
var (
	// ErrInvalidConfig indicates a configuration that cannot be assembled.
	ErrInvalidConfig = errors.New("dynamo: invalid configuration")

	// ErrInvalidSample indicates a sensor sample that must not reach the
	// controller: NaN or Inf components, or a glitch with no good sample to
	// fall back on.
	ErrInvalidSample = errors.New("dynamo: invalid sample")

	// ErrFallen indicates the plant tipped past the recoverable angle.
	ErrFallen = errors.New("dynamo: vehicle fell over")
)

// ConfigError names the offending field of a rejected configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}
