package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration matches every error returned by Load through errors.Is.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ConfigurationError reports a structurally invalid configuration field.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func newError(field, reason string, err error) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason, Err: err}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Is makes every ConfigurationError match ErrInvalidConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}
