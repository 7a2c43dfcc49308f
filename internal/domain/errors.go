package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is the sentinel wrapped by every ConfigurationError
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ErrUnknownLottery is returned when a lottery ID is not registered
var ErrUnknownLottery = errors.New("unknown lottery")

// ConfigurationError reports an invalid GA/backtest/scoring parameter.
// It is raised before any computation starts.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// NewConfigurationError creates a ConfigurationError with a formatted reason
func NewConfigurationError(field, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err is (or wraps) a configuration error
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}
