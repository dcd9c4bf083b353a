package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNoOverlap is returned when two spectra share no usable wavenumber range.
	ErrNoOverlap = errors.New("spectra do not overlap")

	// ErrDependencyUnavailable marks an optional algorithm that cannot run.
	ErrDependencyUnavailable = errors.New("algorithm dependency unavailable")

	// ErrEmptyQuery is returned when a search is started without a usable query.
	ErrEmptyQuery = errors.New("query spectrum is empty")
)

// DataError represents malformed spectral input.
type DataError struct {
	Field   string
	Message string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("data error in %s: %s", e.Field, e.Message)
}

// ConfigError represents an invalid parameter combination. Requests carrying
// one are rejected before any computation starts.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewConfigError formats a ConfigError message.
func NewConfigError(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Message: fmt.Sprintf(format, args...)}
}
