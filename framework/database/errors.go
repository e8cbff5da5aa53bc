package database

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is matched by every *InvalidConfigurationError.
var ErrInvalidConfiguration = errors.New("database: invalid configuration")

// InvalidConfigurationError names the option that prevented a handle from
// being created.
type InvalidConfigurationError struct {
	Option string
	Err    error
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("%s: option %q: %v", ErrInvalidConfiguration, e.Option, e.Err)
}

func (e *InvalidConfigurationError) Unwrap() []error {
	return []error{ErrInvalidConfiguration, e.Err}
}

func invalid(option string, err error) error {
	return &InvalidConfigurationError{Option: option, Err: err}
}
