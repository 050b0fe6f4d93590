package config

import (
	"errors"
	"fmt"
)

// ErrMissingSetting is matched by ConfigurationError.
var ErrMissingSetting = errors.New("required setting is not configured")

// ConfigurationError names the first mandatory key left unset after all
// layers were applied.
type ConfigurationError struct {
	Key string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("required setting %q is not configured", e.Key)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrMissingSetting
}
