package config

import "fmt"

// ConfigError reports an invalid setup detected before any simulation runs:
// a missing base directory, a chain with mismatched runners and modifiers or
// an unusable solver installation.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config: " + e.Msg
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

// Errorf builds a *ConfigError for the given field.
func Errorf(field, format string, args ...any) error {
	return &ConfigError{Field: field, Msg: fmt.Sprintf(format, args...)}
}
