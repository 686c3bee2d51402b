// Package config loads wristd configuration from file, environment, and
// defaults.
//
// Precedence is flags > WRISTD_* environment variables > config file >
// built-in defaults. Files may be JSON or YAML, selected by extension.
package config
