// Package config provides configuration loading and validation for the mic streaming service.
// It handles YAML-based configuration with struct validation, environment variable
// overrides, and duration helpers for all timing-related parameters.
package config
