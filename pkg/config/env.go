// Package config provides environment variable helpers with logged fallbacks.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// GetEnvString returns the value of an environment variable or defaultValue if unset or empty.
//
// Example:
//
//	version := GetEnvString("VERSION", "dev")
func GetEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt returns the value of an environment variable as an integer.
//
// If the variable is set but cannot be parsed, or fails validate, a warning is
// logged and defaultValue is returned. validate may be nil.
//
// Example:
//
//	port := GetEnvInt("APP_PORT", 5000, ValidatePort)
func GetEnvInt(key string, defaultValue int, validate func(int) error) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(raw)
	if err == nil && validate != nil {
		err = validate(value)
	}
	if err != nil {
		slog.Warn("invalid integer value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", raw),
			slog.Int("default", defaultValue),
			slog.String("error", err.Error()))
		return defaultValue
	}
	return value
}

// GetEnvDuration returns the value of an environment variable as a time.Duration.
//
// The value must be parseable by time.ParseDuration (e.g. "5s", "1m30s").
// Invalid values, or values rejected by validate, fall back to defaultValue with
// a logged warning. validate may be nil.
//
// Example:
//
//	timeout := GetEnvDuration("APP_SHUTDOWN_TIMEOUT", 5*time.Second, ValidatePositiveDuration)
func GetEnvDuration(key string, defaultValue time.Duration, validate func(time.Duration) error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(raw)
	if err == nil && validate != nil {
		err = validate(value)
	}
	if err != nil {
		slog.Warn("invalid duration value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", raw),
			slog.String("default", defaultValue.String()),
			slog.String("error", err.Error()))
		return defaultValue
	}
	return value
}
