// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/edgecam/internal/log"
)

// EnvPrefix prefixes every recognized environment variable.
const EnvPrefix = "EDGECAM_"

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range []string{"secret", "password", "token", "access_key"} {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// lookup returns the raw value of key when it is set and non-empty.
func lookup(logger zerolog.Logger, key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	if v == "" {
		logger.Debug().
			Str("key", key).
			Str("source", "default").
			Msg("using default value (environment variable is empty)")
		return "", false
	}
	return v, true
}

func logEnvValue(logger zerolog.Logger, key string, value any) {
	ev := logger.Debug().Str("key", key).Str("source", "environment")
	if isSensitiveKey(key) {
		ev = ev.Bool("sensitive", true)
	} else {
		ev = ev.Interface("value", value)
	}
	ev.Msg("using environment variable")
}

func logInvalid(logger zerolog.Logger, key, raw, kind string, def any) {
	ev := logger.Warn().Str("key", key).Interface("default", def)
	if !isSensitiveKey(key) {
		ev = ev.Str("value", raw)
	}
	ev.Msgf("invalid %s in environment variable, using default", kind)
}

// ParseString reads a string from environment variable or returns default value.
// Sensitive keys are logged without their value.
func ParseString(key, defaultValue string) string {
	logger := log.WithComponent("config")
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	logEnvValue(logger, key, v)
	return v
}

// ParseInt reads an integer from environment variable or returns default value.
// It falls back to default on parse errors.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		logInvalid(logger, key, v, "integer", defaultValue)
		return defaultValue
	}
	logEnvValue(logger, key, i)
	return i
}

// ParseDuration reads a duration in Go format (e.g. "5s") from environment variable.
// It falls back to default on parse errors.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("config")
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		logInvalid(logger, key, v, "duration", defaultValue)
		return defaultValue
	}
	logEnvValue(logger, key, d.String())
	return d
}

// ParseSeconds reads a whole number of seconds from environment variable.
func ParseSeconds(key string, defaultValue time.Duration) time.Duration {
	secs := ParseInt(key, int(defaultValue/time.Second))
	return time.Duration(secs) * time.Second
}

// ParseBool reads a boolean from environment variable or returns default value.
// It accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		logEnvValue(logger, key, true)
		return true
	case "false", "0", "no":
		logEnvValue(logger, key, false)
		return false
	default:
		logInvalid(logger, key, v, "boolean", defaultValue)
		return defaultValue
	}
}

// ParseFloat reads a float64 from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	logger := log.WithComponent("config")
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		logInvalid(logger, key, v, "float", defaultValue)
		return defaultValue
	}
	logEnvValue(logger, key, f)
	return f
}

// ParseByteSizeEnv reads a ByteSize from environment variable or returns default value.
func ParseByteSizeEnv(key string, defaultValue ByteSize) ByteSize {
	logger := log.WithComponent("config")
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	b, err := ParseByteSize(v)
	if err != nil {
		logInvalid(logger, key, v, "byte size", defaultValue.String())
		return defaultValue
	}
	logEnvValue(logger, key, b.String())
	return b
}
