// Package config provides configuration helpers for go-petinga commands.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variables read by the commands.
const (
	EnvHost     = "PETINGA_HOST"
	EnvPort     = "PETINGA_PORT"
	EnvLogLevel = "LOG_LEVEL"
)

// Host returns the bus host from PETINGA_HOST.
// Falls back to the provided default if not set.
func Host(defaultHost string) string {
	if host := os.Getenv(EnvHost); host != "" {
		return host
	}
	return defaultHost
}

// Port returns the bus port from PETINGA_PORT.
// Falls back to the provided default if not set.
func Port(defaultPort int) (int, error) {
	s := os.Getenv(EnvPort)
	if s == "" {
		return defaultPort, nil
	}
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a port number", EnvPort, s)
	}
	return port, nil
}

// LogLevel returns the level from LOG_LEVEL or the default.
func LogLevel(defaultLevel string) string {
	if level := os.Getenv(EnvLogLevel); level != "" {
		return level
	}
	return defaultLevel
}
