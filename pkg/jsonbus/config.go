// Package jsonbus is a client for the DUNE JSONBus transport: newline-framed
// JSON objects over a single stream connection.
//
// This package handles:
//   - Connection lifecycle (Closed → Open → Closed, no automatic reconnect)
//   - Welcome handshake and source tagging of outgoing frames
//   - Framing across arbitrary read boundaries
//   - Subscription and callback dispatch (Listener)
package jsonbus

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/teslashibe/go-petinga/pkg/protocol"
)

// Transport kinds.
const (
	TransportTCP    = "tcp"
	TransportSerial = "serial"
)

// Config holds bus client configuration.
type Config struct {
	// Host and Port of the JSONBus server (TCP transport).
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`

	// Transport is "tcp" or "serial".
	Transport string `yaml:"transport" json:"transport"`

	// SerialPort and BaudRate are used by the serial transport.
	// Example: "/dev/ttyUSB0", 115200
	SerialPort string `yaml:"serial_port" json:"serial_port"`
	BaudRate   int    `yaml:"baud_rate" json:"baud_rate"`

	ConnectTimeout   time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	ReceiveTimeout   time.Duration `yaml:"receive_timeout" json:"receive_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout" json:"write_timeout"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" json:"handshake_timeout"`

	// MaxFrameSize bounds a single frame in bytes.
	MaxFrameSize int `yaml:"max_frame_size" json:"max_frame_size"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:             "localhost",
		Port:             protocol.DefaultPort,
		Transport:        TransportTCP,
		BaudRate:         115200,
		ConnectTimeout:   5 * time.Second,
		ReceiveTimeout:   5 * time.Second,
		WriteTimeout:     5 * time.Second,
		HandshakeTimeout: 5 * time.Second,
		MaxFrameSize:     1 << 20,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportTCP:
		if c.Host == "" {
			return fmt.Errorf("host is required")
		}
		if c.Port <= 0 || c.Port > 65535 {
			return fmt.Errorf("port must be in 1..65535, got %d", c.Port)
		}
	case TransportSerial:
		if c.SerialPort == "" {
			return fmt.Errorf("serial_port is required for serial transport")
		}
		if c.BaudRate <= 0 {
			return fmt.Errorf("baud_rate must be positive, got %d", c.BaudRate)
		}
	default:
		return fmt.Errorf("transport must be '%s' or '%s', got '%s'", TransportTCP, TransportSerial, c.Transport)
	}
	if c.ConnectTimeout <= 0 || c.ReceiveTimeout <= 0 || c.WriteTimeout <= 0 || c.HandshakeTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.MaxFrameSize < 64 {
		return fmt.Errorf("max_frame_size must be at least 64 bytes, got %d", c.MaxFrameSize)
	}
	return nil
}

// Addr returns the endpoint the config dials.
func (c *Config) Addr() string {
	if c.Transport == TransportSerial {
		return c.SerialPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
