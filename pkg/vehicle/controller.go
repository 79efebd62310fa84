package vehicle

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/teslashibe/go-petinga/pkg/jsonbus"
	"github.com/teslashibe/go-petinga/pkg/protocol"
)

// AckMode selects whether commands wait for a reply frame.
type AckMode string

const (
	// AckNone sends commands fire-and-forget.
	AckNone AckMode = "none"
	// AckResponse waits for one frame after each command and fails with
	// RejectedError when it carries an error field. An ack timeout closes
	// the connection; Connect again before the next command.
	AckResponse AckMode = "response"
)

// Config holds controller configuration.
type Config struct {
	jsonbus.Config `yaml:",inline"`

	AckMode    AckMode       `yaml:"ack_mode" json:"ack_mode"`
	AckTimeout time.Duration `yaml:"ack_timeout" json:"ack_timeout"`
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	return Config{
		Config:     jsonbus.DefaultConfig(),
		AckMode:    AckNone,
		AckTimeout: 2 * time.Second,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	switch c.AckMode {
	case AckNone, AckResponse:
	default:
		return fmt.Errorf("ack_mode must be %q or %q, got %q", AckNone, AckResponse, c.AckMode)
	}
	if c.AckMode == AckResponse && c.AckTimeout <= 0 {
		return fmt.Errorf("ack_timeout must be positive in %s mode", AckResponse)
	}
	return nil
}

// Controller translates vehicle commands into JSONBus frames.
type Controller struct {
	cfg    Config
	client *jsonbus.Client
	logger *slog.Logger
}

// NewController creates a controller for host:port with default settings.
func NewController(host string, port int) (*Controller, error) {
	cfg := DefaultConfig()
	cfg.Host = host
	cfg.Port = port
	return New(cfg, nil)
}

// New creates a controller. Call Connect before issuing commands.
func New(cfg Config, logger *slog.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := jsonbus.New(cfg.Config, logger)
	if err != nil {
		return nil, err
	}

	return &Controller{
		cfg:    cfg,
		client: client,
		logger: logger.With("component", "vehicle"),
	}, nil
}

// Connect opens the bus connection and completes the welcome handshake.
func (c *Controller) Connect(ctx context.Context) error {
	if err := c.client.Connect(ctx); err != nil {
		return err
	}
	if err := c.client.Handshake(c.cfg.HandshakeTimeout); err != nil {
		return err
	}
	c.logger.Info("vehicle ready", "system_name", c.client.SystemName(), "ack_mode", c.cfg.AckMode)
	return nil
}

// Close releases the connection. It is safe to call more than once.
func (c *Controller) Close() error {
	return c.client.Close()
}

// SetServoPosition moves one fin. position is normalized to [-1, 1] and is
// never clamped.
func (c *Controller) SetServoPosition(servo Servo, position float64) error {
	if servo == nil {
		return &UnknownServoError{Servo: ""}
	}
	id, err := servo.resolve()
	if err != nil {
		return err
	}
	if math.IsNaN(position) || position < MinPosition || position > MaxPosition {
		return &InvalidRangeError{Field: "position", Value: position, Min: MinPosition, Max: MaxPosition}
	}
	return c.issue(protocol.NewServoPosition(id, position))
}

// SetSpeed commands propulsion. units are passed to the vehicle unchanged.
func (c *Controller) SetSpeed(value float64, units protocol.SpeedUnits) error {
	if !units.Valid() {
		return &InvalidUnitsError{Units: units, Allowed: protocol.AllSpeedUnits()}
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return &InvalidRangeError{Field: "speed", Value: value, Min: -math.MaxFloat64, Max: math.MaxFloat64}
	}
	return c.issue(protocol.NewSpeed(value, units))
}

// Stop sends the stop command. It performs no validation.
func (c *Controller) Stop() error {
	return c.issue(protocol.NewStop())
}

// CenterServos sends every fin to neutral in ID order, stopping at the
// first failure.
func (c *Controller) CenterServos() error {
	for id := MinServoID; id <= MaxServoID; id++ {
		if err := c.SetServoPosition(ServoID(id), 0); err != nil {
			return fmt.Errorf("center servo %d: %w", id, err)
		}
	}
	return nil
}

// Connected reports whether the bus connection is open.
func (c *Controller) Connected() bool {
	return c.client.State() == jsonbus.StateOpen
}

// SystemName returns the vehicle's announced name, or "" when closed.
func (c *Controller) SystemName() string {
	return c.client.SystemName()
}

// Stats returns bus counters.
func (c *Controller) Stats() jsonbus.Stats {
	return c.client.Stats()
}

// AckMode returns the configured acknowledgement mode.
func (c *Controller) AckMode() AckMode {
	return c.cfg.AckMode
}

func (c *Controller) issue(cmd protocol.Command) error {
	msg := cmd.Message()

	if c.logger.Enabled(context.Background(), slog.LevelDebug) {
		c.logger.Debug("issuing command", "abbrev", msg.Abbrev(), "payload", msg)
	}

	if c.cfg.AckMode != AckResponse {
		return c.client.Send(msg)
	}

	reply, err := c.client.Request(msg, c.cfg.AckTimeout)
	if err != nil {
		return err
	}
	if reason := reply.Err(); reason != "" {
		c.logger.Warn("command rejected", "abbrev", msg.Abbrev(), "reason", reason)
		return &RejectedError{Command: cmd.Kind().String(), Reason: reason}
	}
	return nil
}
