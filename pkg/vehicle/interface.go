// Package vehicle drives a single underwater vehicle over JSONBus.
//
// Callers address fins by name or numeric ID, command propulsion speed, and
// issue a stop. Every parameter is checked locally before anything is
// written to the bus, so an invalid command never reaches the vehicle.
//
// Like the bus client underneath it, a Controller expects a single caller.
// Callers that share one across goroutines must serialize access themselves.
package vehicle

import (
	"github.com/teslashibe/go-petinga/pkg/jsonbus"
	"github.com/teslashibe/go-petinga/pkg/protocol"
)

// ServoController positions fins.
type ServoController interface {
	SetServoPosition(servo Servo, position float64) error
}

// SpeedController commands propulsion.
type SpeedController interface {
	SetSpeed(value float64, units protocol.SpeedUnits) error
}

// Stopper halts the vehicle. Implementations must not validate anything.
type Stopper interface {
	Stop() error
}

// StatusReporter exposes connection state.
type StatusReporter interface {
	Connected() bool
	SystemName() string
	Stats() jsonbus.Stats
}

// Commander is everything an operator surface (CLI, console) needs.
type Commander interface {
	ServoController
	SpeedController
	Stopper
	StatusReporter
}

var _ Commander = (*Controller)(nil)
