package vehicle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/teslashibe/go-petinga/pkg/protocol"
)

// Sentinel errors for errors.Is checks.
var (
	ErrUnknownServo = errors.New("unknown servo")
	ErrInvalidRange = errors.New("value out of range")
	ErrInvalidUnits = errors.New("invalid speed units")
	ErrRejected     = errors.New("command rejected by vehicle")
)

// UnknownServoError reports a fin name or ID outside the fixed table.
type UnknownServoError struct {
	Servo string
}

func (e *UnknownServoError) Error() string {
	return fmt.Sprintf("unknown servo %q: want an ID in [%d, %d] or one of %s",
		e.Servo, MinServoID, MaxServoID, strings.Join(ServoNames(), ", "))
}

func (e *UnknownServoError) Unwrap() error { return ErrUnknownServo }

func (e *UnknownServoError) Is(target error) bool { return target == ErrUnknownServo }

// InvalidRangeError reports a setpoint outside its allowed range.
type InvalidRangeError struct {
	Field    string
	Value    float64
	Min, Max float64
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("%s %v out of range [%v, %v]", e.Field, e.Value, e.Min, e.Max)
}

func (e *InvalidRangeError) Unwrap() error { return ErrInvalidRange }

func (e *InvalidRangeError) Is(target error) bool { return target == ErrInvalidRange }

// InvalidUnitsError reports a speed unit tag the vehicle does not know.
type InvalidUnitsError struct {
	Units   protocol.SpeedUnits
	Allowed []protocol.SpeedUnits
}

func (e *InvalidUnitsError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, u := range e.Allowed {
		allowed[i] = string(u)
	}
	return fmt.Sprintf("invalid speed units %q: want one of %s", e.Units, strings.Join(allowed, ", "))
}

func (e *InvalidUnitsError) Unwrap() error { return ErrInvalidUnits }

func (e *InvalidUnitsError) Is(target error) bool { return target == ErrInvalidUnits }

// RejectedError is returned in response ack mode when the vehicle answers a
// command with an error field.
type RejectedError struct {
	Command string
	Reason  string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Command, e.Reason)
}

func (e *RejectedError) Unwrap() error { return ErrRejected }

func (e *RejectedError) Is(target error) bool { return target == ErrRejected }

// IsValidation reports whether err was raised by local validation, before
// anything was sent.
func IsValidation(err error) bool {
	return errors.Is(err, ErrUnknownServo) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrInvalidUnits)
}
