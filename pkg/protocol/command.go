package protocol

import "strings"

// CommandKind is the operator-level command a Command carries.
type CommandKind int

const (
	KindSetServoPosition CommandKind = iota + 1
	KindSetSpeed
	KindStop
)

func (k CommandKind) String() string {
	switch k {
	case KindSetServoPosition:
		return "SetServoPosition"
	case KindSetSpeed:
		return "SetSpeed"
	case KindStop:
		return "Stop"
	default:
		return "Unknown"
	}
}

// Abbrev returns the wire kind for the command.
func (k CommandKind) Abbrev() Abbrev {
	switch k {
	case KindSetServoPosition:
		return AbbrevServoPosition
	case KindSetSpeed:
		return AbbrevSpeed
	case KindStop:
		return AbbrevStop
	default:
		return ""
	}
}

// SpeedUnits tags a speed setpoint. The tag travels to the vehicle as-is.
type SpeedUnits string

const (
	UnitsRPM        SpeedUnits = "rpm"
	UnitsMPS        SpeedUnits = "mps"
	UnitsPercentage SpeedUnits = "percentage"
)

// AllSpeedUnits lists the recognised unit tags.
func AllSpeedUnits() []SpeedUnits {
	return []SpeedUnits{UnitsRPM, UnitsMPS, UnitsPercentage}
}

// Valid reports whether u is one of the recognised tags.
func (u SpeedUnits) Valid() bool {
	switch u {
	case UnitsRPM, UnitsMPS, UnitsPercentage:
		return true
	}
	return false
}

// ParseSpeedUnits normalises user input ("RPM ", "Percentage") to a tag.
// Unknown input is returned unchanged so the caller can report it.
func ParseSpeedUnits(s string) SpeedUnits {
	u := SpeedUnits(strings.ToLower(strings.TrimSpace(s)))
	if u.Valid() {
		return u
	}
	return SpeedUnits(s)
}

// Command is one outbound instruction. It is built by the New* constructors
// and never changes afterwards. Range checks belong to the caller; the
// vehicle controller performs them before building a Command.
type Command struct {
	kind     CommandKind
	target   int
	targeted bool
	position float64
	speed    float64
	units    SpeedUnits
}

// NewServoPosition commands servo id to a normalised position.
func NewServoPosition(id int, position float64) Command {
	return Command{kind: KindSetServoPosition, target: id, targeted: true, position: position}
}

// NewSpeed commands a propulsion speed setpoint.
func NewSpeed(value float64, units SpeedUnits) Command {
	return Command{kind: KindSetSpeed, speed: value, units: units}
}

// NewStop builds the whole-vehicle stop command.
func NewStop() Command {
	return Command{kind: KindStop}
}

// Kind returns the command kind.
func (c Command) Kind() CommandKind { return c.kind }

// Target returns the servo id and whether the command addresses a servo.
func (c Command) Target() (int, bool) { return c.target, c.targeted }

// Position returns the servo position payload.
func (c Command) Position() float64 { return c.position }

// Speed returns the speed payload and its units.
func (c Command) Speed() (float64, SpeedUnits) { return c.speed, c.units }

// Message renders the command as a wire frame.
func (c Command) Message() Message {
	msg := Message{FieldAbbrev: string(c.kind.Abbrev())}
	switch c.kind {
	case KindSetServoPosition:
		msg["id"] = c.target
		msg["position"] = c.position
	case KindSetSpeed:
		msg["value"] = c.speed
		msg["speed_units"] = string(c.units)
	}
	return msg
}
