package vehicle

import (
	"strconv"
	"strings"
)

// Fin IDs are fixed by the vehicle build.
const (
	MinServoID = 0
	MaxServoID = 7
	ServoCount = MaxServoID - MinServoID + 1
)

// Position limits for SetServoPosition. 0 is neutral.
const (
	MinPosition = -1.0
	MaxPosition = 1.0
)

// Servo identifies a fin either by ID or by name. It is implemented only by
// ServoID and ServoName.
type Servo interface {
	resolve() (int, error)
	String() string
}

// ServoID addresses a fin by its numeric ID.
type ServoID int

func (s ServoID) resolve() (int, error) {
	id := int(s)
	if id < MinServoID || id > MaxServoID {
		return 0, &UnknownServoError{Servo: s.String()}
	}
	return id, nil
}

func (s ServoID) String() string { return strconv.Itoa(int(s)) }

// ServoName addresses a fin by name, e.g. "port" or "Front_Starboard".
type ServoName string

func (s ServoName) resolve() (int, error) {
	id, ok := LookupServo(string(s))
	if !ok {
		return 0, &UnknownServoError{Servo: string(s)}
	}
	return id, nil
}

func (s ServoName) String() string { return string(s) }

// LookupServo maps a fin name to its ID. Matching ignores case and
// surrounding whitespace.
func LookupServo(name string) (int, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "down":
		return 0, true
	case "port":
		return 1, true
	case "starboard":
		return 2, true
	case "up":
		return 3, true
	case "front_starboard":
		return 4, true
	case "front_port":
		return 5, true
	case "rear_starboard":
		return 6, true
	case "rear_port":
		return 7, true
	}
	return 0, false
}

// ServoNames returns the fin names in ID order.
func ServoNames() []string {
	return []string{
		"down", "port", "starboard", "up",
		"front_starboard", "front_port", "rear_starboard", "rear_port",
	}
}

// ParseServo turns command-line or JSON text into a Servo: integers become
// a ServoID, anything else a ServoName. Validity is checked on use.
func ParseServo(s string) Servo {
	s = strings.TrimSpace(s)
	if id, err := strconv.Atoi(s); err == nil {
		return ServoID(id)
	}
	return ServoName(s)
}
