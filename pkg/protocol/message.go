// Package protocol defines the JSONBus message schema spoken by the Petinga
// control server. Frames are single JSON objects terminated by a newline; the
// "abbrev" field names the message kind.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Abbrev identifies the kind of a bus message.
type Abbrev string

const (
	// Operator → vehicle commands
	AbbrevServoPosition Abbrev = "DesiredServoPosition"
	AbbrevSpeed         Abbrev = "DesiredSpeed"
	AbbrevStop          Abbrev = "Stop"

	// Vehicle → operator telemetry
	AbbrevEstimatedState Abbrev = "EstimatedState"
	AbbrevSimulatedState Abbrev = "SimulatedState"
)

// Field names shared by every frame.
const (
	FieldAbbrev = "abbrev"
	FieldSrc    = "src"
	FieldError  = "error"
)

// DefaultPort is the JSONBus TCP port of the control server.
const DefaultPort = 9005

// Message is one decoded frame. Keys are sorted by encoding/json on output,
// so equal messages always encode to identical bytes.
type Message map[string]any

// Abbrev returns the message kind, or "" when the frame has none.
func (m Message) Abbrev() Abbrev {
	s, _ := m[FieldAbbrev].(string)
	return Abbrev(s)
}

// Src returns the source system name stamped on the frame.
func (m Message) Src() string {
	s, _ := m[FieldSrc].(string)
	return s
}

// Err returns the server-reported error text, if any.
func (m Message) Err() string {
	switch v := m[FieldError].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Has reports whether the frame carries key.
func (m Message) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Clone returns a shallow copy so callers can add fields without touching
// the original.
func (m Message) Clone() Message {
	out := make(Message, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// WithSrc returns a copy stamped with src unless the message already names one.
func (m Message) WithSrc(src string) Message {
	if src == "" || m.Has(FieldSrc) {
		return m
	}
	out := m.Clone()
	out[FieldSrc] = src
	return out
}

// Decode re-encodes the frame into a typed struct.
func (m Message) Decode(v any) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to re-encode message: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", m.Abbrev(), err)
	}
	return nil
}

// Bytes returns the JSON encoding of the message without a frame delimiter.
func (m Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses one frame. The frame must be a JSON object.
func ParseMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg == nil {
		return nil, fmt.Errorf("failed to parse message: frame is not a JSON object")
	}
	return msg, nil
}

// =============================================================================
// Bus control
// =============================================================================

const (
	commandSubscribe    = "subscribe"
	commandSubscribeAll = "subscribe_all"
	commandUnsubscribe  = "unsubscribe"
)

// NewSubscribe asks the server to forward the named message kinds. With no
// kinds it subscribes to everything.
func NewSubscribe(abbrevs ...Abbrev) Message {
	if len(abbrevs) == 0 {
		return Message{"command": commandSubscribeAll}
	}
	names := make([]string, len(abbrevs))
	for i, a := range abbrevs {
		names[i] = string(a)
	}
	return Message{"command": commandSubscribe, "messages": names}
}

// NewUnsubscribe cancels every subscription on the connection.
func NewUnsubscribe() Message {
	return Message{"command": commandUnsubscribe}
}

// =============================================================================
// Handshake
// =============================================================================

// Welcome is the first frame the server sends on a new connection.
type Welcome struct {
	SystemName string `json:"system_name"`
	Error      string `json:"error,omitempty"`
}

// ParseWelcome decodes the welcome frame.
func ParseWelcome(m Message) (*Welcome, error) {
	var w Welcome
	if err := m.Decode(&w); err != nil {
		return nil, err
	}
	return &w, nil
}
