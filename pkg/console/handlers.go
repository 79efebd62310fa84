package console

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/teslashibe/go-petinga/pkg/jsonbus"
	"github.com/teslashibe/go-petinga/pkg/protocol"
	"github.com/teslashibe/go-petinga/pkg/vehicle"
)

// Command actions accepted by /ws/command.
const (
	ActionServo = "servo"
	ActionSpeed = "speed"
	ActionStop  = "stop"
)

// ServoArg accepts a servo as a JSON string ("port", "5") or number (5).
type ServoArg string

func (a *ServoArg) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = ServoArg(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("servo must be a name or a numeric id")
	}
	*a = ServoArg(n.String())
	return nil
}

// CommandRequest is the body of the command endpoints and of each
// /ws/command frame.
type CommandRequest struct {
	Action   string   `json:"action,omitempty"`
	Servo    ServoArg `json:"servo,omitempty"`
	Position *float64 `json:"position,omitempty"`
	Value    *float64 `json:"value,omitempty"`
	Units    string   `json:"units,omitempty"`
}

// CommandReply answers one command.
type CommandReply struct {
	OK     bool   `json:"ok"`
	Action string `json:"action"`
	Status int    `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Status is returned by GET /api/status.
type Status struct {
	Connected        bool          `json:"connected"`
	SystemName       string        `json:"system_name"`
	Stats            jsonbus.Stats `json:"stats"`
	TelemetryViewers int           `json:"telemetry_viewers"`
}

// ServoInfo is one row of GET /api/servos.
type ServoInfo struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

// execute runs one command against the controller.
func (s *Server) execute(req CommandRequest) error {
	action := strings.ToLower(strings.TrimSpace(req.Action))

	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()

	switch action {
	case ActionServo:
		if req.Servo == "" {
			return fiber.NewError(fiber.StatusBadRequest, "servo is required")
		}
		if req.Position == nil {
			return fiber.NewError(fiber.StatusBadRequest, "position is required")
		}
		return s.ctrl.SetServoPosition(vehicle.ParseServo(string(req.Servo)), *req.Position)

	case ActionSpeed:
		if req.Value == nil {
			return fiber.NewError(fiber.StatusBadRequest, "value is required")
		}
		return s.ctrl.SetSpeed(*req.Value, protocol.ParseSpeedUnits(req.Units))

	case ActionStop:
		return s.ctrl.Stop()

	default:
		return fiber.NewError(fiber.StatusBadRequest, "unknown action "+req.Action)
	}
}

func (s *Server) runCommand(c *fiber.Ctx, action string) error {
	var req CommandRequest
	if action != ActionStop {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid body: "+err.Error())
		}
	}
	req.Action = action

	if err := s.execute(req); err != nil {
		return err
	}
	return c.JSON(CommandReply{OK: true, Action: action})
}

// handleStatus returns connection state and bus counters
func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.ctrlMu.Lock()
	status := Status{
		Connected:  s.ctrl.Connected(),
		SystemName: s.ctrl.SystemName(),
		Stats:      s.ctrl.Stats(),
	}
	s.ctrlMu.Unlock()

	if s.telemetry != nil {
		status.TelemetryViewers = s.telemetry.ClientCount()
	}
	return c.JSON(status)
}

// handleServos returns the fin table
func (s *Server) handleServos(c *fiber.Ctx) error {
	names := vehicle.ServoNames()
	servos := make([]ServoInfo, len(names))
	for id, name := range names {
		servos[id] = ServoInfo{Name: name, ID: id}
	}
	return c.JSON(servos)
}

func (s *Server) handleServo(c *fiber.Ctx) error {
	return s.runCommand(c, ActionServo)
}

func (s *Server) handleSpeed(c *fiber.Ctx) error {
	return s.runCommand(c, ActionSpeed)
}

func (s *Server) handleStop(c *fiber.Ctx) error {
	return s.runCommand(c, ActionStop)
}

// handleCommandWS reads one JSON command per frame and answers each with a
// CommandReply.
func (s *Server) handleCommandWS(conn *websocket.Conn) {
	s.logger.Info("command socket opened", "remote", conn.RemoteAddr().String())
	defer s.logger.Info("command socket closed", "remote", conn.RemoteAddr().String())

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req CommandRequest
		reply := CommandReply{OK: true}
		if err := json.Unmarshal(data, &req); err != nil {
			reply = CommandReply{Status: fiber.StatusBadRequest, Error: "invalid command: " + err.Error()}
		} else {
			reply.Action = req.Action
			if err := s.execute(req); err != nil {
				reply = CommandReply{Action: req.Action, Status: statusCode(err), Error: err.Error()}
			}
		}

		if err := conn.WriteJSON(reply); err != nil {
			return
		}
	}
}
