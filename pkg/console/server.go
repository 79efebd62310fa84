// Package console is an operator console for one vehicle: a small REST API
// and websocket endpoints for commands and live telemetry.
package console

import (
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/teslashibe/go-petinga/pkg/hub"
	"github.com/teslashibe/go-petinga/pkg/jsonbus"
	"github.com/teslashibe/go-petinga/pkg/protocol"
	"github.com/teslashibe/go-petinga/pkg/vehicle"
)

// Server is the console HTTP server.
type Server struct {
	app    *fiber.App
	logger *slog.Logger

	// ctrlMu serializes every call into ctrl; the controller expects a
	// single caller.
	ctrlMu sync.Mutex
	ctrl   vehicle.Commander

	telemetry *hub.Hub
}

// New creates a console for ctrl. telemetry may be nil, in which case
// /ws/telemetry is not registered.
func New(ctrl vehicle.Commander, telemetry *hub.Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		ctrl:      ctrl,
		telemetry: telemetry,
		logger:    logger.With("component", "console"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Petinga Console",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	// CORS for local development
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/servos", s.handleServos)
	api.Post("/servo", s.handleServo)
	api.Post("/speed", s.handleSpeed)
	api.Post("/stop", s.handleStop)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/command", websocket.New(s.handleCommandWS))
	if telemetry != nil {
		app.Get("/ws/telemetry", telemetry.Handler())
	}

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("console listening", "addr", addr)
	return s.app.Listen(addr)
}

// Serve serves on an existing listener until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("console listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// PublishTelemetry forwards a bus frame to telemetry viewers. It matches
// jsonbus.Callback so it can be registered on a Listener directly.
func (s *Server) PublishTelemetry(msg protocol.Message) {
	if s.telemetry == nil {
		return
	}
	if err := s.telemetry.BroadcastJSON(string(msg.Abbrev()), msg); err != nil {
		s.logger.Warn("telemetry frame dropped", "abbrev", msg.Abbrev(), "error", err)
	}
}

// statusCode maps a command error to an HTTP status.
func statusCode(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case vehicle.IsValidation(err):
		return fiber.StatusBadRequest
	case errors.Is(err, jsonbus.ErrNotConnected):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusBadGateway
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := statusCode(err)
	if code >= fiber.StatusInternalServerError {
		s.logger.Warn("request failed", "path", c.Path(), "status", code, "error", err)
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
