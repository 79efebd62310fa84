package jsonbus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-petinga/pkg/protocol"
)

// State is the connection state of a Client.
type State int

const (
	StateClosed State = iota
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

const readChunkSize = 4096

// session is one open connection. A new session (and read buffer) is created
// on every Connect, so nothing leaks from a dropped connection.
type session struct {
	id         string
	stream     Stream
	logger     *slog.Logger
	systemName string
	buf        []byte
	chunk      []byte
}

// Client owns a single JSONBus connection.
//
// Commands are strictly one outstanding request at a time. Send, Receive and
// Request are meant to be driven by one goroutine; Close may be called from
// any goroutine and aborts a blocked Receive with ErrConnectionClosed.
type Client struct {
	cfg    Config
	logger *slog.Logger

	mu   sync.Mutex // guards sess
	sess *session

	readMu  sync.Mutex // serializes framing reads
	writeMu sync.Mutex // serializes frame writes
	reqMu   sync.Mutex // single in-flight request

	// Stats
	framesSent     atomic.Int64
	framesReceived atomic.Int64
	bytesSent      atomic.Int64
	bytesReceived  atomic.Int64
	connects       atomic.Int64
}

// Stats holds client counters.
type Stats struct {
	FramesSent     int64 `json:"frames_sent"`
	FramesReceived int64 `json:"frames_received"`
	BytesSent      int64 `json:"bytes_sent"`
	BytesReceived  int64 `json:"bytes_received"`
	Connects       int64 `json:"connects"`
}

// New creates a new bus client.
// Call Connect() to open the connection.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		cfg:    cfg,
		logger: logger.With("component", "jsonbus", "addr", cfg.Addr()),
	}, nil
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Connect opens the connection. It fails with ErrAlreadyConnected while a
// connection is open; reconnecting requires Close first.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess != nil {
		return ErrAlreadyConnected
	}

	c.logger.Info("connecting to JSONBus", "transport", c.cfg.Transport)

	stream, err := dial(ctx, c.cfg)
	if err != nil {
		return &ConnectionError{Addr: c.cfg.Addr(), Err: err}
	}

	id := uuid.NewString()
	c.sess = &session{
		id:     id,
		stream: stream,
		logger: c.logger.With("session", id),
		chunk:  make([]byte, readChunkSize),
	}
	c.connects.Add(1)

	c.sess.logger.Info("connected to JSONBus")
	return nil
}

// Handshake reads the server's welcome frame and records the system name
// used to stamp outgoing commands. Any failure closes the connection.
func (c *Client) Handshake(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = c.cfg.HandshakeTimeout
	}

	msg, err := c.Receive(timeout)
	if err != nil {
		c.Close()
		switch {
		case errors.Is(err, ErrTimeout):
			return &HandshakeError{Reason: fmt.Sprintf("no welcome frame within %s", timeout), Err: err}
		case errors.Is(err, ErrMalformedFrame):
			return &HandshakeError{Reason: "unreadable welcome frame", Err: err}
		default:
			return &HandshakeError{Reason: "connection lost before welcome", Err: err}
		}
	}

	welcome, err := protocol.ParseWelcome(msg)
	if err != nil {
		c.Close()
		return &HandshakeError{Reason: "unreadable welcome frame", Err: err}
	}
	if welcome.Error != "" {
		c.Close()
		return &HandshakeError{Reason: "server rejected client: " + welcome.Error}
	}
	if welcome.SystemName == "" {
		c.Close()
		return &HandshakeError{Reason: "welcome frame has no system_name"}
	}

	c.mu.Lock()
	s := c.sess
	if s != nil {
		s.systemName = welcome.SystemName
	}
	c.mu.Unlock()
	if s == nil {
		return &HandshakeError{Reason: "connection closed during handshake", Err: ErrConnectionClosed}
	}

	s.logger.Info("connected to system", "system_name", welcome.SystemName)
	return nil
}

// Send writes one frame stamped with the system name. A write failure closes
// the connection: a partial write leaves the frame stream unusable.
func (c *Client) Send(msg protocol.Message) error {
	return c.send(msg, true)
}

// Subscribe asks the server to forward the named message kinds (all kinds
// when none are given).
func (c *Client) Subscribe(abbrevs ...protocol.Abbrev) error {
	return c.send(protocol.NewSubscribe(abbrevs...), false)
}

// Unsubscribe cancels every subscription on the connection.
func (c *Client) Unsubscribe() error {
	return c.send(protocol.NewUnsubscribe(), false)
}

func (c *Client) send(msg protocol.Message, stamp bool) error {
	c.mu.Lock()
	s := c.sess
	var src string
	if s != nil {
		src = s.systemName
	}
	c.mu.Unlock()

	if s == nil {
		return ErrNotConnected
	}
	if stamp {
		msg = msg.WithSrc(src)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	data = append(data, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := s.stream.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return c.fail(s, &IOError{Op: "write", Err: err})
	}
	if _, err := s.stream.Write(data); err != nil {
		return c.fail(s, &IOError{Op: "write", Err: err})
	}

	c.framesSent.Add(1)
	c.bytesSent.Add(int64(len(data)))
	s.logger.Debug("frame sent", "abbrev", msg.Abbrev(), "bytes", len(data))
	return nil
}

// Receive blocks until one complete frame arrives, the timeout elapses, or
// the connection closes. A timeout leaves the connection open and keeps any
// partial frame buffered. timeout <= 0 uses the configured ReceiveTimeout.
func (c *Client) Receive(timeout time.Duration) (protocol.Message, error) {
	if timeout <= 0 {
		timeout = c.cfg.ReceiveTimeout
	}

	c.readMu.Lock()
	defer c.readMu.Unlock()

	s := c.current()
	if s == nil {
		return nil, ErrNotConnected
	}

	deadline := time.Now().Add(timeout)
	for {
		frame, ok, err := s.nextFrame(c.cfg.MaxFrameSize)
		if err != nil {
			return nil, c.fail(s, err)
		}
		if ok {
			msg, err := protocol.ParseMessage(frame)
			if err != nil {
				return nil, c.fail(s, &MalformedFrameError{Frame: truncate(frame), Err: err})
			}
			c.framesReceived.Add(1)
			s.logger.Debug("frame received", "abbrev", msg.Abbrev(), "bytes", len(frame))
			return msg, nil
		}

		if err := s.stream.SetReadDeadline(deadline); err != nil {
			return nil, c.readError(s, err)
		}
		n, err := s.stream.Read(s.chunk)
		if n > 0 {
			s.buf = append(s.buf, s.chunk[:n]...)
			c.bytesReceived.Add(int64(n))
		}
		if err != nil {
			return nil, c.readError(s, err)
		}
	}
}

// Request sends msg and returns the first frame that follows. The protocol
// has no correlation IDs, so only one request may be in flight.
//
// A timeout closes the connection: a late reply would otherwise be read as
// the answer to the next request.
func (c *Client) Request(msg protocol.Message, timeout time.Duration) (protocol.Message, error) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	if err := c.Send(msg); err != nil {
		return nil, err
	}
	reply, err := c.Receive(timeout)
	if errors.Is(err, ErrTimeout) {
		if s := c.current(); s != nil {
			c.fail(s, err)
		}
		return nil, err
	}
	return reply, err
}

// Close releases the connection. Closing a closed client is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	s := c.sess
	c.sess = nil
	c.mu.Unlock()

	if s == nil {
		return nil
	}

	if err := s.stream.Close(); err != nil {
		s.logger.Debug("error closing stream", "error", err)
	}
	s.logger.Info("connection closed")
	return nil
}

// State returns the current connection state.
func (c *Client) State() State {
	if c.current() != nil {
		return StateOpen
	}
	return StateClosed
}

// SystemName returns the name announced in the welcome frame, or "".
func (c *Client) SystemName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return ""
	}
	return c.sess.systemName
}

// SessionID returns the ID of the open connection, or "".
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return ""
	}
	return c.sess.id
}

// Stats returns client counters.
func (c *Client) Stats() Stats {
	return Stats{
		FramesSent:     c.framesSent.Load(),
		FramesReceived: c.framesReceived.Load(),
		BytesSent:      c.bytesSent.Load(),
		BytesReceived:  c.bytesReceived.Load(),
		Connects:       c.connects.Load(),
	}
}

func (c *Client) current() *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

// fail drops session s (if still current) and returns err.
func (c *Client) fail(s *session, err error) error {
	c.mu.Lock()
	current := c.sess == s
	if current {
		c.sess = nil
	}
	c.mu.Unlock()

	if !current {
		// Close() got there first.
		return ErrConnectionClosed
	}

	s.stream.Close()
	s.logger.Warn("connection dropped", "error", err)
	return err
}

// readError classifies a read failure. Timeouts keep the connection.
func (c *Client) readError(s *session, err error) error {
	if c.current() != s {
		return ErrConnectionClosed
	}

	var ne net.Error
	switch {
	case errors.Is(err, os.ErrDeadlineExceeded), errors.As(err, &ne) && ne.Timeout():
		return ErrTimeout
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE):
		c.fail(s, fmt.Errorf("%w: %v", ErrConnectionClosed, err))
		return ErrConnectionClosed
	default:
		return c.fail(s, &IOError{Op: "read", Err: err})
	}
}

// nextFrame pops one complete line from the read buffer, skipping blank
// lines. ok is false when no complete frame is buffered yet.
func (s *session) nextFrame(max int) (frame []byte, ok bool, err error) {
	for {
		idx := bytes.IndexByte(s.buf, '\n')
		if idx < 0 {
			if len(s.buf) > max {
				return nil, false, &MalformedFrameError{
					Frame: truncate(s.buf),
					Err:   fmt.Errorf("frame exceeds %d bytes", max),
				}
			}
			if len(s.buf) == 0 {
				s.buf = nil
			}
			return nil, false, nil
		}

		line := bytes.TrimSpace(s.buf[:idx])
		s.buf = s.buf[idx+1:]
		if len(line) == 0 {
			continue
		}
		if len(line) > max {
			return nil, false, &MalformedFrameError{
				Frame: truncate(line),
				Err:   fmt.Errorf("frame exceeds %d bytes", max),
			}
		}
		return line, true, nil
	}
}
