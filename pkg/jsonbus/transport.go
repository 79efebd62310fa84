package jsonbus

import (
	"context"
	"io"
	"net"
	"os"
	"time"

	"go.bug.st/serial"
)

// Stream is the byte stream a Client frames messages on. net.Conn satisfies it.
type Stream interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// dial opens the configured transport.
func dial(ctx context.Context, cfg Config) (Stream, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if cfg.Transport == TransportSerial {
		return openSerial(cfg)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", cfg.Addr())
	if err != nil {
		return nil, err
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		tcp.SetNoDelay(true)
	}
	return conn, nil
}

// serialStream adapts a serial port to deadline-based reads. The port
// returns (0, nil) when its read timeout expires; that is reported as
// os.ErrDeadlineExceeded so the client treats it like a socket timeout.
type serialStream struct {
	port serial.Port
}

func openSerial(cfg Config) (Stream, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(cfg.SerialPort, mode)
	if err != nil {
		return nil, err
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, err
	}
	return &serialStream{port: port}, nil
}

func (s *serialStream) Read(p []byte) (int, error) {
	n, err := s.port.Read(p)
	if n == 0 && err == nil {
		return 0, os.ErrDeadlineExceeded
	}
	return n, err
}

func (s *serialStream) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *serialStream) Close() error {
	return s.port.Close()
}

func (s *serialStream) SetReadDeadline(t time.Time) error {
	if t.IsZero() {
		return s.port.SetReadTimeout(serial.NoTimeout)
	}
	d := time.Until(t)
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return s.port.SetReadTimeout(d)
}

// SetWriteDeadline is a no-op; serial writes block only on the UART buffer.
func (s *serialStream) SetWriteDeadline(time.Time) error {
	return nil
}
