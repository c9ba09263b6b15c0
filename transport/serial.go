// Package transport provides concrete implementations of the byte-stream
// contract consumed by package scs: an in-process pipe for tests and
// emulation, and a serial-port adapter for real servo buses.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/arloliu/go-scservo/scs"
)

// DefaultBaudRate is the factory baud rate of SCS-series servos.
const DefaultBaudRate = 1_000_000

// DefaultPollWindow is the read timeout applied to the serial port. A
// read that expires with no data maps to the would-block signal of the
// polling discipline and to a zero-byte delivery in the cooperative one.
const DefaultPollWindow = 10 * time.Millisecond

// SerialPort adapts a serial device to the stream contract of package
// scs. Reads block for at most the configured poll window, so both
// execution disciplines remain responsive to their timeout predicates.
//
// Like all engine collaborators it must be driven by one goroutine at a
// time per direction.
type SerialPort struct {
	port       serial.Port
	pollWindow time.Duration
}

var (
	_ scs.Reader        = (*SerialPort)(nil)
	_ scs.Writer        = (*SerialPort)(nil)
	_ scs.ContextReader = (*SerialPort)(nil)
	_ scs.ContextWriter = (*SerialPort)(nil)
)

// SerialOption is a functional option for configuring a SerialPort.
type SerialOption interface {
	apply(*serialConfig) error
}

type serialOptFunc func(*serialConfig) error

func (f serialOptFunc) apply(cfg *serialConfig) error { return f(cfg) }

type serialConfig struct {
	baudRate   int
	pollWindow time.Duration
}

// WithBaudRate sets the line baud rate. Must be positive.
func WithBaudRate(baud int) SerialOption {
	return serialOptFunc(func(cfg *serialConfig) error {
		if baud <= 0 {
			return fmt.Errorf("transport: baud rate %d must be positive", baud)
		}
		cfg.baudRate = baud

		return nil
	})
}

// WithPollWindow sets the bounded wait applied to each read attempt.
func WithPollWindow(d time.Duration) SerialOption {
	return serialOptFunc(func(cfg *serialConfig) error {
		if d <= 0 {
			return errors.New("transport: poll window must be positive")
		}
		cfg.pollWindow = d

		return nil
	})
}

// OpenSerial opens the named serial device (e.g. "/dev/ttyUSB0") in
// 8N1 mode and wires it for use with the protocol engine.
func OpenSerial(portName string, opts ...SerialOption) (*SerialPort, error) {
	cfg := &serialConfig{
		baudRate:   DefaultBaudRate,
		pollWindow: DefaultPollWindow,
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	port, err := serial.Open(portName, &serial.Mode{BaudRate: cfg.baudRate})
	if err != nil {
		return nil, fmt.Errorf("transport: open serial port %s: %w", portName, err)
	}

	if err := port.SetReadTimeout(cfg.pollWindow); err != nil {
		_ = port.Close()

		return nil, fmt.Errorf("transport: set read timeout: %w", err)
	}

	return &SerialPort{port: port, pollWindow: cfg.pollWindow}, nil
}

// Read reads up to len(buf) bytes, waiting at most the poll window.
// An expired wait with no data maps to scs.ErrWouldBlock.
func (s *SerialPort) Read(buf []byte) (int, error) {
	n, err := s.port.Read(buf)
	if err != nil {
		return n, fmt.Errorf("transport: serial read: %w", err)
	}

	if n == 0 {
		return 0, scs.ErrWouldBlock
	}

	return n, nil
}

// Write writes buf to the port. The OS driver buffers serial output, so
// a would-block result does not occur in practice; short writes are
// reported as-is and resumed by the engine.
func (s *SerialPort) Write(buf []byte) (int, error) {
	n, err := s.port.Write(buf)
	if err != nil {
		return n, fmt.Errorf("transport: serial write: %w", err)
	}

	return n, nil
}

// ReadContext is the cooperative read: it delivers (0, nil) when the
// poll window expires with no data. The blocking read itself cannot be
// interrupted by ctx; the short window bounds the suspension, and ctx is
// checked between attempts.
func (s *SerialPort) ReadContext(ctx context.Context, buf []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n, err := s.port.Read(buf)
	if err != nil {
		return n, fmt.Errorf("transport: serial read: %w", err)
	}

	return n, nil
}

// WriteContext writes buf to the port, checking ctx before the write.
func (s *SerialPort) WriteContext(ctx context.Context, buf []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n, err := s.port.Write(buf)
	if err != nil {
		return n, fmt.Errorf("transport: serial write: %w", err)
	}

	return n, nil
}

// ResetInput discards bytes pending in the receive buffer. Useful before
// starting a scan, so stale echoes do not alias as responses.
func (s *SerialPort) ResetInput() error {
	return s.port.ResetInputBuffer()
}

// Close closes the underlying serial device.
func (s *SerialPort) Close() error {
	return s.port.Close()
}
