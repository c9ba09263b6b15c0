package scs

import (
	"errors"
	"fmt"

	"github.com/arloliu/go-scservo/logger"
)

// Master issues command frames on a half-duplex byte stream and validates
// the responses. It owns one frame [Assembler]; a Master instance must
// not be driven from more than one goroutine at a time.
//
// The engine does not enforce the id conventions of the bus (0 and 255
// are reserved by the scanning convention); addressing them is a caller
// concern. It performs no retries beyond the timeout-bounded read/write
// loops: one failed exchange is one failed operation.
type Master struct {
	echoBack bool
	asm      *Assembler
	logger   logger.Logger
	metrics  *ExchangeMetrics
}

// MasterOption is a functional option for configuring a Master.
type MasterOption interface {
	applyMaster(*Master) error
}

type masterOptFunc func(*Master) error

func (f masterOptFunc) applyMaster(m *Master) error { return f(m) }

// WithEchoBack declares that the transport loops transmitted bytes back
// into the receive path (typical for single-wire adapters). The master
// then assembles and discards one frame, its own echo, before reading
// the real response.
func WithEchoBack(enabled bool) MasterOption {
	return masterOptFunc(func(m *Master) error {
		m.echoBack = enabled
		return nil
	})
}

// WithBufferSize sets the assembler scratch capacity, bounding the
// maximum acceptable response frame. Must be at least MinBufferSize.
func WithBufferSize(size int) MasterOption {
	return masterOptFunc(func(m *Master) error {
		asm, err := NewAssembler(size)
		if err != nil {
			return err
		}
		m.asm = asm

		return nil
	})
}

// WithLogger sets the logger for the master.
func WithLogger(l logger.Logger) MasterOption {
	return masterOptFunc(func(m *Master) error {
		if l == nil {
			return errors.New("scs: logger must not be nil")
		}
		m.logger = l

		return nil
	})
}

// WithMetrics attaches an ExchangeMetrics instance, typically shared
// across the masters and slaves of one bus.
func WithMetrics(metrics *ExchangeMetrics) MasterOption {
	return masterOptFunc(func(m *Master) error {
		m.metrics = metrics
		return nil
	})
}

// NewMaster creates a Master with the given options. Defaults: no echo
// back, DefaultBufferSize scratch capacity, package default logger.
func NewMaster(opts ...MasterOption) (*Master, error) {
	asm, _ := NewAssembler(DefaultBufferSize)
	m := &Master{
		asm:    asm,
		logger: logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.applyMaster(m); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// ReadRegister reads len(buf) contiguous register bytes starting at
// address from device id, copying them into buf.
//
// The exchange transmits the command (retrying partial and would-block
// writes), discards the echoed command frame when echo back is enabled,
// assembles the response, and validates it: the checksum must verify,
// the response id must equal id, and the payload must hold exactly
// len(buf)+1 bytes (a leading status byte, which is stripped, plus the
// register data). expired is polled once per retry iteration; expiry
// aborts with ErrTimeout.
func (m *Master) ReadRegister(r Reader, w Writer, id, address byte, buf []byte, expired TimeoutFunc) error {
	cmd := NewReadRegisterCommand(id, address, byte(len(buf)))

	if err := m.transmit(w, cmd.Bytes(), expired); err != nil {
		return err
	}

	if err := m.receive(r, expired); err != nil {
		return err
	}

	return m.finishRead(id, buf)
}

// WriteRegister transmits a prepared write-register command and awaits
// the device's response.
//
// The caller must have completed the two-phase build: payload data
// filled and checksum updated. The response is validated by checksum and
// id only; its status payload is deliberately not inspected, preserving
// the permissiveness some device firmware relies on.
func (m *Master) WriteRegister(r Reader, w Writer, cmd *WriteRegisterCommand, expired TimeoutFunc) error {
	if err := m.transmit(w, cmd.Bytes(), expired); err != nil {
		return err
	}

	if err := m.receive(r, expired); err != nil {
		return err
	}

	return m.finishWrite(cmd.ID())
}

// transmit writes the full command frame, looping on partial writes and
// would-block signals, polling expired each iteration.
func (m *Master) transmit(w Writer, data []byte, expired TimeoutFunc) error {
	for written := 0; written < len(data); {
		n, err := w.Write(data[written:])
		if err != nil && !errors.Is(err, ErrWouldBlock) {
			return fmt.Errorf("scs: write command: %w", err)
		}
		written += n

		// A completed transmission always beats budget expiry.
		if written < len(data) && expired() {
			m.metrics.incTimeoutCount()

			return ErrTimeout
		}
	}

	return nil
}

// receive runs the assembler to completion for the echo frame (when
// enabled) and then for the actual response, under the timeout predicate.
func (m *Master) receive(r Reader, expired TimeoutFunc) error {
	if m.echoBack {
		if err := m.awaitFrame(r, expired); err != nil {
			return err
		}
		m.logger.Debug("scs: discarded echoed command frame")
	}

	return m.awaitFrame(r, expired)
}

// awaitFrame polls the assembler until a frame completes or the timeout
// predicate expires.
func (m *Master) awaitFrame(r Reader, expired TimeoutFunc) error {
	for {
		done, err := m.asm.Read(r)
		if err != nil {
			return err
		}
		if done {
			m.metrics.incFrameRecvCount()

			return nil
		}
		if expired() {
			m.metrics.incTimeoutCount()

			return ErrTimeout
		}
	}
}

// finishRead validates the assembled response for a read exchange and
// copies the register data into buf.
func (m *Master) finishRead(id byte, buf []byte) error {
	pkt, err := m.validateResponse(id)
	if err != nil {
		return err
	}

	payload, err := pkt.Payload()
	if err != nil {
		return err
	}

	// One status byte, then the requested register bytes.
	if len(payload) != len(buf)+1 {
		return fmt.Errorf("%w: got %d payload bytes, want %d", ErrUnexpectedLength, len(payload), len(buf)+1)
	}

	copy(buf, payload[1:])
	m.metrics.incExchangeCount()

	return nil
}

// finishWrite validates the assembled response for a write exchange.
// The status payload is intentionally left unchecked.
func (m *Master) finishWrite(id byte) error {
	if _, err := m.validateResponse(id); err != nil {
		return err
	}
	m.metrics.incExchangeCount()

	return nil
}

// validateResponse verifies the completed frame's checksum and id.
func (m *Master) validateResponse(id byte) (Packet, error) {
	pkt, ok := m.asm.Packet()
	if !ok {
		// receive() returned success, so a frame must be present.
		return nil, errors.New("scs: no completed frame in assembler")
	}

	if err := pkt.VerifyChecksum(); err != nil {
		m.metrics.incFrameDropCount()

		return nil, err
	}

	respID, err := pkt.ID()
	if err != nil {
		return nil, err
	}
	if respID != id {
		m.logger.Debug("scs: response from unexpected device", "want", id, "got", respID)

		return nil, fmt.Errorf("%w: got %d, want %d", ErrUnexpectedID, respID, id)
	}

	return pkt, nil
}
