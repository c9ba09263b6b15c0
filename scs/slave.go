package scs

import (
	"context"
	"errors"
	"fmt"

	"github.com/arloliu/go-scservo/logger"
)

// FrameHandler inspects a received, checksum-verified frame and decides
// whether and how to answer. It is supplied by the device-emulation layer.
//
// The handler writes the full response frame (markers included) into
// resp and returns its length together with true. Returning false means
// the frame is not addressed to this device (or is malformed) and no
// response is sent.
type FrameHandler func(pkt Packet, resp []byte) (int, bool)

// slaveState tags the responder's position in the command/response cycle.
type slaveState int

const (
	// slaveIdle polls the assembler for an incoming command frame.
	slaveIdle slaveState = iota
	// slaveProcessCommand validates the frame and invokes the handler.
	slaveProcessCommand
	// slaveSendResponse drains the staged response onto the byte sink.
	slaveSendResponse
)

// Slave is a three-state responder driven by repeated polls of Process.
// It owns one frame [Assembler] and a response staging buffer, letting a
// single responder loop serve arbitrarily slow or chunked transports
// without blocking and without losing partially sent responses.
//
// A Slave instance must not be driven from more than one goroutine at a
// time.
type Slave struct {
	asm     *Assembler
	resp    []byte
	respPos int
	respLen int
	state   slaveState
	logger  logger.Logger
	metrics *ExchangeMetrics
}

// SlaveOption is a functional option for configuring a Slave.
type SlaveOption interface {
	applySlave(*Slave) error
}

type slaveOptFunc func(*Slave) error

func (f slaveOptFunc) applySlave(s *Slave) error { return f(s) }

// WithSlaveBufferSize sets both the assembler scratch capacity and the
// response staging capacity. Must be at least MinBufferSize.
func WithSlaveBufferSize(size int) SlaveOption {
	return slaveOptFunc(func(s *Slave) error {
		asm, err := NewAssembler(size)
		if err != nil {
			return err
		}
		s.asm = asm
		s.resp = make([]byte, size)

		return nil
	})
}

// WithSlaveLogger sets the logger for the slave.
func WithSlaveLogger(l logger.Logger) SlaveOption {
	return slaveOptFunc(func(s *Slave) error {
		if l == nil {
			return errors.New("scs: logger must not be nil")
		}
		s.logger = l

		return nil
	})
}

// WithSlaveMetrics attaches an ExchangeMetrics instance.
func WithSlaveMetrics(metrics *ExchangeMetrics) SlaveOption {
	return slaveOptFunc(func(s *Slave) error {
		s.metrics = metrics
		return nil
	})
}

// NewSlave creates a Slave with the given options. Defaults:
// DefaultBufferSize buffers and the package default logger.
func NewSlave(opts ...SlaveOption) (*Slave, error) {
	asm, _ := NewAssembler(DefaultBufferSize)
	s := &Slave{
		asm:    asm,
		resp:   make([]byte, DefaultBufferSize),
		logger: logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.applySlave(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Reset returns the responder to the Idle state, dropping any staged
// response and any partially assembled frame.
func (s *Slave) Reset() {
	s.state = slaveIdle
	s.asm.Reset()
	s.respPos = 0
	s.respLen = 0
}

// Process performs one step of the command/response cycle and returns.
// Drive it in a loop:
//
//   - Idle: polls the assembler; a completed frame advances to command
//     processing, would-block keeps it idle.
//   - ProcessCommand: a checksum mismatch silently drops the frame (a
//     field device must ignore corrupted commands rather than fault).
//     Otherwise handler decides whether to respond; a staged response
//     advances to sending.
//   - SendResponse: writes as much as the sink accepts; a would-block
//     signal pauses transmission until the next poll.
//
// Transport errors propagate immediately; the slave state is preserved
// so the caller may resume or Reset.
func (s *Slave) Process(r Reader, w Writer, handler FrameHandler) error {
	switch s.state {
	case slaveIdle:
		done, err := s.asm.Read(r)
		if err != nil {
			return err
		}
		if done {
			s.metrics.incFrameRecvCount()
			s.state = slaveProcessCommand
		}

	case slaveProcessCommand:
		s.state = s.processCommand(handler)

	case slaveSendResponse:
		next, err := s.drainResponse(w)
		if err != nil {
			return err
		}
		s.state = next
	}

	return nil
}

// ProcessContext is the cooperative variant of Process, sharing the
// ProcessCommand step and differing only in how the stream is driven.
func (s *Slave) ProcessContext(ctx context.Context, r ContextReader, w ContextWriter, handler FrameHandler) error {
	switch s.state {
	case slaveIdle:
		done, err := s.asm.ReadContext(ctx, r)
		if err != nil {
			return err
		}
		if done {
			s.metrics.incFrameRecvCount()
			s.state = slaveProcessCommand
		}

	case slaveProcessCommand:
		s.state = s.processCommand(handler)

	case slaveSendResponse:
		n, err := w.WriteContext(ctx, s.resp[s.respPos:s.respLen])
		if err != nil {
			return fmt.Errorf("scs: write response: %w", err)
		}
		s.respPos += n

		if s.respPos == s.respLen {
			s.metrics.incResponseSendCount()
			s.state = slaveIdle
		}
	}

	return nil
}

// processCommand verifies the received frame and invokes the handler,
// returning the next state.
func (s *Slave) processCommand(handler FrameHandler) slaveState {
	pkt, ok := s.asm.Packet()
	if !ok {
		return slaveIdle
	}

	if err := pkt.VerifyChecksum(); err != nil {
		s.metrics.incFrameDropCount()
		s.logger.Debug("scs: dropping corrupted command frame", "error", err)

		return slaveIdle
	}

	length, ok := handler(pkt, s.resp)
	if !ok {
		return slaveIdle
	}
	if length < 0 || length > len(s.resp) {
		s.logger.Debug("scs: handler returned out-of-range response length", "length", length)

		return slaveIdle
	}

	s.respPos = 0
	s.respLen = length

	return slaveSendResponse
}

// drainResponse writes staged response bytes until the sink would block
// or the response is fully sent.
func (s *Slave) drainResponse(w Writer) (slaveState, error) {
	for s.respPos < s.respLen {
		n, err := w.Write(s.resp[s.respPos:s.respLen])
		if err != nil {
			if errors.Is(err, ErrWouldBlock) {
				break
			}

			return slaveSendResponse, fmt.Errorf("scs: write response: %w", err)
		}
		s.respPos += n

		if n == 0 {
			break
		}
	}

	if s.respPos == s.respLen {
		s.metrics.incResponseSendCount()

		return slaveIdle, nil
	}

	return slaveSendResponse, nil
}
