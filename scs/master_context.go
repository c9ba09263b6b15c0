package scs

import (
	"context"
	"fmt"
)

// Cooperative (event-loop driven) variants of the Master operations.
//
// They implement the same exchange skeleton as ReadRegister and
// WriteRegister against the suspending stream contract: a read attempt
// waits for data or a short window and delivers zero bytes on expiry, so
// the timeout predicate below stays responsive. Framing semantics and
// response validation are shared with the polling variants.

// ReadRegisterContext is the cooperative variant of ReadRegister.
// Cancelling ctx aborts the underlying stream waits with ctx.Err();
// budget expiry is still reported by expired as ErrTimeout.
func (m *Master) ReadRegisterContext(ctx context.Context, r ContextReader, w ContextWriter, id, address byte, buf []byte, expired TimeoutFunc) error {
	cmd := NewReadRegisterCommand(id, address, byte(len(buf)))

	if err := m.transmitContext(ctx, w, cmd.Bytes(), expired); err != nil {
		return err
	}

	if err := m.receiveContext(ctx, r, expired); err != nil {
		return err
	}

	return m.finishRead(id, buf)
}

// WriteRegisterContext is the cooperative variant of WriteRegister.
func (m *Master) WriteRegisterContext(ctx context.Context, r ContextReader, w ContextWriter, cmd *WriteRegisterCommand, expired TimeoutFunc) error {
	if err := m.transmitContext(ctx, w, cmd.Bytes(), expired); err != nil {
		return err
	}

	if err := m.receiveContext(ctx, r, expired); err != nil {
		return err
	}

	return m.finishWrite(cmd.ID())
}

func (m *Master) transmitContext(ctx context.Context, w ContextWriter, data []byte, expired TimeoutFunc) error {
	for written := 0; written < len(data); {
		n, err := w.WriteContext(ctx, data[written:])
		if err != nil {
			return fmt.Errorf("scs: write command: %w", err)
		}
		written += n

		if written < len(data) && expired() {
			m.metrics.incTimeoutCount()

			return ErrTimeout
		}
	}

	return nil
}

func (m *Master) receiveContext(ctx context.Context, r ContextReader, expired TimeoutFunc) error {
	if m.echoBack {
		if err := m.awaitFrameContext(ctx, r, expired); err != nil {
			return err
		}
		m.logger.Debug("scs: discarded echoed command frame")
	}

	return m.awaitFrameContext(ctx, r, expired)
}

func (m *Master) awaitFrameContext(ctx context.Context, r ContextReader, expired TimeoutFunc) error {
	for {
		done, err := m.asm.ReadContext(ctx, r)
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
